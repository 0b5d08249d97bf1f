package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "ofertas/pkg/domain-errors"
)

// UserID identifies a contributor. Identity is owned by an external provider,
// so the value is opaque; the only invariant is that it is non-empty.
type UserID string

// ProductID, StoreID and ContributionID are distinct UUID-backed types so the
// compiler keeps them from being swapped at call sites.
type (
	ProductID      uuid.UUID
	StoreID        uuid.UUID
	ContributionID uuid.UUID
)

// ParseUserID validates an externally supplied user identifier.
func ParseUserID(s string) (UserID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !utf8.ValidString(trimmed) {
		return "", dErrors.New(dErrors.CodeValidation, "user id must be valid UTF-8")
	}
	return UserID(trimmed), nil
}

func (u UserID) String() string { return string(u) }

// IsZero reports whether the user id is unset.
func (u UserID) IsZero() bool { return u == "" }

func NewProductID() ProductID           { return ProductID(uuid.New()) }
func NewStoreID() StoreID               { return StoreID(uuid.New()) }
func NewContributionID() ContributionID { return ContributionID(uuid.New()) }

func (id ProductID) String() string      { return uuid.UUID(id).String() }
func (id StoreID) String() string        { return uuid.UUID(id).String() }
func (id ContributionID) String() string { return uuid.UUID(id).String() }

func (id ProductID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id StoreID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ContributionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseContributionID parses a contribution id at a trust boundary.
func ParseContributionID(s string) (ContributionID, error) {
	u, err := parseUUID(s, "contribution id")
	return ContributionID(u), err
}

// MarshalText lets ContributionID be used as a JSON value and map key.
func (id ContributionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ContributionID) UnmarshalText(b []byte) error {
	parsed, err := ParseContributionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ProductID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id StoreID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" cannot be nil")
	}
	return u, nil
}
