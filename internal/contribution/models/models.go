// Package models holds the contribution domain: canonical products and stores,
// user price claims, and their approval lifecycle.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "ofertas/pkg/domain"
)

const (
	DefaultUnit     = "unidade"
	DefaultCategory = "outros"
)

// MaxPrice is the ceiling enforced on every contribution price.
var MaxPrice = decimal.NewFromInt(999_999)

// Status is the approval state of a contribution.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid checks if the status is one of the supported values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether the core will never move a contribution out of s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo encodes the automatic state machine: only pending moves,
// and only to approved. Rejection belongs to external moderation.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next == StatusApproved
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.IsValid()
}

// Product is a canonical product entity. Its name is never rewritten once created.
type Product struct {
	ID             id.ProductID    `json:"id"`
	Name           string          `json:"name"`
	NormalizedName string          `json:"-"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	Category       string          `json:"category"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Store is a canonical store entity.
type Store struct {
	ID             id.StoreID `json:"id"`
	Name           string     `json:"name"`
	NormalizedName string     `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Contribution is one user's price claim for a product at a store. Only
// Status, Notes and UpdatedAt change after creation.
type Contribution struct {
	ID              id.ContributionID
	UserID          id.UserID
	ContributorName string
	ProductID       id.ProductID
	StoreID         id.StoreID
	Price           decimal.Decimal
	Quantity        *decimal.Decimal
	Unit            string
	City            string
	State           string
	Status          Status
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Offer is the read model of a contribution joined with its entity names.
type Offer struct {
	ID              id.ContributionID
	UserID          id.UserID
	ContributorName string
	ProductID       id.ProductID
	ProductName     string
	StoreID         id.StoreID
	StoreName       string
	Price           decimal.Decimal
	City            string
	State           string
	Status          Status
	CreatedAt       time.Time
}

// Verified reports whether the offer has been corroborated.
func (o Offer) Verified() bool {
	return o.Status == StatusApproved
}
