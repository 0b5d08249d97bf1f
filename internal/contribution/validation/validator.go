// Package validation sanitizes and checks contribution payloads before they
// reach the consensus engine.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"ofertas/internal/contribution/models"
	id "ofertas/pkg/domain"
	dErrors "ofertas/pkg/domain-errors"
)

// RawContribution is the unvalidated input of a submission.
type RawContribution struct {
	UserID      string  `json:"userId" validate:"required"`
	ProductName string  `json:"productName" sanitize:"text" validate:"min=2"`
	StoreName   string  `json:"storeName" sanitize:"text" validate:"min=2"`
	City        string  `json:"city" sanitize:"text" validate:"min=2"`
	State       string  `json:"state" sanitize:"text" validate:"len=2"`
	Unit        string  `json:"unit" sanitize:"text"`
	Category    string  `json:"category" sanitize:"text"`
	Price       float64 `json:"price"`
	Quantity    *int    `json:"quantity" validate:"omitempty,min=1,max=1000"`
}

// Sanitized is a contribution payload that passed every rule.
type Sanitized struct {
	UserID      id.UserID
	ProductName string
	StoreName   string
	City        string
	State       string
	Unit        string
	Category    string
	Price       decimal.Decimal
	Quantity    *decimal.Decimal
	Spam        SpamResult
}

// Validator applies the sanitization and field rules. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate sanitizes raw and checks every rule, collecting all failures into
// one validation error with per-field details.
func (v *Validator) Validate(raw RawContribution) (*Sanitized, error) {
	sanitize(&raw)

	var details []string
	if err := v.validate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "validator misconfigured")
		}
		for _, fe := range verrs {
			details = append(details, describe(fe))
		}
	}
	if msg, ok := checkPrice(raw.Price); !ok {
		details = append(details, msg)
	}

	if len(details) > 0 {
		return nil, dErrors.WithDetails(dErrors.CodeValidation, "invalid contribution", details)
	}

	userID, err := id.ParseUserID(raw.UserID)
	if err != nil {
		return nil, err
	}

	out := &Sanitized{
		UserID:      userID,
		ProductName: raw.ProductName,
		StoreName:   raw.StoreName,
		City:        raw.City,
		State:       strings.ToUpper(raw.State),
		Unit:        raw.Unit,
		Category:    raw.Category,
		Price:       decimal.NewFromFloat(raw.Price),
		Spam:        ClassifySpam(raw.ProductName + " " + raw.StoreName),
	}
	if raw.Quantity != nil {
		q := decimal.NewFromInt(int64(*raw.Quantity))
		out.Quantity = &q
	}
	return out, nil
}

func checkPrice(p float64) (string, bool) {
	switch {
	case math.IsNaN(p) || math.IsInf(p, 0):
		return "price must be a finite number", false
	case p <= 0:
		return "price must be greater than zero", false
	case decimal.NewFromFloat(p).GreaterThan(models.MaxPrice):
		return fmt.Sprintf("price must not exceed %s", models.MaxPrice), false
	case decimal.NewFromFloat(p).Exponent() < -2:
		return "price must have at most two decimal places", false
	}
	return "", true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
