package models

import (
	"github.com/shopspring/decimal"

	id "ofertas/pkg/domain"
)

// Submission is a validated contribution with resolved entities, ready for
// the consensus engine.
type Submission struct {
	UserID          id.UserID
	ContributorName string
	Product         *Product
	Store           *Store
	Price           decimal.Decimal
	Quantity        *decimal.Decimal
	Unit            string
	City            string
	State           string
	Notes           []string
}
