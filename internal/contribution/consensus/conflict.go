package consensus

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ofertas/internal/contribution/models"
	"ofertas/internal/normalize"
	id "ofertas/pkg/domain"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/requestcontext"
)

// ConflictCandidate is a price about to be submitted, described by the raw
// names the contributor typed.
type ConflictCandidate struct {
	UserID      id.UserID
	ProductName string
	StoreName   string
	City        string
	Price       decimal.Decimal
}

// ConflictAdvisory describes an existing offer whose price diverges from the
// candidate by more than the tolerance.
type ConflictAdvisory struct {
	OfferID                id.ContributionID
	ConflictingPrice       decimal.Decimal
	ConflictingContributor string
	// PriceDifferencePercent is (candidate - existing) / existing * 100,
	// rounded to one decimal place.
	PriceDifferencePercent float64
}

// ConflictError carries an advisory through error returns. It unwraps to a
// price_conflict domain error.
type ConflictError struct {
	Advisory ConflictAdvisory
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("price differs %.1f%% from %s reported by %s",
		e.Advisory.PriceDifferencePercent, e.Advisory.ConflictingPrice.StringFixed(2), e.Advisory.ConflictingContributor)
}

func (e *ConflictError) Unwrap() error {
	return dErrors.New(dErrors.CodePriceConflict, "price conflicts with a recent offer")
}

// CheckConflict looks for a recent non-rejected offer from another user in
// the same city whose product and store names match the candidate and whose
// price differs by more than the tolerance. It returns the most recent such
// offer, or nil.
func (e *Engine) CheckConflict(ctx context.Context, c ConflictCandidate) (*ConflictAdvisory, error) {
	ctx, span := e.tracer.Start(ctx, "consensus.CheckConflict")
	defer span.End()

	now := requestcontext.Now(ctx)
	offers, err := e.store.ListOffers(ctx, models.OfferQuery{
		Since:    now.Add(-e.retention),
		Statuses: models.NonRejected(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recent offers")
	}

	city := normalize.Fold(c.City)
	tolerance := decimal.NewFromFloat(e.tolerance)
	for _, o := range offers {
		if o.UserID == c.UserID || normalize.Fold(o.City) != city {
			continue
		}
		if !e.match(c.ProductName, o.ProductName) || !e.match(c.StoreName, o.StoreName) {
			continue
		}
		if !o.Price.IsPositive() {
			continue
		}
		ratio := c.Price.Sub(o.Price).Div(o.Price)
		if ratio.Abs().LessThanOrEqual(tolerance) {
			continue
		}
		return &ConflictAdvisory{
			OfferID:                o.ID,
			ConflictingPrice:       o.Price,
			ConflictingContributor: o.ContributorName,
			PriceDifferencePercent: ratio.Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64(),
		}, nil
	}
	return nil, nil
}
