// Package ports defines the datastore collaborator consumed by the resolver
// and the consensus engine.
package ports

import (
	"context"
	"time"

	"ofertas/internal/contribution/models"
	id "ofertas/pkg/domain"
)

// EntityStore finds and creates canonical products and stores.
type EntityStore interface {
	// FindProducts returns products whose name contains the given text, case-insensitively.
	FindProducts(ctx context.Context, contains string) ([]*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error

	// FindStores returns stores whose name contains the given text, case-insensitively.
	FindStores(ctx context.Context, contains string) ([]*models.Store, error)
	CreateStore(ctx context.Context, s *models.Store) error
}

// ContributionStore persists contributions of a single table.
type ContributionStore interface {
	FindContributions(ctx context.Context, q models.ContributionQuery) ([]*models.Contribution, error)
	InsertContribution(ctx context.Context, c *models.Contribution) error

	// UpdateContributionsStatus sets status and note on every listed contribution
	// that is still pending. It returns the ids actually changed.
	UpdateContributionsStatus(ctx context.Context, ids []id.ContributionID, status models.Status, note string, at time.Time) ([]id.ContributionID, error)

	// DeleteContributionsBefore hard-deletes contributions created before cutoff.
	DeleteContributionsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// ListOffers returns contributions joined with product and store names, newest first.
	ListOffers(ctx context.Context, q models.OfferQuery) ([]*models.Offer, error)
}

// Transactor runs fn so that every store call made with the derived context
// commits or rolls back together.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
