// Package resolver maps submitted product and store names onto canonical entities.
//
// A candidate is reused only when its normalized name equals the normalized
// submission exactly (and, for products, quantity and unit match too).
// Otherwise a new entity is created with the raw submitted name. Existing
// names are never rewritten, so near-duplicates accumulate as separate
// entities unless they normalize identically.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"ofertas/internal/contribution/models"
	"ofertas/internal/contribution/ports"
	"ofertas/internal/normalize"
	id "ofertas/pkg/domain"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/requestcontext"
)

type Resolver struct {
	entities ports.EntityStore
	logger   *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func New(entities ports.EntityStore, opts ...Option) (*Resolver, error) {
	if entities == nil {
		return nil, errors.New("entity store is required")
	}
	r := &Resolver{entities: entities}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ProductInput is the product part of a submission. Zero values take the
// model defaults.
type ProductInput struct {
	Name     string
	Quantity *decimal.Decimal
	Unit     string
	Category string
}

// ResolveProduct returns the product matching name, quantity and unit, creating it when absent.
func (r *Resolver) ResolveProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	quantity := decimal.NewFromInt(1)
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = models.DefaultUnit
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = models.DefaultCategory
	}
	key := normalize.Normalize(in.Name)

	candidates, err := r.entities.FindProducts(ctx, in.Name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search products")
	}
	for _, c := range candidates {
		if normalize.Normalize(c.Name) == key && c.Quantity.Equal(quantity) && c.Unit == unit {
			return c, nil
		}
	}

	p := &models.Product{
		ID:             id.NewProductID(),
		Name:           in.Name,
		NormalizedName: key,
		Quantity:       quantity,
		Unit:           unit,
		Category:       category,
		CreatedAt:      requestcontext.Now(ctx),
	}
	if err := r.entities.CreateProduct(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create product")
	}
	r.logCreated(ctx, "product created", p.ID.String(), p.Name)
	return p, nil
}

// ResolveStore returns the store matching name, creating it when absent.
func (r *Resolver) ResolveStore(ctx context.Context, name string) (*models.Store, error) {
	key := normalize.Normalize(name)

	candidates, err := r.entities.FindStores(ctx, name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search stores")
	}
	for _, c := range candidates {
		if normalize.Normalize(c.Name) == key {
			return c, nil
		}
	}

	st := &models.Store{
		ID:             id.NewStoreID(),
		Name:           name,
		NormalizedName: key,
		CreatedAt:      requestcontext.Now(ctx),
	}
	if err := r.entities.CreateStore(ctx, st); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create store")
	}
	r.logCreated(ctx, "store created", st.ID.String(), st.Name)
	return st, nil
}

func (r *Resolver) logCreated(ctx context.Context, msg, entityID, name string) {
	if r.logger == nil {
		return
	}
	r.logger.InfoContext(ctx, msg,
		"id", entityID,
		"name", name,
		"request_id", requestcontext.RequestID(ctx),
	)
}
