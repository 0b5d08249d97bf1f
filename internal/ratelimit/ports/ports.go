// Package ports defines the storage interface consumed by the rate limiter.
package ports

import (
	"context"
	"time"

	"ofertas/internal/ratelimit/models"
)

// EntryStore persists per-key limiter state.
type EntryStore interface {
	// Update applies fn to the entry for key atomically with respect to other
	// updates of the same key. The entry is persisted only if fn returns nil.
	Update(ctx context.Context, key string, fn func(*models.Entry) error) error

	// Get returns the current entry for key, or the zero entry.
	Get(ctx context.Context, key string) (models.Entry, error)

	// Evict drops entries idle for longer than horizon and returns how many were removed.
	Evict(ctx context.Context, now time.Time, horizon time.Duration) (int, error)
}
