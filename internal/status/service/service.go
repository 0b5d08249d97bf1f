// Package service tracks the last known status of each contribution and
// notifies subscribers when it changes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ofertas/internal/status/metrics"
	"ofertas/internal/status/models"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/platform/sentinel"
	"ofertas/pkg/requestcontext"
)

// DefaultRetention is how long a status record is kept after its last update.
const DefaultRetention = 24 * time.Hour

// Store persists status records.
type Store interface {
	Set(ctx context.Context, rec models.Record) error
	Get(ctx context.Context, id string) (models.Record, error)
	List(ctx context.Context) ([]models.Record, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Publisher delivers status changes.
type Publisher interface {
	Publish(ctx context.Context, ev models.StatusChanged)
}

type Service struct {
	store     Store
	publisher Publisher
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("status store is required")
	}
	s := &Service{
		store:     store,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetStatus persists the new status, then publishes it.
func (s *Service) SetStatus(ctx context.Context, contributionID string, status string) error {
	if contributionID == "" {
		return dErrors.New(dErrors.CodeValidation, "contribution id is required")
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid status")
	}

	rec := models.Record{
		ID:        contributionID,
		Status:    st,
		UpdatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Set(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save status")
	}
	if s.metrics != nil {
		s.metrics.IncrementWrite(string(st))
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, models.StatusChanged(rec))
	}
	return nil
}

// GetStatus returns the recorded status, or pending for an unknown id.
func (s *Service) GetStatus(ctx context.Context, contributionID string) (models.Record, error) {
	rec, err := s.store.Get(ctx, contributionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Record{ID: contributionID, Status: models.StatusPending}, nil
	}
	if err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load status")
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context) ([]models.Record, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list statuses")
	}
	return recs, nil
}

// Cleanup removes records not updated within the retention period.
func (s *Service) Cleanup(ctx context.Context, now time.Time) (int, error) {
	removed, err := s.store.DeleteOlderThan(ctx, now.Add(-s.retention))
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.AddExpired(removed)
	}
	if removed > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "expired contribution statuses removed", "count", removed)
	}
	return removed, nil
}
