// Package reaper runs periodic cleanup of expired contributions, status
// records and idle limiter entries.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ofertas/pkg/requestcontext"
)

// DefaultInterval matches the hourly cleanup of the public endpoints.
const DefaultInterval = time.Hour

// Sweep removes whatever expired as of now and reports how many items went.
type Sweep struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int, error)
}

type Metrics struct {
	Removed  *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Removed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_reaper_removed_total",
			Help: "Total number of items removed by sweep",
		}, []string{"sweep"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_reaper_failures_total",
			Help: "Total number of failed sweeps",
		}, []string{"sweep"}),
	}
}

type Reaper struct {
	interval time.Duration
	sweeps   []Sweep
	logger   *slog.Logger
	metrics  *Metrics
	clock    func() time.Time
}

type Option func(*Reaper)

func WithInterval(d time.Duration) Option {
	return func(r *Reaper) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reaper) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Reaper) {
		r.metrics = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(r *Reaper) {
		r.clock = clock
	}
}

func New(sweeps []Sweep, opts ...Option) (*Reaper, error) {
	if len(sweeps) == 0 {
		return nil, errors.New("at least one sweep is required")
	}
	for _, s := range sweeps {
		if s.Name == "" || s.Run == nil {
			return nil, errors.New("sweep name and func are required")
		}
	}
	r := &Reaper{
		interval: DefaultInterval,
		sweeps:   sweeps,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run sweeps every interval until ctx is cancelled. A failed sweep is logged
// and retried on the next tick.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = r.RunOnce(ctx, r.clock())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce runs every sweep with the same now and returns the total removed.
// All sweeps run even if one fails; the errors are joined.
func (r *Reaper) RunOnce(ctx context.Context, now time.Time) (int, error) {
	ctx = requestcontext.WithTime(ctx, now)
	total := 0
	var errs []error
	for _, s := range r.sweeps {
		removed, err := s.Run(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", s.Name, err))
			if r.metrics != nil {
				r.metrics.Failures.WithLabelValues(s.Name).Inc()
			}
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "sweep failed", "sweep", s.Name, "error", err)
			}
			continue
		}
		total += removed
		if r.metrics != nil {
			r.metrics.Removed.WithLabelValues(s.Name).Add(float64(removed))
		}
		if removed > 0 && r.logger != nil {
			r.logger.InfoContext(ctx, "sweep completed", "sweep", s.Name, "removed", removed)
		}
	}
	return total, errors.Join(errs...)
}
