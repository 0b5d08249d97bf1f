// Package consensus decides the fate of a contribution: duplicate rejection,
// corroboration-based approval with cascade, and the advisory price conflict
// check.
//
// The approval path only looks at the presence of another user's
// contribution for the same (product, store) in the current calendar day; it
// never compares prices. Price divergence is reported by CheckConflict,
// which callers run as a separate, softer step.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ofertas/internal/contribution/metrics"
	"ofertas/internal/contribution/models"
	"ofertas/internal/contribution/ports"
	"ofertas/internal/normalize"
	id "ofertas/pkg/domain"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/platform/sentinel"
	platformstrings "ofertas/pkg/platform/strings"
	"ofertas/pkg/requestcontext"
)

// DefaultConflictTolerance is the relative price difference above which two
// offers conflict.
const DefaultConflictTolerance = 0.30

// Result is the outcome of an accepted submission.
type Result struct {
	Contribution *models.Contribution
	// Cascaded lists previously pending contributions approved by this one.
	Cascaded []id.ContributionID
}

type Engine struct {
	table     models.Table
	store     ports.ContributionStore
	scope     models.DuplicateScope
	locker    Locker
	tx        ports.Transactor
	loc       *time.Location
	tolerance float64
	match     normalize.MatchStrategy
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Engine)

func WithScope(scope models.DuplicateScope) Option {
	return func(e *Engine) {
		e.scope = scope
	}
}

// WithLocker serializes check-then-insert for one pair. Without it two
// concurrent first submissions can both be stored as pending.
func WithLocker(l Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithTransactor makes the insert and the cascade update one unit of work.
func WithTransactor(tx ports.Transactor) Option {
	return func(e *Engine) {
		if tx != nil {
			e.tx = tx
		}
	}
}

// WithLocation sets the time zone whose midnight bounds the day window.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithConflictTolerance(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.tolerance = t
		}
	}
}

func WithMatchStrategy(m normalize.MatchStrategy) Option {
	return func(e *Engine) {
		if m != nil {
			e.match = m
		}
	}
}

// WithRetention sets the rolling window CheckConflict looks back over.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.retention = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New creates an engine bound to one contribution table.
func New(table models.Table, store ports.ContributionStore, opts ...Option) (*Engine, error) {
	if !table.IsValid() {
		return nil, fmt.Errorf("unknown contribution table %q", table)
	}
	if store == nil {
		return nil, errors.New("contribution store is required")
	}
	e := &Engine{
		table:     table,
		store:     store,
		scope:     models.ScopePerDay,
		locker:    NoopLocker{},
		tx:        passthroughTx{},
		loc:       time.Local,
		tolerance: DefaultConflictTolerance,
		match:     normalize.ContainsEitherDirection,
		retention: 24 * time.Hour,
		tracer:    otel.Tracer("ofertas/consensus"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Table returns the table this engine writes to.
func (e *Engine) Table() models.Table {
	return e.table
}

// Location returns the time zone bounding the day window.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Submit stores a contribution, approving it when another user already
// contributed the same pair today, and approving every pending sibling in
// the same step. A second contribution by the same user for the same pair
// within the duplicate scope is rejected.
func (e *Engine) Submit(ctx context.Context, sub models.Submission) (*Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "consensus.Submit", trace.WithAttributes(
		attribute.String("contribution.table", string(e.table)),
		attribute.String("contribution.scope", e.scope.String()),
	))
	defer span.End()

	result, outcome, err := e.submit(ctx, sub)
	if e.metrics != nil {
		e.metrics.IncrementSubmission(string(e.table), outcome)
		e.metrics.ObserveSubmit(string(e.table), time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("contribution.id", result.Contribution.ID.String()),
		attribute.String("contribution.status", string(result.Contribution.Status)),
		attribute.Int("contribution.cascaded", len(result.Cascaded)),
	)
	return result, nil
}

func (e *Engine) submit(ctx context.Context, sub models.Submission) (*Result, string, error) {
	if sub.UserID.IsZero() {
		return nil, metrics.OutcomeInvalid, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	if sub.Product == nil || sub.Store == nil {
		return nil, metrics.OutcomeInvalid, dErrors.New(dErrors.CodeBadRequest, "product and store must be resolved")
	}

	now := requestcontext.Now(ctx)
	day := models.DayWindowAt(now, e.loc)

	unlock, err := e.locker.Lock(ctx, e.lockKey(sub, day))
	if err != nil {
		if errors.Is(err, sentinel.ErrLockNotObtained) {
			return nil, metrics.OutcomeError, dErrors.Wrap(err, dErrors.CodeConflict, "another submission for this offer is in progress, retry")
		}
		return nil, metrics.OutcomeError, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire submission lock")
	}
	defer unlock()

	if err := e.checkDuplicate(ctx, sub, day); err != nil {
		if dErrors.HasCode(err, dErrors.CodeDuplicateSubmission) {
			return nil, metrics.OutcomeDuplicate, err
		}
		return nil, metrics.OutcomeError, err
	}

	corroborating, err := e.store.FindContributions(ctx, models.ContributionQuery{
		ProductID:     sub.Product.ID,
		StoreID:       sub.Store.ID,
		Window:        &day,
		ExcludeUserID: sub.UserID,
		Statuses:      models.NonRejected(),
	})
	if err != nil {
		return nil, metrics.OutcomeError, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up corroborating contributions")
	}

	c := &models.Contribution{
		ID:              id.NewContributionID(),
		UserID:          sub.UserID,
		ContributorName: sub.ContributorName,
		ProductID:       sub.Product.ID,
		StoreID:         sub.Store.ID,
		Price:           sub.Price,
		Quantity:        sub.Quantity,
		Unit:            sub.Unit,
		City:            sub.City,
		State:           sub.State,
		Status:          models.StatusPending,
		Notes:           joinNotes(sub.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var siblings []id.ContributionID
	if len(corroborating) > 0 {
		c.Status = models.StatusApproved
		for _, other := range corroborating {
			if other.Status == models.StatusPending {
				siblings = append(siblings, other.ID)
			}
		}
	}

	var cascaded []id.ContributionID
	err = e.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := e.store.InsertContribution(ctx, c); err != nil {
			return err
		}
		if len(siblings) == 0 {
			return nil
		}
		changed, err := e.store.UpdateContributionsStatus(ctx, siblings, models.StatusApproved,
			"approved by corroboration of "+c.ID.String(), now)
		cascaded = changed
		return err
	})
	if err != nil {
		return nil, metrics.OutcomeError, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store contribution")
	}

	if e.metrics != nil && len(cascaded) > 0 {
		e.metrics.AddCascadeApprovals(string(e.table), len(cascaded))
	}
	if e.logger != nil {
		e.logger.InfoContext(ctx, "contribution accepted",
			"table", e.table,
			"contribution_id", c.ID.String(),
			"user_id", c.UserID.String(),
			"status", c.Status,
			"cascaded", len(cascaded),
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	outcome := metrics.OutcomePending
	if c.Status == models.StatusApproved {
		outcome = metrics.OutcomeApproved
	}
	return &Result{Contribution: c, Cascaded: cascaded}, outcome, nil
}

func (e *Engine) checkDuplicate(ctx context.Context, sub models.Submission, day models.DayWindow) error {
	q := models.ContributionQuery{
		ProductID: sub.Product.ID,
		StoreID:   sub.Store.ID,
		UserID:    sub.UserID,
		Statuses:  models.NonRejected(),
	}
	if e.scope == models.ScopePerDay {
		q.Window = &day
	}
	existing, err := e.store.FindContributions(ctx, q)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for duplicate contribution")
	}
	if len(existing) == 0 {
		return nil
	}
	msg := "you already contributed this price today"
	if e.scope == models.ScopeAllTime {
		msg = "you already contributed this price"
	}
	return dErrors.New(dErrors.CodeDuplicateSubmission, msg)
}

func (e *Engine) lockKey(sub models.Submission, day models.DayWindow) string {
	return fmt.Sprintf("%s:%s:%s:%s", e.table, sub.Product.ID, sub.Store.ID, day.Key())
}

func joinNotes(notes []string) string {
	return platformstrings.JoinUnique(notes, "; ")
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
