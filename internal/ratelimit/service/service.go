// Package service enforces per-user submission limits.
//
// Every call evaluates, in order: an active block, the burst guard, the
// hourly guard, then the action's policy. Guards deny without blocking;
// exceeding the policy starts a block and clears the attempt log.
// Denied attempts are never recorded.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ofertas/internal/ratelimit/metrics"
	"ofertas/internal/ratelimit/models"
	"ofertas/internal/ratelimit/ports"
	id "ofertas/pkg/domain"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/requestcontext"
)

type Service struct {
	entries  ports.EntryStore
	policies map[models.Action]Policy
	guards   []models.Guard
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Policy is re-exported so callers configure the limiter without importing models.
type Policy = models.Policy

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

// WithPolicy overrides the policy for one action.
func WithPolicy(action models.Action, p Policy) Option {
	return func(s *Service) {
		s.policies[action] = p
	}
}

// WithPolicies overrides several policies at once, typically from a policy file.
func WithPolicies(policies map[models.Action]Policy) Option {
	return func(s *Service) {
		for action, p := range policies {
			s.policies[action] = p
		}
	}
}

// WithGuards replaces the burst and hourly guards.
func WithGuards(guards []models.Guard) Option {
	return func(s *Service) {
		s.guards = guards
	}
}

// DefaultPolicies returns the built-in per-action limits.
func DefaultPolicies() map[models.Action]Policy {
	return map[models.Action]Policy{
		models.ActionDailyOffer:        models.DefaultPolicy(),
		models.ActionPriceContribution: models.DefaultPolicy(),
		models.ActionConflictCheck:     {MaxAttempts: 30, Window: time.Hour},
	}
}

// Retention is how long an entry must outlive its last write so that no
// window or block is cut short. Entry stores with expiry size their TTL from it.
func Retention(policies map[models.Action]Policy, guards []models.Guard) time.Duration {
	var d time.Duration
	for _, p := range policies {
		d = max(d, p.Window, p.Block)
	}
	for _, g := range guards {
		d = max(d, g.Window)
	}
	return d
}

func New(entries ports.EntryStore, opts ...Option) (*Service, error) {
	if entries == nil {
		return nil, errors.New("entry store is required")
	}
	svc := &Service{
		entries:  entries,
		policies: DefaultPolicies(),
		guards:   models.DefaultGuards(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	for action, p := range svc.policies {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("policy %s: %w", action, err)
		}
	}
	return svc, nil
}

// CheckAndRecord decides whether userID may perform action now and, if so,
// records the attempt.
func (s *Service) CheckAndRecord(ctx context.Context, userID id.UserID, action models.Action) (*models.Decision, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required for rate limiting")
	}
	now := requestcontext.Now(ctx)
	policy := s.policyFor(action)
	horizon := s.horizon(policy)

	var decision models.Decision
	err := s.entries.Update(ctx, models.Key(userID.String(), action), func(e *models.Entry) error {
		decision = s.evaluate(e, now, policy, horizon)
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check failed")
	}

	s.observe(ctx, userID, action, decision)
	return &decision, nil
}

// Enforce is CheckAndRecord translated into a rate_limited error on denial.
func (s *Service) Enforce(ctx context.Context, userID id.UserID, action models.Action) error {
	decision, err := s.CheckAndRecord(ctx, userID, action)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return dErrors.New(dErrors.CodeRateLimited, decision.Message)
	}
	return nil
}

// Evict removes idle limiter entries. It backs the reaper's ratelimit sweep.
func (s *Service) Evict(ctx context.Context, now time.Time) (int, error) {
	horizon := time.Duration(0)
	for _, p := range s.policies {
		horizon = max(horizon, s.horizon(p))
	}
	n, err := s.entries.Evict(ctx, now, horizon)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.AddEvicted(n)
	}
	return n, nil
}

func (s *Service) evaluate(e *models.Entry, now time.Time, policy Policy, horizon time.Duration) models.Decision {
	e.Prune(now, horizon)

	if e.Blocked(now) {
		return models.Decision{
			Rule:       models.RuleBlocked,
			Message:    "submissions temporarily blocked after too many attempts",
			RetryAfter: e.BlockedUntil.Sub(now),
		}
	}
	e.BlockedUntil = time.Time{}

	for _, g := range s.guards {
		if e.CountSince(now, g.Window) >= g.Limit {
			return models.Decision{
				Rule:       g.Rule,
				Message:    g.Message,
				RetryAfter: retryAfter(e, now, g.Window),
			}
		}
	}

	if e.CountSince(now, policy.Window) >= policy.MaxAttempts {
		d := models.Decision{
			Rule:       models.RulePolicy,
			Message:    fmt.Sprintf("limit of %d attempts per %s exceeded", policy.MaxAttempts, policy.Window),
			RetryAfter: retryAfter(e, now, policy.Window),
		}
		if policy.Block > 0 {
			e.BlockedUntil = now.Add(policy.Block)
			e.Timestamps = nil
			d.RetryAfter = policy.Block
			d.BlockStarted = true
		}
		return d
	}

	e.Timestamps = append(e.Timestamps, now)
	return models.Decision{Allowed: true}
}

func (s *Service) observe(ctx context.Context, userID id.UserID, action models.Action, d models.Decision) {
	if d.Allowed {
		if s.metrics != nil {
			s.metrics.IncrementAllowed(string(action))
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementDenied(string(action), d.Rule)
		if d.BlockStarted {
			s.metrics.IncrementBlocks()
		}
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "rate limit exceeded",
			"user_id", userID.String(),
			"action", action,
			"rule", d.Rule,
			"retry_after", d.RetryAfter,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) policyFor(action models.Action) Policy {
	if p, ok := s.policies[action]; ok {
		return p
	}
	return models.DefaultPolicy()
}

func (s *Service) horizon(p Policy) time.Duration {
	h := p.Window
	for _, g := range s.guards {
		h = max(h, g.Window)
	}
	return h
}

// retryAfter is the time until the oldest attempt inside window ages out.
func retryAfter(e *models.Entry, now time.Time, window time.Duration) time.Duration {
	cutoff := now.Add(-window)
	for _, ts := range e.Timestamps {
		if ts.After(cutoff) {
			return ts.Add(window).Sub(now)
		}
	}
	return window
}
