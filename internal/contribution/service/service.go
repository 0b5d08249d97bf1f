// Package service orchestrates a contribution submission:
// validate, rate limit, optional conflict precheck, resolve entities,
// run consensus, then publish every affected status.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ofertas/internal/contribution/consensus"
	"ofertas/internal/contribution/metrics"
	"ofertas/internal/contribution/models"
	"ofertas/internal/contribution/ports"
	"ofertas/internal/contribution/resolver"
	"ofertas/internal/contribution/validation"
	ratelimit "ofertas/internal/ratelimit/models"
	id "ofertas/pkg/domain"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/requestcontext"
)

const (
	noteSpam            = "flagged as possible spam"
	noteConflictConfirm = "price conflict confirmed by contributor"
)

// RateLimiter admits or denies one attempt of an action.
type RateLimiter interface {
	Enforce(ctx context.Context, userID id.UserID, action ratelimit.Action) error
}

// EntityResolver maps names onto canonical products and stores.
type EntityResolver interface {
	ResolveProduct(ctx context.Context, in resolver.ProductInput) (*models.Product, error)
	ResolveStore(ctx context.Context, name string) (*models.Store, error)
}

// Engine decides and stores contributions for one table.
type Engine interface {
	Submit(ctx context.Context, sub models.Submission) (*consensus.Result, error)
	CheckConflict(ctx context.Context, c consensus.ConflictCandidate) (*consensus.ConflictAdvisory, error)
}

// StatusPublisher records status changes so other components can react.
type StatusPublisher interface {
	SetStatus(ctx context.Context, contributionID string, status string) error
}

// Table bundles what the service needs to submit into one contribution table.
type Table struct {
	Name   models.Table
	Engine Engine
	Store  ports.ContributionStore
	Action ratelimit.Action
}

type Service struct {
	validator  *validation.Validator
	limiter    RateLimiter
	resolver   EntityResolver
	daily      Table
	cumulative Table
	status     StatusPublisher
	loc        *time.Location
	logger     *slog.Logger
	metrics    *metrics.Metrics
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

// WithStatusPublisher pushes every accepted and cascaded status to p.
func WithStatusPublisher(p StatusPublisher) Option {
	return func(s *Service) {
		s.status = p
	}
}

// WithCumulativeTable enables submissions into the all-time contribution table.
func WithCumulativeTable(t Table) Option {
	return func(s *Service) {
		s.cumulative = t
	}
}

// WithLocation sets the time zone whose calendar day bounds "today" listings.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func New(
	validator *validation.Validator,
	limiter RateLimiter,
	resolver EntityResolver,
	daily Table,
	opts ...Option,
) (*Service, error) {
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if resolver == nil {
		return nil, errors.New("entity resolver is required")
	}
	if daily.Engine == nil || daily.Store == nil {
		return nil, errors.New("daily offers engine and store are required")
	}
	svc := &Service{
		validator: validator,
		limiter:   limiter,
		resolver:  resolver,
		daily:     daily,
		loc:       time.Local,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitDailyOffer runs a submission against the daily offers table and
// returns the stored offer.
func (s *Service) SubmitDailyOffer(ctx context.Context, req models.SubmitRequest) (*models.Offer, error) {
	res, product, shop, err := s.submit(ctx, s.daily, req)
	if err != nil {
		return nil, err
	}
	c := res.Contribution
	return &models.Offer{
		ID:              c.ID,
		UserID:          c.UserID,
		ContributorName: c.ContributorName,
		ProductID:       product.ID,
		ProductName:     product.Name,
		StoreID:         shop.ID,
		StoreName:       shop.Name,
		Price:           c.Price,
		City:            c.City,
		State:           c.State,
		Status:          c.Status,
		CreatedAt:       c.CreatedAt,
	}, nil
}

// SubmitContribution runs a submission against the cumulative table.
func (s *Service) SubmitContribution(ctx context.Context, req models.SubmitRequest) (*consensus.Result, error) {
	if s.cumulative.Engine == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "cumulative contributions are not enabled")
	}
	res, _, _, err := s.submit(ctx, s.cumulative, req)
	return res, err
}

// CheckConflict validates req and reports a conflicting recent offer, if any.
func (s *Service) CheckConflict(ctx context.Context, req models.SubmitRequest) (*consensus.ConflictAdvisory, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	valid, err := s.validator.Validate(toRaw(userID, req))
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Enforce(ctx, userID, ratelimit.ActionConflictCheck); err != nil {
		return nil, err
	}
	adv, err := s.daily.Engine.CheckConflict(ctx, candidateFrom(valid))
	if err != nil {
		return nil, err
	}
	if adv != nil && s.metrics != nil {
		s.metrics.IncrementConflict("advised")
	}
	return adv, nil
}

// ListDailyOffers returns today's approved offers, newest first.
func (s *Service) ListDailyOffers(ctx context.Context, city, state string) ([]*models.Offer, error) {
	day := models.DayWindowAt(requestcontext.Now(ctx), s.loc)
	offers, err := s.daily.Store.ListOffers(ctx, models.OfferQuery{
		City:     validation.SanitizeText(city),
		State:    validation.SanitizeText(state),
		Since:    day.Start,
		Until:    day.End,
		Statuses: []models.Status{models.StatusApproved},
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list offers")
	}
	return offers, nil
}

func (s *Service) submit(ctx context.Context, table Table, req models.SubmitRequest) (*consensus.Result, *models.Product, *models.Store, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		return nil, nil, nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	valid, err := s.validator.Validate(toRaw(userID, req))
	if err != nil {
		s.countRejected(table, metrics.OutcomeInvalid)
		return nil, nil, nil, err
	}
	if err := s.limiter.Enforce(ctx, userID, table.Action); err != nil {
		s.countRejected(table, metrics.OutcomeLimited)
		return nil, nil, nil, err
	}

	var notes []string
	if valid.Spam.IsSpam {
		notes = append(notes, noteSpam)
		if s.metrics != nil {
			s.metrics.IncrementSpamFlagged()
		}
		s.logger.WarnContext(ctx, "contribution flagged as possible spam",
			"user_id", userID.String(),
			"confidence", valid.Spam.Confidence,
			"reasons", valid.Spam.Reasons,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	switch {
	case req.ConfirmConflict:
		notes = append(notes, noteConflictConfirm)
		if s.metrics != nil {
			s.metrics.IncrementConflict("overridden")
		}
	case req.Precheck:
		adv, err := table.Engine.CheckConflict(ctx, candidateFrom(valid))
		if err != nil {
			return nil, nil, nil, err
		}
		if adv != nil {
			if s.metrics != nil {
				s.metrics.IncrementConflict("rejected")
			}
			s.countRejected(table, metrics.OutcomeConflict)
			return nil, nil, nil, &consensus.ConflictError{Advisory: *adv}
		}
	}

	product, err := s.resolver.ResolveProduct(ctx, resolver.ProductInput{
		Name:     valid.ProductName,
		Quantity: valid.Quantity,
		Unit:     valid.Unit,
		Category: valid.Category,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	shop, err := s.resolver.ResolveStore(ctx, valid.StoreName)
	if err != nil {
		return nil, nil, nil, err
	}

	contributorName := requestcontext.DisplayName(ctx)
	if contributorName == "" {
		contributorName = userID.String()
	}
	res, err := table.Engine.Submit(ctx, models.Submission{
		UserID:          userID,
		ContributorName: contributorName,
		Product:         product,
		Store:           shop,
		Price:           valid.Price,
		Quantity:        valid.Quantity,
		Unit:            valid.Unit,
		City:            valid.City,
		State:           valid.State,
		Notes:           notes,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	s.publish(ctx, res)
	return res, product, shop, nil
}

// publish pushes the new and cascaded statuses. The contribution is already
// stored, so failures are logged rather than returned.
func (s *Service) publish(ctx context.Context, res *consensus.Result) {
	if s.status == nil {
		return
	}
	updates := map[string]models.Status{res.Contribution.ID.String(): res.Contribution.Status}
	for _, cid := range res.Cascaded {
		updates[cid.String()] = models.StatusApproved
	}
	for cid, st := range updates {
		if err := s.status.SetStatus(ctx, cid, string(st)); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish contribution status",
				"contribution_id", cid,
				"status", st,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
}

// countRejected records outcomes decided before the engine runs.
func (s *Service) countRejected(table Table, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementSubmission(string(table.Name), outcome)
}

func toRaw(userID id.UserID, req models.SubmitRequest) validation.RawContribution {
	return validation.RawContribution{
		UserID:      userID.String(),
		ProductName: req.ProductName,
		StoreName:   req.StoreName,
		City:        req.City,
		State:       req.State,
		Unit:        req.Unit,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
}

func candidateFrom(v *validation.Sanitized) consensus.ConflictCandidate {
	return consensus.ConflictCandidate{
		UserID:      v.UserID,
		ProductName: v.ProductName,
		StoreName:   v.StoreName,
		City:        v.City,
		Price:       v.Price,
	}
}
