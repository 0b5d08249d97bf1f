package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ofertas/internal/contribution/consensus"
	"ofertas/internal/contribution/models"
	dErrors "ofertas/pkg/domain-errors"
	"ofertas/pkg/platform/httputil"
	"ofertas/pkg/platform/middleware/auth"
	"ofertas/pkg/requestcontext"
)

// Service defines the contribution operations exposed over HTTP.
type Service interface {
	SubmitDailyOffer(ctx context.Context, req models.SubmitRequest) (*models.Offer, error)
	SubmitContribution(ctx context.Context, req models.SubmitRequest) (*consensus.Result, error)
	CheckConflict(ctx context.Context, req models.SubmitRequest) (*consensus.ConflictAdvisory, error)
	ListDailyOffers(ctx context.Context, city, state string) ([]*models.Offer, error)
}

// Handler handles the contribution endpoints.
type Handler struct {
	logger       *slog.Logger
	svc          Service
	jwtValidator auth.JWTValidator
}

func New(svc Service, logger *slog.Logger, jwtValidator auth.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		svc:          svc,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the public listing and the authenticated submission routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/contributions/daily-offers", h.HandleListDailyOffers)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/contributions/daily-offers", h.HandleSubmitDailyOffer)
		r.Post("/contributions/daily-offers/conflicts", h.HandleCheckConflict)
		r.Post("/contributions", h.HandleSubmitContribution)
	})
}

func (h *Handler) HandleListDailyOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	offers, err := h.svc.ListDailyOffers(ctx, q.Get("city"), q.Get("state"))
	if err != nil {
		h.writeError(ctx, w, err, "failed to list daily offers")
		return
	}
	out := make([]models.OfferResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, toOfferResponse(o))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleSubmitDailyOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	offer, err := h.svc.SubmitDailyOffer(ctx, req)
	if err != nil {
		h.writeError(ctx, w, err, "failed to submit daily offer")
		return
	}
	h.logger.InfoContext(ctx, "daily offer submitted",
		"contribution_id", offer.ID.String(),
		"status", offer.Status,
		"user_id", requestcontext.UserID(ctx).String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, toOfferResponse(offer))
}

func (h *Handler) HandleSubmitContribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.svc.SubmitContribution(ctx, req)
	if err != nil {
		h.writeError(ctx, w, err, "failed to submit contribution")
		return
	}
	resp := models.ContributionResponse{
		ID:     res.Contribution.ID.String(),
		Status: string(res.Contribution.Status),
	}
	for _, cid := range res.Cascaded {
		resp.Cascaded = append(resp.Cascaded, cid.String())
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleCheckConflict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	adv, err := h.svc.CheckConflict(ctx, req)
	if err != nil {
		h.writeError(ctx, w, err, "failed to check price conflict")
		return
	}
	if adv == nil {
		httputil.WriteJSON(w, http.StatusOK, models.ConflictResponse{Conflict: false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConflictResponse(*adv, ""))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (models.SubmitRequest, bool) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "invalid contribution request body",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	return req, true
}

// writeError sends a price conflict as its advisory and everything else
// through the shared error envelope.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := requestcontext.RequestID(ctx)

	var conflict *consensus.ConflictError
	if errors.As(err, &conflict) {
		h.logger.InfoContext(ctx, "submission held back by price conflict",
			"price_difference_percent", conflict.Advisory.PriceDifferencePercent,
			"request_id", requestID,
		)
		httputil.WriteJSON(w, http.StatusConflict, toConflictResponse(conflict.Advisory, conflict.Error()))
		return
	}

	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestID)
	} else {
		h.logger.WarnContext(ctx, msg, "error", err.Error(), "request_id", requestID)
	}
	httputil.WriteError(w, err)
}

func toOfferResponse(o *models.Offer) models.OfferResponse {
	return models.OfferResponse{
		ID:              o.ID.String(),
		ProductName:     o.ProductName,
		Price:           o.Price.InexactFloat64(),
		StoreName:       o.StoreName,
		City:            o.City,
		State:           o.State,
		ContributorName: o.ContributorName,
		UserID:          o.UserID.String(),
		Timestamp:       o.CreatedAt.UTC().Format(time.RFC3339),
		Verified:        o.Verified(),
	}
}

func toConflictResponse(adv consensus.ConflictAdvisory, msg string) models.ConflictResponse {
	return models.ConflictResponse{
		Conflict:               true,
		Error:                  msg,
		ConflictingPrice:       adv.ConflictingPrice.InexactFloat64(),
		ConflictingContributor: adv.ConflictingContributor,
		PriceDifferencePercent: adv.PriceDifferencePercent,
	}
}
