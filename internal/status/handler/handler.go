package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ofertas/internal/status/models"
	"ofertas/pkg/platform/httputil"
)

// Service is the read side of the status tracker.
type Service interface {
	GetStatus(ctx context.Context, contributionID string) (models.Record, error)
	List(ctx context.Context) ([]models.Record, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// StatusResponse is one status record on the wire.
type StatusResponse struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type ListResponse struct {
	Statuses []StatusResponse `json:"statuses"`
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/contributions/status", h.HandleList)
	r.Get("/contributions/status/{id}", h.HandleGet)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.svc.GetStatus(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get contribution status", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(rec))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs, err := h.svc.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list contribution statuses", "error", err)
		httputil.WriteError(w, err)
		return
	}
	out := ListResponse{Statuses: make([]StatusResponse, 0, len(recs))}
	for _, rec := range recs {
		out.Statuses = append(out.Statuses, toResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func toResponse(rec models.Record) StatusResponse {
	resp := StatusResponse{ID: rec.ID, Status: string(rec.Status)}
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}
