package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/platform/validation"
	"yeirin/internal/review/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, institutionID id.InstitutionID, req models.CreateRequest) (*models.ReviewResponse, error)
	List(ctx context.Context, institutionID id.InstitutionID) (*models.ListResponse, error)
}

type Handler struct {
	service   Service
	validator *validation.Validator
	logger    *slog.Logger
}

func New(service Service, validator *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: service, validator: validator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/institutions/{id}/reviews", h.HandleList)
}

// RegisterGuardian mounts the write route; callers add RequireRole(guardian).
func (h *Handler) RegisterGuardian(r chi.Router) {
	r.Post("/api/v1/institutions/{id}/reviews", h.HandleCreate)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	institutionID, err := id.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.Create(r.Context(), institutionID, req)
	if err != nil {
		h.fail(w, r, "create review failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	institutionID, err := id.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.List(r.Context(), institutionID)
	if err != nil {
		h.fail(w, r, "list reviews failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}
