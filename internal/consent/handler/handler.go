package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/consent/models"
	"yeirin/internal/platform/validation"
	dErrors "yeirin/pkg/domain-errors"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/consent_mock.go -package=mocks Service
type Service interface {
	Grant(ctx context.Context, req models.GrantRequest) (*models.ListResponse, error)
	Revoke(ctx context.Context, req models.RevokeRequest) (*models.ListResponse, error)
	List(ctx context.Context, childID string) (*models.ListResponse, error)
}

// Handler serves the guardian consent endpoints.
type Handler struct {
	service   Service
	validator *validation.Validator
	logger    *slog.Logger
}

func New(service Service, validator *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: service, validator: validator, logger: logger}
}

// Register mounts guardian-only routes; callers add RequireRole(guardian).
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/consents", h.HandleGrant)
	r.Post("/api/v1/consents/revoke", h.HandleRevoke)
	r.Get("/api/v1/consents", h.HandleList)
}

func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	var req models.GrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.Grant(r.Context(), req)
	if err != nil {
		h.fail(w, r, "grant consent failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	var req models.RevokeRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.Revoke(r.Context(), req)
	if err != nil {
		h.fail(w, r, "revoke consent failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	childID := r.URL.Query().Get("childId")
	if childID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "childId query parameter is required"))
		return
	}
	resp, err := h.service.List(r.Context(), childID)
	if err != nil {
		h.fail(w, r, "list consents failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := httputil.DecodeJSON(r, req); err != nil {
		httputil.WriteError(w, err)
		return false
	}
	sanitize(req)
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}
