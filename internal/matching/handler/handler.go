package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/matching/models"
	"yeirin/internal/platform/validation"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

// Service is the use case the handler delegates to.
type Service interface {
	RequestCounselorRecommendation(ctx context.Context, rawText string) (*models.RecommendationResponse, error)
}

type Handler struct {
	service   Service
	validator *validation.Validator
	logger    *slog.Logger
}

func New(service Service, validator *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: service, validator: validator, logger: logger}
}

// Register mounts the matching routes. Callers wrap r with auth and rate limiting.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/matching/recommendations", h.HandleRecommend)
}

func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RecommendRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp, err := h.service.RequestCounselorRecommendation(ctx, req.CounselRequestText)
	if err != nil {
		h.logger.ErrorContext(ctx, "recommendation request failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
