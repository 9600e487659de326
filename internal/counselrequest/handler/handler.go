package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/counselrequest/models"
	"yeirin/internal/platform/validation"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, req models.CreateRequest) (*models.CounselRequestResponse, error)
	List(ctx context.Context) (*models.ListResponse, error)
	Get(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error)
	RequestRecommendations(ctx context.Context, requestID id.CounselRequestID) (*models.RecommendationListResponse, error)
	ListRecommendations(ctx context.Context, requestID id.CounselRequestID) (*models.RecommendationListResponse, error)
	Select(ctx context.Context, requestID id.CounselRequestID, req models.SelectRequest) (*models.CounselRequestResponse, error)
	Accept(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error)
	Reject(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error)
	Complete(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error)
	Cancel(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error)
}

type Handler struct {
	service   Service
	validator *validation.Validator
	logger    *slog.Logger
}

func New(service Service, validator *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: service, validator: validator, logger: logger}
}

// Register mounts routes open to any authenticated role. Visibility is
// enforced by the service.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/counsel-requests", h.HandleList)
	r.Get("/api/v1/counsel-requests/{id}", h.HandleGet)
	r.Get("/api/v1/counsel-requests/{id}/recommendations", h.HandleListRecommendations)
}

// RegisterGuardian mounts routes for guardians; callers add RequireRole(guardian).
func (h *Handler) RegisterGuardian(r chi.Router) {
	r.Post("/api/v1/counsel-requests", h.HandleCreate)
	r.Post("/api/v1/counsel-requests/{id}/select", h.HandleSelect)
	r.Post("/api/v1/counsel-requests/{id}/cancel", h.transition(h.service.Cancel, "cancel counsel request failed"))
}

// RegisterRecommendations is split out so callers can rate limit the
// upstream matching call separately.
func (h *Handler) RegisterRecommendations(r chi.Router) {
	r.Post("/api/v1/counsel-requests/{id}/recommendations", h.HandleRequestRecommendations)
}

// RegisterStaff mounts routes for institution staff.
func (h *Handler) RegisterStaff(r chi.Router) {
	r.Post("/api/v1/counsel-requests/{id}/accept", h.transition(h.service.Accept, "accept counsel request failed"))
	r.Post("/api/v1/counsel-requests/{id}/reject", h.transition(h.service.Reject, "reject counsel request failed"))
	r.Post("/api/v1/counsel-requests/{id}/complete", h.transition(h.service.Complete, "complete counsel request failed"))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, "create counsel request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, "list counsel requests failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Get(r.Context(), requestID)
	if err != nil {
		h.fail(w, r, "get counsel request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleRequestRecommendations(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.RequestRecommendations(r.Context(), requestID)
	if err != nil {
		h.fail(w, r, "request recommendations failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListRecommendations(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.ListRecommendations(r.Context(), requestID)
	if err != nil {
		h.fail(w, r, "list recommendations failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var req models.SelectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.Select(r.Context(), requestID, req)
	if err != nil {
		h.fail(w, r, "select institution failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type transitionFunc func(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error)

func (h *Handler) transition(fn transitionFunc, failMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := h.requestID(w, r)
		if !ok {
			return
		}
		resp, err := fn(r.Context(), requestID)
		if err != nil {
			h.fail(w, r, failMsg, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (id.CounselRequestID, bool) {
	requestID, err := id.ParseCounselRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CounselRequestID{}, false
	}
	return requestID, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}
