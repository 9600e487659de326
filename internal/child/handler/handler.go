package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/child/models"
	"yeirin/internal/platform/validation"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

type Service interface {
	RegisterChild(ctx context.Context, req models.CreateChildRequest) (*models.ChildResponse, error)
	ListChildren(ctx context.Context) (*models.ListResponse, error)
	GetChild(ctx context.Context, childID id.ChildID) (*models.ChildResponse, error)
	DeleteChild(ctx context.Context, childID id.ChildID) error
}

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
	r.Post("/api/v1/children", h.HandleCreate)
	r.Get("/api/v1/children", h.HandleList)
	r.Get("/api/v1/children/{id}", h.HandleGet)
	r.Delete("/api/v1/children/{id}", h.HandleDelete)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChildRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.RegisterChild(r.Context(), req)
	if err != nil {
		h.fail(w, r, "register child failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListChildren(r.Context())
	if err != nil {
		h.fail(w, r, "list children failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	childID, err := id.ParseChildID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.GetChild(r.Context(), childID)
	if err != nil {
		h.fail(w, r, "get child failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	childID, err := id.ParseChildID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteChild(r.Context(), childID); err != nil {
		h.fail(w, r, "delete child failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}
