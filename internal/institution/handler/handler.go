package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/institution/models"
	"yeirin/internal/platform/validation"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

type Service interface {
	CreateInstitution(ctx context.Context, req models.CreateInstitutionRequest) (*models.Institution, error)
	GetInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error)
	ListInstitutions(ctx context.Context, kind string) ([]*models.Institution, error)
	UpdateInstitution(ctx context.Context, institutionID id.InstitutionID, req models.UpdateInstitutionRequest) (*models.Institution, error)
	DeactivateInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error)
	ReactivateInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error)
}

type Handler struct {
	service   Service
	validator *validation.Validator
	logger    *slog.Logger
}

func New(service Service, validator *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: service, validator: validator, logger: logger}
}

// Register mounts read and update routes for any authenticated principal.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/institutions", h.HandleList)
	r.Get("/api/v1/institutions/{id}", h.HandleGet)
	r.Patch("/api/v1/institutions/{id}", h.HandleUpdate)
}

// RegisterAdmin mounts routes that expect RequireRole(admin) upstream.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/api/v1/institutions", h.HandleCreate)
	r.Post("/api/v1/institutions/{id}/deactivate", h.HandleDeactivate)
	r.Post("/api/v1/institutions/{id}/reactivate", h.HandleReactivate)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInstitutionRequest
	if !h.decode(w, r, &req) {
		return
	}
	inst, err := h.service.CreateInstitution(r.Context(), req)
	if err != nil {
		h.fail(w, r, "create institution failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inst)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListInstitutions(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.fail(w, r, "list institutions failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListResponse{Institutions: list})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	institutionID, err := id.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inst, err := h.service.GetInstitution(r.Context(), institutionID)
	if err != nil {
		h.fail(w, r, "get institution failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	institutionID, err := id.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateInstitutionRequest
	if !h.decode(w, r, &req) {
		return
	}
	inst, err := h.service.UpdateInstitution(r.Context(), institutionID, req)
	if err != nil {
		h.fail(w, r, "update institution failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.DeactivateInstitution)
}

func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ReactivateInstitution)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, id.InstitutionID) (*models.Institution, error)) {
	institutionID, err := id.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inst, err := fn(r.Context(), institutionID)
	if err != nil {
		h.fail(w, r, "institution status change failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		httputil.WriteError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
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
