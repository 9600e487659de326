package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/auth/models"
	"yeirin/internal/platform/validation"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.UserResponse, error)
}

type Handler struct {
	service   Service
	validator *validation.Validator
	logger    *slog.Logger
}

func New(service Service, validator *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: service, validator: validator, logger: logger}
}

// RegisterPublic mounts the unauthenticated routes. Callers add rate limiting.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/api/v1/auth/register", h.HandleRegister)
	r.Post("/api/v1/auth/login", h.HandleLogin)
}

// RegisterProtected mounts routes that expect RequireAuth upstream.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/api/v1/auth/logout", h.HandleLogout)
	r.Get("/api/v1/auth/me", h.HandleMe)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, "register failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, "login failed", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		h.fail(w, r, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Me(r.Context())
	if err != nil {
		h.fail(w, r, "load current user failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
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
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
