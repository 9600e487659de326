// Package admin serves read-only operator views over the audit trail.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// AuditReader is satisfied by the memory and postgres audit stores.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error)
}

type Handler struct {
	audit  AuditReader
	logger *slog.Logger
}

func New(reader AuditReader, logger *slog.Logger) *Handler {
	return &Handler{audit: reader, logger: logger}
}

// Register mounts admin routes; callers add RequireRole(admin).
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/admin/audit", h.HandleListAudit)
}

// HandleListAudit returns the newest events, optionally narrowed to one user.
// Events still buffered in the publisher are not visible until the next flush.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var events []audit.Event
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, perr := id.ParseUserID(raw)
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		events, err = h.audit.ListByUser(ctx, userID)
		if len(events) > limit {
			events = events[:limit]
		}
	} else {
		events, err = h.audit.ListRecent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit events failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditListResponse(events))
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultAuditLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
	}
	return min(n, MaxAuditLimit), nil
}
