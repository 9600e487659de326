// Package httpapi assembles the chi router: platform middleware, the public
// and authenticated route groups, and role gates per group.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yeirin/internal/admin"
	authhandler "yeirin/internal/auth/handler"
	childhandler "yeirin/internal/child/handler"
	consenthandler "yeirin/internal/consent/handler"
	crhandler "yeirin/internal/counselrequest/handler"
	insthandler "yeirin/internal/institution/handler"
	matchinghandler "yeirin/internal/matching/handler"
	notificationhandler "yeirin/internal/notification/handler"
	"yeirin/internal/platform/metrics"
	rlmiddleware "yeirin/internal/ratelimit/middleware"
	rlmodels "yeirin/internal/ratelimit/models"
	reporthandler "yeirin/internal/report/handler"
	reviewhandler "yeirin/internal/review/handler"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/httputil"
	authmw "yeirin/pkg/platform/middleware/auth"
	"yeirin/pkg/platform/middleware/metadata"
	"yeirin/pkg/platform/middleware/request"
	"yeirin/pkg/platform/middleware/requesttime"
)

// Handlers groups every module's HTTP handler.
type Handlers struct {
	Auth           *authhandler.Handler
	Institution    *insthandler.Handler
	Child          *childhandler.Handler
	Consent        *consenthandler.Handler
	Matching       *matchinghandler.Handler
	CounselRequest *crhandler.Handler
	Report         *reporthandler.Handler
	Review         *reviewhandler.Handler
	Notification   *notificationhandler.Handler
	Admin          *admin.Handler
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Tokens      authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker
	RateLimit   *rlmiddleware.Middleware
	Health      map[string]HealthCheck
	Timeout     time.Duration
}

// NewRouter wires all public endpoints.
func NewRouter(deps Deps, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(deps.Logger))
	r.Use(request.Logger(deps.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	if deps.Timeout > 0 {
		r.Use(request.Timeout(deps.Timeout))
	}

	r.Get("/health", healthHandler(deps.Health))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	// SMS gateway callbacks authenticate by signature, not bearer token.
	h.Notification.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(deps.RateLimit.RateLimit(rlmodels.ClassAuth))
		h.Auth.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.Tokens, deps.Revocations, deps.Logger))

		// Attachment uploads are multipart, so reports stay outside the JSON group.
		h.Report.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(request.ContentTypeJSON)
			h.Auth.RegisterProtected(r)
			h.Institution.Register(r)
			h.CounselRequest.Register(r)
			h.Review.Register(r)

			r.With(deps.RateLimit.RateLimit(rlmodels.ClassMatching)).Group(h.Matching.Register)

			r.Group(func(r chi.Router) {
				r.Use(authmw.RequireRole(deps.Logger, id.RoleGuardian))
				h.Child.Register(r)
				h.Consent.Register(r)
				h.CounselRequest.RegisterGuardian(r)
				h.Review.RegisterGuardian(r)
				r.With(deps.RateLimit.RateLimit(rlmodels.ClassMatching)).Group(h.CounselRequest.RegisterRecommendations)
			})

			r.Group(func(r chi.Router) {
				r.Use(authmw.RequireRole(deps.Logger, id.RoleInstitution, id.RoleCounselor))
				h.CounselRequest.RegisterStaff(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(authmw.RequireRole(deps.Logger, id.RoleAdmin))
				h.Institution.RegisterAdmin(r)
				h.Admin.Register(r)
			})
		})
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				components[name] = "down"
				continue
			}
			components[name] = "up"
		}
		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": overall, "components": components})
	}
}
