package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"yeirin/internal/ratelimit/models"
	dErrors "yeirin/pkg/domain-errors"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/platform/middleware/metadata"
	"yeirin/pkg/requestcontext"
)

type Limiter interface {
	Check(ctx context.Context, class models.EndpointClass, ip string) (*models.Result, error)
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through, for local runs.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client address for class. A limiter failure
// lets the request through.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = metadata.ClientIPFromRequest(r)
			}

			result, err := m.limiter.Check(ctx, class, ip)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed", "error", err, "class", string(class))
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited,
					fmt.Sprintf("too many requests, retry in %d seconds", result.RetryAfter)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
