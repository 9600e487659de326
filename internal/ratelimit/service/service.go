// Package service applies per-class sliding window limits to client addresses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yeirin/internal/ratelimit/metrics"
	"yeirin/internal/ratelimit/models"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/requestcontext"
)

const (
	DefaultMatchingPerMinute = 20
	DefaultAuthPerMinute     = 10
)

type Store interface {
	Allow(ctx context.Context, key string, policy models.Policy) (*models.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	policies       map[models.EndpointClass]models.Policy
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

// WithPerMinute overrides a class limit. Non-positive values keep the default.
func WithPerMinute(class models.EndpointClass, limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.policies[class] = models.Policy{Limit: limit, Window: time.Minute}
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("rate limit store is required")
	}
	s := &Service{
		store: store,
		policies: map[models.EndpointClass]models.Policy{
			models.ClassMatching: {Limit: DefaultMatchingPerMinute, Window: time.Minute},
			models.ClassAuth:     {Limit: DefaultAuthPerMinute, Window: time.Minute},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the configured limit for class.
func (s *Service) Policy(class models.EndpointClass) (models.Policy, bool) {
	p, ok := s.policies[class]
	return p, ok
}

// Check counts one request from ip against class.
func (s *Service) Check(ctx context.Context, class models.EndpointClass, ip string) (*models.Result, error) {
	policy, ok := s.policies[class]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint class %q", class)
	}
	result, err := s.store.Allow(ctx, models.Key(class, ip), policy)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementStoreError()
		}
		return nil, err
	}
	outcome := "allowed"
	if !result.Allowed {
		outcome = "denied"
		s.emit(ctx, class, ip, result)
	}
	if s.metrics != nil {
		s.metrics.IncrementCheck(string(class), outcome)
	}
	return result, nil
}

func (s *Service) emit(ctx context.Context, class models.EndpointClass, ip string, result *models.Result) {
	s.logger.WarnContext(ctx, string(audit.EventRateLimitExceeded),
		"log_type", "audit",
		"class", string(class),
		"ip", ip,
		"retry_after", result.RetryAfter,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    requestcontext.UserID(ctx),
		Subject:   ip,
		Action:    string(audit.EventRateLimitExceeded),
		Decision:  "denied",
		Reason:    "class=" + string(class),
		IP:        ip,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", string(audit.EventRateLimitExceeded))
	}
}
