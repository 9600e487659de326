// Package service implements the counselor recommendation use case.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yeirin/internal/matching/domain"
	"yeirin/internal/matching/metrics"
	"yeirin/internal/matching/models"
	"yeirin/internal/matching/ports"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/requestcontext"
)

// AuditPublisher emits audit events for recommendation requests.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service turns free-text counseling requests into ranked institution
// candidates.
type Service struct {
	repo           ports.RecommendationRepository
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

func New(repo ports.RecommendationRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestCounselorRecommendation validates rawText, asks the recommendation
// service for candidates and returns them by descending score.
//
// A rejected text is a CodeValidation error carrying the domain message. Any
// failure of the upstream call, including a payload the aggregate refuses, is
// CodeInternal.
func (s *Service) RequestCounselorRecommendation(ctx context.Context, rawText string) (*models.RecommendationResponse, error) {
	text := domain.NewCounselRequestText(rawText)
	if text.IsFail() {
		s.incOutcome("invalid")
		return nil, dErrors.New(dErrors.CodeValidation, text.Err().Error())
	}

	start := time.Now()
	res, err := s.repo.RequestRecommendation(ctx, text.Value())
	if s.metrics != nil {
		s.metrics.ObserveUpstream(start)
	}
	if err != nil {
		s.incOutcome("upstream_error")
		s.logger.ErrorContext(ctx, "failed to obtain recommendations",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to obtain recommendations")
	}
	if res == nil || res.Matching == nil {
		s.incOutcome("upstream_error")
		return nil, dErrors.Wrap(errors.New("empty recommendation result"), dErrors.CodeInternal, "failed to obtain recommendations")
	}

	resp := toResponse(res)
	high := len(res.Matching.HighScoredRecommendations())
	if s.metrics != nil {
		s.metrics.ObserveHighScoreShare(high, res.Matching.Len())
	}
	s.incOutcome("ok")
	s.emitAudit(ctx, res.Matching, high)
	return resp, nil
}

func toResponse(res *ports.RecommendationResult) *models.RecommendationResponse {
	sorted := res.Matching.SortedByScore()
	items := make([]models.RecommendationItem, 0, len(sorted))
	for _, r := range sorted {
		instID := r.InstitutionID().Value()
		profile := res.Profiles[instID]
		items = append(items, models.RecommendationItem{
			InstitutionID: instID,
			Score:         r.Score().Value(),
			Reason:        r.Reason(),
			IsHighScore:   r.IsHighScore(),
			CenterName:    profile.CenterName,
			Address:       profile.Address,
			AverageRating: profile.AverageRating,
		})
	}
	return &models.RecommendationResponse{
		CounselRequestText: res.Matching.CounselRequestText().Value(),
		Recommendations:    items,
		CreatedAt:          res.Matching.CreatedAt(),
	}
}

func (s *Service) incOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncOutcome(outcome)
	}
}

func (s *Service) emitAudit(ctx context.Context, m *domain.MatchingRecommendation, high int) {
	if s.auditPublisher == nil {
		return
	}
	top := m.TopRecommendation()
	event := audit.Event{
		UserID:   requestcontext.UserID(ctx),
		Subject:  top.InstitutionID().Value(),
		Action:   string(audit.EventRecommendationRequested),
		Decision: "recommended",
		Reason:   highScoreSummary(high, m.Len()),
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}

func highScoreSummary(high, total int) string {
	return fmt.Sprintf("high_score=%d/%d", high, total)
}
