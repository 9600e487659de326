// Package aiclient calls the external AI recommendation service and maps its
// snake_case payload onto the matching domain.
package aiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"yeirin/internal/matching/domain"
	"yeirin/internal/matching/ports"
)

const (
	recommendationsPath = "/api/v1/recommendations"
	tracerName          = "yeirin/internal/matching/adapters/aiclient"
)

// ErrUpstream marks any failure attributable to the recommendation service.
var ErrUpstream = errors.New("recommendation service failure")

type recommendationRequest struct {
	CounselRequestText string `json:"counsel_request_text"`
}

type recommendationItem struct {
	InstitutionID string  `json:"institution_id"`
	CenterName    string  `json:"center_name"`
	Score         float64 `json:"score"`
	Reasoning     string  `json:"reasoning"`
	Address       string  `json:"address"`
	AverageRating float64 `json:"average_rating"`
}

type recommendationResponse struct {
	Recommendations   []recommendationItem `json:"recommendations"`
	TotalInstitutions int                  `json:"total_institutions"`
	RequestText       string               `json:"request_text"`
}

// Client implements ports.RecommendationRepository over HTTP. It makes exactly
// one attempt per call: no retries and no circuit breaking.
type Client struct {
	http   *resty.Client
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// WithClock fixes the aggregate's creation time, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New builds a client for baseURL with a single overall request timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.RecommendationRepository = (*Client)(nil)

func (c *Client) RequestRecommendation(ctx context.Context, text domain.CounselRequestText) (*ports.RecommendationResult, error) {
	ctx, span := c.tracer.Start(ctx, "aiclient.RequestRecommendation",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.path", recommendationsPath),
			attribute.Int("yeirin.counsel_request_text.length", len([]rune(text.Value()))),
		),
	)
	defer span.End()

	result, err := c.call(ctx, span, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recommendation request failed")
		c.logger.ErrorContext(ctx, "recommendation service call failed", "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("yeirin.recommendations.count", result.Matching.Len()))
	return result, nil
}

func (c *Client) call(ctx context.Context, span trace.Span, text domain.CounselRequestText) (*ports.RecommendationResult, error) {
	var body recommendationResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(recommendationRequest{CounselRequestText: text.Value()}).
		SetResult(&body).
		ForceContentType("application/json").
		Post(recommendationsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
	if resp.IsError() {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUpstream, resp.StatusCode())
	}

	return toResult(text, body, c.now())
}

func toResult(text domain.CounselRequestText, body recommendationResponse, now time.Time) (*ports.RecommendationResult, error) {
	recs := make([]domain.InstitutionRecommendation, 0, len(body.Recommendations))
	profiles := make(map[string]domain.InstitutionProfile, len(body.Recommendations))

	for i, item := range body.Recommendations {
		instID := domain.NewInstitutionID(item.InstitutionID)
		if instID.IsFail() {
			return nil, fmt.Errorf("%w: recommendation %d: %w", ErrUpstream, i, instID.Err())
		}
		score := domain.NewRecommendationScore(item.Score)
		if score.IsFail() {
			return nil, fmt.Errorf("%w: recommendation %d: %w", ErrUpstream, i, score.Err())
		}
		rec := domain.NewInstitutionRecommendation(domain.InstitutionRecommendationProps{
			InstitutionID: instID.Value(),
			Score:         score.Value(),
			Reason:        item.Reasoning,
		})
		if rec.IsFail() {
			return nil, fmt.Errorf("%w: recommendation %d: %w", ErrUpstream, i, rec.Err())
		}
		recs = append(recs, rec.Value())
		profiles[item.InstitutionID] = domain.InstitutionProfile{
			InstitutionID: item.InstitutionID,
			CenterName:    item.CenterName,
			Address:       item.Address,
			AverageRating: item.AverageRating,
		}
	}

	matching := domain.NewMatchingRecommendation(domain.MatchingRecommendationProps{
		CounselRequestText: text,
		Recommendations:    recs,
		CreatedAt:          now,
	})
	if matching.IsFail() {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, matching.Err())
	}

	return &ports.RecommendationResult{
		Matching:          matching.Value(),
		Profiles:          profiles,
		TotalInstitutions: body.TotalInstitutions,
	}, nil
}
