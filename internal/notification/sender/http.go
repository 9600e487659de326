package sender

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	messagesPath = "/v1/messages"
	tracerName   = "yeirin/internal/notification/sender"
)

type sendRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// HTTPSender posts messages to a JSON SMS gateway. Like the recommendation
// client it makes one attempt per call.
type HTTPSender struct {
	http   *resty.Client
	from   string
	tracer trace.Tracer
	logger *slog.Logger
}

type Option func(*HTTPSender)

func WithLogger(logger *slog.Logger) Option {
	return func(s *HTTPSender) { s.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *HTTPSender) { s.tracer = tracer }
}

func NewHTTPSender(baseURL, apiKey, from string, timeout time.Duration, opts ...Option) *HTTPSender {
	s := &HTTPSender{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		from:   from,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send returns the gateway's message id, which later delivery callbacks refer to.
func (s *HTTPSender) Send(ctx context.Context, msg Outgoing) (string, error) {
	ctx, span := s.tracer.Start(ctx, "sender.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.path", messagesPath),
		),
	)
	defer span.End()

	var body sendResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(sendRequest{From: s.from, To: msg.To, Text: msg.Body, Reference: msg.Reference}).
		SetResult(&body).
		ForceContentType("application/json").
		Post(messagesPath)
	if err == nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
		switch {
		case resp.IsError():
			err = fmt.Errorf("%w: unexpected status %d", ErrGateway, resp.StatusCode())
		case body.MessageID == "":
			err = fmt.Errorf("%w: response missing message_id", ErrGateway)
		}
	} else {
		err = fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sms send failed")
		s.logger.ErrorContext(ctx, "sms gateway call failed", "reference", msg.Reference, "error", err)
		return "", err
	}
	return body.MessageID, nil
}
