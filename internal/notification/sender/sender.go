// Package sender delivers SMS messages through an external gateway.
package sender

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ErrGateway marks any failure attributable to the SMS gateway.
var ErrGateway = errors.New("sms gateway failure")

// Outgoing is one message handed to a gateway.
type Outgoing struct {
	Reference string
	To        string
	Body      string
}

// LogSender writes messages to the log instead of a gateway. It is used when
// no SMS_API_URL is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and returns a synthetic provider id.
func (s *LogSender) Send(ctx context.Context, msg Outgoing) (string, error) {
	providerID := "log-" + uuid.NewString()
	s.logger.InfoContext(ctx, "sms not sent, no gateway configured",
		"reference", msg.Reference,
		"provider_id", providerID,
		"body_length", len([]rune(msg.Body)),
	)
	return providerID, nil
}
