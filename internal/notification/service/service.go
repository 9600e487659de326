// Package service sends guardian SMS notifications and tracks their delivery.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authmodels "yeirin/internal/auth/models"
	"yeirin/internal/notification/metrics"
	"yeirin/internal/notification/models"
	"yeirin/internal/notification/sender"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/sentinel"
	"yeirin/pkg/requestcontext"
)

type Store interface {
	Save(ctx context.Context, msg *models.Message) error
	FindByID(ctx context.Context, messageID id.MessageID) (*models.Message, error)
	FindByProviderID(ctx context.Context, providerID string) (*models.Message, error)
}

type Sender interface {
	Send(ctx context.Context, msg sender.Outgoing) (string, error)
}

// Recipients resolves a user to their contact details.
type Recipients interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	sender         Sender
	recipients     Recipients
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

func New(store Store, sender Sender, recipients Recipients, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("message store is required")
	}
	if sender == nil {
		return nil, errors.New("sms sender is required")
	}
	if recipients == nil {
		return nil, errors.New("recipient lookup is required")
	}
	s := &Service{
		store:      store,
		sender:     sender,
		recipients: recipients,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NotifyGuardian texts the guardian's registered phone. The message is
// stored before it is handed to the gateway so a failed send still leaves
// a record with the failure reason.
func (s *Service) NotifyGuardian(ctx context.Context, guardianID id.UserID, requestID id.CounselRequestID, body string) error {
	user, err := s.recipients.FindByID(ctx, guardianID)
	if err != nil {
		return s.wrapStoreErr(err, "failed to load guardian")
	}
	if user.Phone == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "guardian has no phone number")
	}

	now := requestcontext.Now(ctx)
	msg, err := models.NewMessage(id.MessageID(uuid.New()), requestID, user.Phone, body, now)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, msg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue sms")
	}
	s.emit(ctx, audit.EventSMSQueued, msg, string(models.StatusQueued))

	start := time.Now()
	providerID, sendErr := s.sender.Send(ctx, sender.Outgoing{
		Reference: msg.ID.String(),
		To:        msg.Recipient,
		Body:      msg.Body,
	})
	if s.metrics != nil {
		s.metrics.ObserveSendLatency(time.Since(start).Seconds())
	}
	if sendErr != nil {
		msg.MarkFailed(sendErr.Error(), requestcontext.Now(ctx))
	} else {
		msg.MarkSent(providerID, requestcontext.Now(ctx))
	}
	if s.metrics != nil {
		s.metrics.IncrementSent(string(msg.Status))
	}
	if err := s.store.Save(ctx, msg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record sms status")
	}
	if sendErr != nil {
		return dErrors.Wrap(sendErr, dErrors.CodeInternal, "failed to send sms")
	}
	return nil
}

// HandleDelivery applies a gateway delivery callback to the matching message.
// Replayed callbacks are accepted without side effects.
func (s *Service) HandleDelivery(ctx context.Context, cb models.DeliveryCallback) error {
	msg, err := s.store.FindByProviderID(ctx, cb.MessageID)
	if err != nil {
		return s.wrapStoreErr(err, "failed to load sms message")
	}
	now := requestcontext.Now(ctx)
	deliveredAt := now
	if cb.DeliveredAt != nil {
		deliveredAt = cb.DeliveredAt.UTC()
	}
	changed, err := msg.ApplyDelivery(models.Status(cb.Status), deliveredAt, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if cb.Error != "" {
		msg.Error = cb.Error
	}
	if err := s.store.Save(ctx, msg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record delivery")
	}
	s.emit(ctx, audit.EventSMSDeliveryUpdated, msg, string(msg.Status))
	if s.metrics != nil {
		s.metrics.IncrementDeliveryUpdate(string(msg.Status))
	}
	return nil
}

func (s *Service) wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "sms recipient or message not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, msg *models.Message, decision string) {
	s.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"message_id", msg.ID.String(),
		"counsel_request_id", msg.CounselRequestID.String(),
		"status", decision,
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    requestcontext.UserID(ctx),
		Subject:   msg.ID.String(),
		Action:    string(action),
		Decision:  decision,
		Reason:    fmt.Sprintf("counsel_request=%s", msg.CounselRequestID),
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", string(action))
	}
}
