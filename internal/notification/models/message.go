package models

import (
	"fmt"
	"time"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// Message is one outbound SMS and its delivery state. ProviderID is the
// identifier the SMS gateway uses in delivery callbacks.
type Message struct {
	ID               id.MessageID
	CounselRequestID id.CounselRequestID
	Recipient        string
	Body             string
	Status           Status
	ProviderID       string
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeliveredAt      *time.Time
}

func NewMessage(messageID id.MessageID, requestID id.CounselRequestID, recipient, body string, now time.Time) (*Message, error) {
	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sms recipient is required")
	}
	if body == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sms body is required")
	}
	return &Message{
		ID:               messageID,
		CounselRequestID: requestID,
		Recipient:        recipient,
		Body:             body,
		Status:           StatusQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (m *Message) MarkSent(providerID string, now time.Time) {
	m.Status = StatusSent
	m.ProviderID = providerID
	m.UpdatedAt = now
}

func (m *Message) MarkFailed(reason string, now time.Time) {
	m.Status = StatusFailed
	m.Error = reason
	m.UpdatedAt = now
}

// ApplyDelivery records a gateway callback. Repeating the current terminal
// status is a no-op and reports false; contradicting it is a conflict.
func (m *Message) ApplyDelivery(status Status, deliveredAt time.Time, now time.Time) (bool, error) {
	if status != StatusDelivered && status != StatusFailed {
		return false, dErrors.New(dErrors.CodeValidation, "status must be one of [delivered failed]")
	}
	if m.Status == status {
		return false, nil
	}
	if m.Status.IsTerminal() {
		return false, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("message already %s", m.Status))
	}
	m.Status = status
	m.UpdatedAt = now
	if status == StatusDelivered {
		m.DeliveredAt = &deliveredAt
	}
	return true, nil
}
