package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"yeirin/internal/notification/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	messages map[id.MessageID]*models.Message
}

func NewInMemory() *InMemory {
	return &InMemory{messages: make(map[id.MessageID]*models.Message)}
}

// Save inserts or replaces the message.
func (s *InMemory) Save(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = copyMessage(msg)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, messageID id.MessageID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("sms message not found: %w", sentinel.ErrNotFound)
	}
	return copyMessage(m), nil
}

func (s *InMemory) FindByProviderID(_ context.Context, providerID string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if providerID != "" && m.ProviderID == providerID {
			return copyMessage(m), nil
		}
	}
	return nil, fmt.Errorf("sms message not found: %w", sentinel.ErrNotFound)
}

// ListByCounselRequest returns messages for the request, oldest first.
func (s *InMemory) ListByCounselRequest(_ context.Context, requestID id.CounselRequestID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.CounselRequestID == requestID {
			out = append(out, copyMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func copyMessage(m *models.Message) *models.Message {
	c := *m
	if m.DeliveredAt != nil {
		t := *m.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}
