package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"yeirin/internal/consent/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

type consentKey struct {
	guardian id.UserID
	child    id.ChildID
	purpose  id.ConsentPurpose
}

// InMemory keeps one record per (guardian, child, purpose).
type InMemory struct {
	mu       sync.RWMutex
	consents map[consentKey]*models.Consent
}

func NewInMemory() *InMemory {
	return &InMemory{consents: make(map[consentKey]*models.Consent)}
}

func keyOf(c *models.Consent) consentKey {
	return consentKey{guardian: c.GuardianID, child: c.ChildID, purpose: c.Purpose}
}

// Save upserts by (guardian, child, purpose). The stored ID is kept on renewal.
func (s *InMemory) Save(_ context.Context, consent *models.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyConsent(consent)
	if existing, ok := s.consents[keyOf(consent)]; ok {
		c.ID = existing.ID
	}
	s.consents[keyOf(consent)] = c
	return nil
}

func (s *InMemory) Find(_ context.Context, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consents[consentKey{guardian: guardianID, child: childID, purpose: purpose}]
	if !ok {
		return nil, fmt.Errorf("consent not found: %w", sentinel.ErrNotFound)
	}
	return copyConsent(c), nil
}

// ListByChild returns the guardian's consents for a child ordered by purpose.
func (s *InMemory) ListByChild(_ context.Context, guardianID id.UserID, childID id.ChildID) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Consent
	for k, c := range s.consents {
		if k.guardian == guardianID && k.child == childID {
			out = append(out, copyConsent(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Purpose < out[j].Purpose })
	return out, nil
}

func copyConsent(c *models.Consent) *models.Consent {
	out := *c
	if c.RevokedAt != nil {
		t := *c.RevokedAt
		out.RevokedAt = &t
	}
	return &out
}
