package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"yeirin/internal/child/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	children map[id.ChildID]*models.Child
}

func NewInMemory() *InMemory {
	return &InMemory{children: make(map[id.ChildID]*models.Child)}
}

func (s *InMemory) Save(_ context.Context, child *models.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *child
	s.children[child.ID] = &c
	return nil
}

func (s *InMemory) FindByID(_ context.Context, childID id.ChildID) (*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.children[childID]
	if !ok {
		return nil, fmt.Errorf("child not found: %w", sentinel.ErrNotFound)
	}
	found := *c
	return &found, nil
}

// ListByGuardian returns the guardian's children, oldest registration first.
func (s *InMemory) ListByGuardian(_ context.Context, guardianID id.UserID) ([]*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Child
	for _, c := range s.children {
		if c.GuardianID == guardianID {
			found := *c
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, childID id.ChildID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.children[childID]; !ok {
		return fmt.Errorf("child not found: %w", sentinel.ErrNotFound)
	}
	delete(s.children, childID)
	return nil
}
