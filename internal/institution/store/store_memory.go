package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"yeirin/internal/institution/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

// InMemory stores institutions in memory. Name uniqueness is case-insensitive.
type InMemory struct {
	mu           sync.RWMutex
	institutions map[id.InstitutionID]*models.Institution
	names        map[string]id.InstitutionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		institutions: make(map[id.InstitutionID]*models.Institution),
		names:        make(map[string]id.InstitutionID),
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func clone(inst *models.Institution) *models.Institution {
	c := *inst
	c.ServiceTags = append([]string(nil), inst.ServiceTags...)
	return &c
}

func (s *InMemory) CreateIfNameAvailable(_ context.Context, inst *models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nameKey(inst.Name)
	if _, taken := s.names[key]; taken {
		return fmt.Errorf("institution name %q: %w", inst.Name, sentinel.ErrConflict)
	}
	s.institutions[inst.ID] = clone(inst)
	s.names[key] = inst.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.institutions[institutionID]
	if !ok {
		return nil, fmt.Errorf("institution not found: %w", sentinel.ErrNotFound)
	}
	return clone(inst), nil
}

// List returns institutions ordered by name, optionally filtered by type.
func (s *InMemory) List(_ context.Context, kind models.InstitutionType) ([]*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Institution, 0, len(s.institutions))
	for _, inst := range s.institutions {
		if kind != "" && inst.Type != kind {
			continue
		}
		out = append(out, clone(inst))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Execute runs validate then mutate under the write lock so the check and
// the change are atomic. A rename that collides with another institution is
// sentinel.ErrConflict.
func (s *InMemory) Execute(_ context.Context, institutionID id.InstitutionID, validate func(*models.Institution) error, mutate func(*models.Institution)) (*models.Institution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.institutions[institutionID]
	if !ok {
		return nil, fmt.Errorf("institution not found: %w", sentinel.ErrNotFound)
	}
	working := clone(stored)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	oldKey, newKey := nameKey(stored.Name), nameKey(working.Name)
	if oldKey != newKey {
		if _, taken := s.names[newKey]; taken {
			return nil, fmt.Errorf("institution name %q: %w", working.Name, sentinel.ErrConflict)
		}
		delete(s.names, oldKey)
		s.names[newKey] = institutionID
	}
	s.institutions[institutionID] = working
	return clone(working), nil
}
