package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"yeirin/internal/counselrequest/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

type InMemory struct {
	mu              sync.RWMutex
	requests        map[id.CounselRequestID]*models.CounselRequest
	recommendations map[id.CounselRequestID][]*models.Recommendation
}

func NewInMemory() *InMemory {
	return &InMemory{
		requests:        make(map[id.CounselRequestID]*models.CounselRequest),
		recommendations: make(map[id.CounselRequestID][]*models.Recommendation),
	}
}

func (s *InMemory) Create(_ context.Context, req *models.CounselRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return fmt.Errorf("counsel request %s: %w", req.ID, sentinel.ErrConflict)
	}
	c := *req
	s.requests[req.ID] = &c
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.CounselRequestID) (*models.CounselRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("counsel request not found: %w", sentinel.ErrNotFound)
	}
	found := *c
	return &found, nil
}

// ListByGuardian returns the guardian's requests, newest first.
func (s *InMemory) ListByGuardian(_ context.Context, guardianID id.UserID) ([]*models.CounselRequest, error) {
	return s.filter(func(c *models.CounselRequest) bool { return c.GuardianID == guardianID }), nil
}

// ListByInstitution returns requests that selected the institution, newest first.
func (s *InMemory) ListByInstitution(_ context.Context, institutionID id.InstitutionID) ([]*models.CounselRequest, error) {
	return s.filter(func(c *models.CounselRequest) bool { return c.SelectedInstitutionID == institutionID }), nil
}

func (s *InMemory) filter(keep func(*models.CounselRequest) bool) []*models.CounselRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CounselRequest
	for _, c := range s.requests {
		if keep(c) {
			found := *c
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Execute runs validate then mutate under the write lock so the status check
// and the transition are atomic.
func (s *InMemory) Execute(_ context.Context, requestID id.CounselRequestID, validate func(*models.CounselRequest) error, mutate func(*models.CounselRequest)) (*models.CounselRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("counsel request not found: %w", sentinel.ErrNotFound)
	}
	working := *stored
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.requests[requestID] = &working
	out := working
	return &out, nil
}

// ReplaceRecommendations swaps the stored candidates for a request.
func (s *InMemory) ReplaceRecommendations(_ context.Context, requestID id.CounselRequestID, recs []*models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[requestID]; !ok {
		return fmt.Errorf("counsel request not found: %w", sentinel.ErrNotFound)
	}
	stored := make([]*models.Recommendation, 0, len(recs))
	for _, r := range recs {
		c := *r
		stored = append(stored, &c)
	}
	s.recommendations[requestID] = stored
	return nil
}

// ListRecommendations returns candidates by rank.
func (s *InMemory) ListRecommendations(_ context.Context, requestID id.CounselRequestID) ([]*models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Recommendation, 0, len(s.recommendations[requestID]))
	for _, r := range s.recommendations[requestID] {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}
