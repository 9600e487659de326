package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"yeirin/internal/review/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	reviews   map[id.ReviewID]*models.Review
	byRequest map[id.CounselRequestID]id.ReviewID
}

func NewInMemory() *InMemory {
	return &InMemory{
		reviews:   make(map[id.ReviewID]*models.Review),
		byRequest: make(map[id.CounselRequestID]id.ReviewID),
	}
}

// Create enforces one review per counsel request.
func (s *InMemory) Create(_ context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRequest[review.CounselRequestID]; exists {
		return fmt.Errorf("review for counsel request %s: %w", review.CounselRequestID, sentinel.ErrConflict)
	}
	c := *review
	s.reviews[review.ID] = &c
	s.byRequest[review.CounselRequestID] = review.ID
	return nil
}

// ListByInstitution returns reviews newest first.
func (s *InMemory) ListByInstitution(_ context.Context, institutionID id.InstitutionID) ([]*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Review
	for _, r := range s.reviews {
		if r.InstitutionID == institutionID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a review. Used to undo a create whose rating could not be applied.
func (s *InMemory) Delete(_ context.Context, reviewID id.ReviewID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[reviewID]
	if !ok {
		return fmt.Errorf("review not found: %w", sentinel.ErrNotFound)
	}
	delete(s.byRequest, r.CounselRequestID)
	delete(s.reviews, reviewID)
	return nil
}
