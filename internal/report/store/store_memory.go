package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"yeirin/internal/report/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	reports map[id.ReportID]*models.Report
}

func NewInMemory() *InMemory {
	return &InMemory{reports: make(map[id.ReportID]*models.Report)}
}

func (s *InMemory) Create(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; exists {
		return fmt.Errorf("report %s: %w", report.ID, sentinel.ErrConflict)
	}
	s.reports[report.ID] = copyReport(report)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, reportID id.ReportID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[reportID]
	if !ok {
		return nil, fmt.Errorf("report not found: %w", sentinel.ErrNotFound)
	}
	return copyReport(r), nil
}

// ListByCounselRequest returns reports ordered by session date, then creation.
func (s *InMemory) ListByCounselRequest(_ context.Context, requestID id.CounselRequestID) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Report
	for _, r := range s.reports {
		if r.CounselRequestID == requestID {
			out = append(out, copyReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].SessionDate.Before(out[j].SessionDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) AddAttachment(_ context.Context, reportID id.ReportID, att models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[reportID]
	if !ok {
		return fmt.Errorf("report not found: %w", sentinel.ErrNotFound)
	}
	for _, existing := range r.Attachments {
		if existing.Key == att.Key {
			return fmt.Errorf("attachment %s: %w", att.Key, sentinel.ErrConflict)
		}
	}
	r.Attachments = append(r.Attachments, att)
	return nil
}

func copyReport(r *models.Report) *models.Report {
	c := *r
	c.Attachments = append([]models.Attachment(nil), r.Attachments...)
	return &c
}
