package user

import (
	"context"
	"fmt"
	"sync"

	"yeirin/internal/auth/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in memory for tests and single-process runs.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Save inserts a new user. A taken email is sentinel.ErrConflict.
func (s *InMemoryUserStore) Save(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byEmail[user.Email]; ok && owner != user.ID {
		return fmt.Errorf("email %s: %w", user.Email, sentinel.ErrConflict)
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		found := *u
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[models.NormalizeEmail(email)]; ok {
		found := *s.users[userID]
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// CountByRole is used by admin bootstrap to detect an existing admin.
func (s *InMemoryUserStore) CountByRole(_ context.Context, role id.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}
