package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"yeirin/internal/auth/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
	ctx   context.Context
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) newUser(email string, role id.Role) *models.User {
	var instID id.InstitutionID
	if role.IsInstitutionStaff() {
		instID = id.InstitutionID(uuid.New())
	}
	u, err := models.NewUser(email, "hash", "Name", "", role, instID, time.Now())
	s.Require().NoError(err)
	return u
}

func (s *InMemoryUserStoreSuite) TestSaveAndFind() {
	u := s.newUser("parent@example.com", id.RoleGuardian)
	s.Require().NoError(s.store.Save(s.ctx, u))

	byID, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u, byID)

	byEmail, err := s.store.FindByEmail(s.ctx, "  PARENT@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
}

func (s *InMemoryUserStoreSuite) TestReturnedUserIsACopy() {
	u := s.newUser("parent@example.com", id.RoleGuardian)
	s.Require().NoError(s.store.Save(s.ctx, u))

	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	found.Name = "mutated"

	again, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Name", again.Name)
}

func (s *InMemoryUserStoreSuite) TestDuplicateEmailConflicts() {
	s.Require().NoError(s.store.Save(s.ctx, s.newUser("dup@example.com", id.RoleGuardian)))
	err := s.store.Save(s.ctx, s.newUser("dup@example.com", id.RoleGuardian))
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *InMemoryUserStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(s.ctx, id.UserID(uuid.New()))
	s.True(errors.Is(err, sentinel.ErrNotFound))

	_, err = s.store.FindByEmail(s.ctx, "missing@example.com")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *InMemoryUserStoreSuite) TestCountByRole() {
	s.Require().NoError(s.store.Save(s.ctx, s.newUser("a@example.com", id.RoleAdmin)))
	s.Require().NoError(s.store.Save(s.ctx, s.newUser("b@example.com", id.RoleGuardian)))

	n, err := s.store.CountByRole(s.ctx, id.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(1, n)
}
