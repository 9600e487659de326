package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"yeirin/internal/auth/metrics"
	"yeirin/internal/auth/models"
	"yeirin/internal/auth/store/revocation"
	userstore "yeirin/internal/auth/store/user"
	jwttoken "yeirin/internal/jwt_token"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/sentinel"
	"yeirin/pkg/requestcontext"
	"yeirin/pkg/testutil"
)

type stubInstitutions struct {
	active map[id.InstitutionID]bool
	err    error
}

func (s *stubInstitutions) IsActive(_ context.Context, institutionID id.InstitutionID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	active, ok := s.active[institutionID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	return active, nil
}

type ServiceSuite struct {
	suite.Suite
	service      *Service
	users        *userstore.InMemoryUserStore
	trl          *revocation.InMemoryTRL
	jwt          *jwttoken.JWTService
	institutions *stubInstitutions
	audit        *testutil.AuditRecorder
	activeInst   id.InstitutionID
	inactiveInst id.InstitutionID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.users = userstore.New()
	s.trl = revocation.NewInMemoryTRL(nil)
	s.jwt = jwttoken.NewJWTService("test-key", "yeirin", time.Hour)
	s.activeInst = id.InstitutionID(uuid.New())
	s.inactiveInst = id.InstitutionID(uuid.New())
	s.institutions = &stubInstitutions{active: map[id.InstitutionID]bool{
		s.activeInst:   true,
		s.inactiveInst: false,
	}}
	s.audit = &testutil.AuditRecorder{}

	svc, err := New(s.users, s.trl, s.jwt, s.institutions,
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithAuditPublisher(s.audit),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) guardianRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Email:    "Parent@Example.com",
		Password: "s3cret-password",
		Name:     "김보호",
		Role:     "guardian",
	}
}

func (s *ServiceSuite) TestRegister() {
	ctx := context.Background()

	s.Run("guardian", func() {
		resp, err := s.service.Register(ctx, s.guardianRequest())
		s.Require().NoError(err)

		u, err := s.users.FindByEmail(ctx, "parent@example.com")
		s.Require().NoError(err)
		s.Equal(resp.UserID, u.ID.String())
		s.NotEqual("s3cret-password", u.PasswordHash)
		s.Contains(s.audit.Actions(), string(audit.EventUserRegistered))
	})

	s.Run("duplicate email conflicts", func() {
		_, err := s.service.Register(ctx, s.guardianRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("staff of an active institution", func() {
		_, err := s.service.Register(ctx, models.RegisterRequest{
			Email: "staff@center.kr", Password: "password1", Name: "Park",
			Role: "counselor", InstitutionID: s.activeInst.String(),
		})
		s.Require().NoError(err)
	})

	s.Run("staff of an inactive institution", func() {
		_, err := s.service.Register(ctx, models.RegisterRequest{
			Email: "staff2@center.kr", Password: "password1", Name: "Park",
			Role: "institution", InstitutionID: s.inactiveInst.String(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("staff of an unknown institution", func() {
		_, err := s.service.Register(ctx, models.RegisterRequest{
			Email: "staff3@center.kr", Password: "password1", Name: "Park",
			Role: "institution", InstitutionID: uuid.NewString(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("staff without institution", func() {
		_, err := s.service.Register(ctx, models.RegisterRequest{
			Email: "staff4@center.kr", Password: "password1", Name: "Park", Role: "counselor",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("admin cannot self-register", func() {
		req := s.guardianRequest()
		req.Email = "root@example.com"
		req.Role = "admin"
		_, err := s.service.Register(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("institution lookup failure is internal", func() {
		s.institutions.err = errors.New("db down")
		defer func() { s.institutions.err = nil }()
		_, err := s.service.Register(ctx, models.RegisterRequest{
			Email: "staff5@center.kr", Password: "password1", Name: "Park",
			Role: "counselor", InstitutionID: s.activeInst.String(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestLoginLogoutFlow() {
	ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.1",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	_, err := s.service.Register(ctx, s.guardianRequest())
	s.Require().NoError(err)

	token, err := s.service.Login(ctx, models.LoginRequest{Email: "parent@example.com", Password: "s3cret-password"})
	s.Require().NoError(err)
	s.Equal("Bearer", token.TokenType)
	s.Equal(int64(3600), token.ExpiresIn)

	claims, err := s.jwt.ValidateToken(token.AccessToken)
	s.Require().NoError(err)
	s.Equal("guardian", claims.Role)

	events := s.audit.Events()
	last := events[len(events)-1]
	s.Equal(string(audit.EventLoginSucceeded), last.Action)
	s.Contains(last.Device, "Chrome")

	userID, err := id.ParseUserID(claims.UserID)
	s.Require().NoError(err)
	authed := requestcontext.WithTokenID(
		requestcontext.WithPrincipal(ctx, userID, id.RoleGuardian, id.InstitutionID{}), claims.ID)

	me, err := s.service.Me(authed)
	s.Require().NoError(err)
	s.Equal("parent@example.com", me.Email)

	s.Require().NoError(s.service.Logout(authed))
	revoked, err := s.service.IsTokenRevoked(ctx, claims.ID)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *ServiceSuite) TestLoginFailures() {
	ctx := context.Background()
	_, err := s.service.Register(ctx, s.guardianRequest())
	s.Require().NoError(err)

	_, err = s.service.Login(ctx, models.LoginRequest{Email: "parent@example.com", Password: "wrong-password"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal("invalid credentials", dErrors.MessageOf(err))

	_, err = s.service.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal("invalid credentials", dErrors.MessageOf(err))

	var failed []audit.Event
	for _, e := range s.audit.Events() {
		if e.Action == string(audit.EventLoginFailed) {
			failed = append(failed, e)
		}
	}
	s.Require().Len(failed, 2)
	s.Equal("bad_password", failed[0].Reason)
	s.Equal("unknown_email", failed[1].Reason)
	s.Equal("Unknown Device", failed[1].Device)
}

func (s *ServiceSuite) TestLogoutWithoutTokenID() {
	err := s.service.Logout(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestMeUnknownUser() {
	_, err := s.service.Me(testutil.GuardianContext(id.UserID(uuid.New())))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestBootstrapAdmin() {
	ctx := context.Background()

	s.Require().NoError(s.service.BootstrapAdmin(ctx, "", ""))
	n, err := s.users.CountByRole(ctx, id.RoleAdmin)
	s.Require().NoError(err)
	s.Zero(n)

	s.Require().NoError(s.service.BootstrapAdmin(ctx, "admin@yeirin.kr", "admin-password"))
	s.Require().NoError(s.service.BootstrapAdmin(ctx, "other@yeirin.kr", "admin-password"))
	n, err = s.users.CountByRole(ctx, id.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.service.Login(ctx, models.LoginRequest{Email: "admin@yeirin.kr", Password: "admin-password"})
	s.NoError(err)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
