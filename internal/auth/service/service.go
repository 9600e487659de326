// Package service implements account registration, login and logout.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"yeirin/internal/auth/metrics"
	"yeirin/internal/auth/models"
	"yeirin/internal/auth/secrets"
	jwttoken "yeirin/internal/jwt_token"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/middleware/device"
	"yeirin/pkg/platform/sentinel"
	"yeirin/pkg/requestcontext"
)

type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CountByRole(ctx context.Context, role id.Role) (int, error)
}

// TokenRevocationList tracks logged-out access tokens by jti.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, role id.Role, institutionID id.InstitutionID) (jwttoken.IssuedToken, error)
	TTL() time.Duration
}

// InstitutionChecker reports whether staff may register for an institution.
type InstitutionChecker interface {
	IsActive(ctx context.Context, institutionID id.InstitutionID) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	users          UserStore
	trl            TokenRevocationList
	tokens         TokenIssuer
	institutions   InstitutionChecker
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func New(users UserStore, trl TokenRevocationList, tokens TokenIssuer, institutions InstitutionChecker, opts ...Option) (*Service, error) {
	if users == nil || trl == nil || tokens == nil || institutions == nil {
		return nil, errors.New("users, revocation list, token issuer and institution checker are required")
	}
	s := &Service{
		users:        users,
		trl:          trl,
		tokens:       tokens,
		institutions: institutions,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a guardian or institution-staff account. Staff must name
// an existing active institution.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	role, err := id.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if role == id.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin accounts cannot be self-registered")
	}

	var institutionID id.InstitutionID
	if req.InstitutionID != "" {
		institutionID, err = id.ParseInstitutionID(req.InstitutionID)
		if err != nil {
			return nil, err
		}
	}
	if role.IsInstitutionStaff() && !institutionID.IsNil() {
		active, err := s.institutions.IsActive(ctx, institutionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
		}
		if !active {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution is inactive")
		}
	}

	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := models.NewUser(req.Email, hash, req.Name, req.Phone, role, institutionID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	if s.metrics != nil {
		s.metrics.IncrementRegistered(role.String())
	}
	s.emitAudit(ctx, audit.Event{
		UserID:  user.ID,
		Subject: user.ID.String(),
		Action:  string(audit.EventUserRegistered),
		Purpose: role.String(),
	})
	return &models.RegisterResponse{UserID: user.ID.String()}, nil
}

// Login verifies credentials and issues an access token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveLogin(start)
		}
	}()
	deviceLabel := device.ParseUserAgent(requestcontext.UserAgent(ctx))
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.loginFailed(ctx, id.UserID{}, models.NormalizeEmail(req.Email), deviceLabel, "unknown_email")
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := secrets.Verify(req.Password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.loginFailed(ctx, user.ID, user.Email, deviceLabel, "bad_password")
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}

	issued, err := s.tokens.GenerateAccessToken(user.ID, user.Role, user.InstitutionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if s.metrics != nil {
		s.metrics.IncrementLogin("succeeded")
	}
	s.emitAudit(ctx, audit.Event{
		UserID:  user.ID,
		Subject: user.ID.String(),
		Action:  string(audit.EventLoginSucceeded),
		Device:  deviceLabel,
	})
	return &models.TokenResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, userID id.UserID, email, deviceLabel, reason string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin("failed")
	}
	s.emitAudit(ctx, audit.Event{
		UserID:   userID,
		Subject:  email,
		Action:   string(audit.EventLoginFailed),
		Decision: "denied",
		Reason:   reason,
		Device:   deviceLabel,
	})
}

// Logout revokes the caller's current access token for its full lifetime.
func (s *Service) Logout(ctx context.Context) error {
	jti := requestcontext.TokenID(ctx)
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing token id")
	}
	if err := s.trl.RevokeToken(ctx, jti, s.tokens.TTL()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	userID := requestcontext.UserID(ctx)
	s.emitAudit(ctx, audit.Event{
		UserID:  userID,
		Subject: userID.String(),
		Action:  string(audit.EventLoggedOut),
	})
	return nil
}

// Me returns the authenticated user.
func (s *Service) Me(ctx context.Context) (*models.UserResponse, error) {
	user, err := s.users.FindByID(ctx, requestcontext.UserID(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return models.ToUserResponse(user), nil
}

// IsTokenRevoked satisfies the auth middleware's revocation checker.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.trl.IsRevoked(ctx, jti)
}

// BootstrapAdmin creates the initial admin account once. It is a no-op when
// credentials are not configured or an admin already exists.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.users.CountByRole(ctx, id.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return err
	}
	admin, err := models.NewUser(email, hash, "Administrator", "", id.RoleAdmin, id.InstitutionID{}, time.Now())
	if err != nil {
		return err
	}
	if err := s.users.Save(ctx, admin); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "user_id", admin.ID.String())
	return nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}
