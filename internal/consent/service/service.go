// Package service persists guardian consent decisions and answers
// purpose-aware checks for the other modules.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	childmodels "yeirin/internal/child/models"
	"yeirin/internal/consent/metrics"
	"yeirin/internal/consent/models"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/sentinel"
	txcontext "yeirin/pkg/platform/tx"
	"yeirin/pkg/requestcontext"
)

const DefaultTTL = 365 * 24 * time.Hour

type Store interface {
	Save(ctx context.Context, consent *models.Consent) error
	Find(ctx context.Context, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose) (*models.Consent, error)
	ListByChild(ctx context.Context, guardianID id.UserID, childID id.ChildID) ([]*models.Consent, error)
}

// ChildOwnership hides children from anyone but their guardian.
type ChildOwnership interface {
	OwnedChild(ctx context.Context, guardianID id.UserID, childID id.ChildID) (*childmodels.Child, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	children       ChildOwnership
	tx             txcontext.Runner
	ttl            time.Duration
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

// WithTx runs multi-purpose grants and revocations in one unit of work.
func WithTx(runner txcontext.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(store Store, children ChildOwnership, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("consent store is required")
	}
	if children == nil {
		return nil, errors.New("child ownership checker is required")
	}
	s := &Service{
		store:    store,
		children: children,
		tx:       txcontext.NoopRunner{},
		ttl:      DefaultTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Grant records consent for each purpose. An existing record for the same
// purpose is renewed rather than duplicated.
func (s *Service) Grant(ctx context.Context, req models.GrantRequest) (*models.ListResponse, error) {
	guardianID, childID, purposes, err := s.resolve(ctx, req.ChildID, req.Purposes)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	granted := make([]*models.Consent, 0, len(purposes))
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, purpose := range purposes {
			c, err := s.store.Find(ctx, guardianID, childID, purpose)
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				c, err = models.NewConsent(id.ConsentID(uuid.New()), guardianID, childID, purpose, now, s.ttl)
				if err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				c.Renew(now, s.ttl)
			}
			if err := s.store.Save(ctx, c); err != nil {
				return err
			}
			granted = append(granted, c)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(err, "failed to grant consent")
	}
	for _, c := range granted {
		s.emit(ctx, audit.EventConsentGranted, c, "granted", "")
		if s.metrics != nil {
			s.metrics.IncrementGranted(c.Purpose.String())
		}
	}
	return models.ToListResponse(granted, now), nil
}

// Revoke withdraws consent for each purpose. Purposes never granted or
// already inactive are skipped.
func (s *Service) Revoke(ctx context.Context, req models.RevokeRequest) (*models.ListResponse, error) {
	guardianID, childID, purposes, err := s.resolve(ctx, req.ChildID, req.Purposes)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	var revoked []*models.Consent
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, purpose := range purposes {
			c, err := s.store.Find(ctx, guardianID, childID, purpose)
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !c.Revoke(now) {
				continue
			}
			if err := s.store.Save(ctx, c); err != nil {
				return err
			}
			revoked = append(revoked, c)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(err, "failed to revoke consent")
	}
	for _, c := range revoked {
		s.emit(ctx, audit.EventConsentRevoked, c, "revoked", "")
		if s.metrics != nil {
			s.metrics.IncrementRevoked(c.Purpose.String())
		}
	}
	return s.listFor(ctx, guardianID, childID)
}

// List returns every consent the caller holds for a child.
func (s *Service) List(ctx context.Context, rawChildID string) (*models.ListResponse, error) {
	childID, err := id.ParseChildID(rawChildID)
	if err != nil {
		return nil, err
	}
	guardianID := requestcontext.UserID(ctx)
	if _, err := s.children.OwnedChild(ctx, guardianID, childID); err != nil {
		return nil, err
	}
	return s.listFor(ctx, guardianID, childID)
}

// Require fails with missing_consent unless the guardian holds an active
// consent for purpose on the child.
func (s *Service) Require(ctx context.Context, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose) error {
	consents, err := s.store.ListByChild(ctx, guardianID, childID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consents")
	}
	if err := models.EnsureConsent(consents, purpose, requestcontext.Now(ctx)); err != nil {
		s.emit(ctx, audit.EventConsentDenied, &models.Consent{GuardianID: guardianID, ChildID: childID, Purpose: purpose}, "denied", "missing_consent")
		if s.metrics != nil {
			s.metrics.IncrementDenied(purpose.String())
		}
		return err
	}
	return nil
}

// Has reports whether an active consent exists without recording a denial.
// Used for optional side effects such as notifications.
func (s *Service) Has(ctx context.Context, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose) (bool, error) {
	consents, err := s.store.ListByChild(ctx, guardianID, childID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consents")
	}
	return models.EnsureConsent(consents, purpose, requestcontext.Now(ctx)) == nil, nil
}

func (s *Service) resolve(ctx context.Context, rawChildID string, rawPurposes []string) (id.UserID, id.ChildID, []id.ConsentPurpose, error) {
	childID, err := id.ParseChildID(rawChildID)
	if err != nil {
		return id.UserID{}, id.ChildID{}, nil, err
	}
	purposes, err := models.ParsePurposes(rawPurposes)
	if err != nil {
		return id.UserID{}, id.ChildID{}, nil, err
	}
	guardianID := requestcontext.UserID(ctx)
	if _, err := s.children.OwnedChild(ctx, guardianID, childID); err != nil {
		return id.UserID{}, id.ChildID{}, nil, err
	}
	return guardianID, childID, purposes, nil
}

func (s *Service) listFor(ctx context.Context, guardianID id.UserID, childID id.ChildID) (*models.ListResponse, error) {
	consents, err := s.store.ListByChild(ctx, guardianID, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	return models.ToListResponse(consents, requestcontext.Now(ctx)), nil
}

func (s *Service) wrapErr(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, c *models.Consent, decision, reason string) {
	s.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"guardian_id", c.GuardianID.String(),
		"child_id", c.ChildID.String(),
		"purpose", c.Purpose.String(),
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    c.GuardianID,
		Subject:   c.ChildID.String(),
		Action:    string(action),
		Purpose:   c.Purpose.String(),
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", string(action))
	}
}
