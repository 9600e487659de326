// Package service manages children registered by guardians.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"yeirin/internal/child/models"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/sentinel"
	"yeirin/pkg/requestcontext"
)

type Store interface {
	Save(ctx context.Context, child *models.Child) error
	FindByID(ctx context.Context, childID id.ChildID) (*models.Child, error)
	ListByGuardian(ctx context.Context, guardianID id.UserID) ([]*models.Child, error)
	Delete(ctx context.Context, childID id.ChildID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) RegisterChild(ctx context.Context, req models.CreateChildRequest) (*models.ChildResponse, error) {
	guardianID := requestcontext.UserID(ctx)
	birth, err := time.Parse(models.DateLayout, req.BirthDate)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "birthDate must match 2006-01-02")
	}
	now := requestcontext.Now(ctx)
	child, err := models.NewChild(id.ChildID(uuid.New()), guardianID, req.Name, birth, models.Gender(req.Gender), req.Notes, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, child); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save child")
	}
	s.emit(ctx, audit.EventChildRegistered, child.ID)
	resp := models.ToResponse(child, now)
	return &resp, nil
}

func (s *Service) ListChildren(ctx context.Context) (*models.ListResponse, error) {
	children, err := s.store.ListByGuardian(ctx, requestcontext.UserID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list children")
	}
	now := requestcontext.Now(ctx)
	resp := &models.ListResponse{Children: make([]models.ChildResponse, 0, len(children))}
	for _, c := range children {
		resp.Children = append(resp.Children, models.ToResponse(c, now))
	}
	return resp, nil
}

func (s *Service) GetChild(ctx context.Context, childID id.ChildID) (*models.ChildResponse, error) {
	child, err := s.OwnedChild(ctx, requestcontext.UserID(ctx), childID)
	if err != nil {
		return nil, err
	}
	resp := models.ToResponse(child, requestcontext.Now(ctx))
	return &resp, nil
}

func (s *Service) DeleteChild(ctx context.Context, childID id.ChildID) error {
	if _, err := s.OwnedChild(ctx, requestcontext.UserID(ctx), childID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, childID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "child not found")
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "child has counsel requests")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete child")
	}
	s.emit(ctx, audit.EventChildDeleted, childID)
	return nil
}

// OwnedChild loads a child and hides it from anyone but its guardian.
func (s *Service) OwnedChild(ctx context.Context, guardianID id.UserID, childID id.ChildID) (*models.Child, error) {
	child, err := s.store.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "child not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load child")
	}
	if child.GuardianID != guardianID {
		return nil, dErrors.New(dErrors.CodeNotFound, "child not found")
	}
	return child, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, childID id.ChildID) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:  requestcontext.UserID(ctx),
		Subject: childID.String(),
		Action:  string(action),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", string(action))
	}
}
