// Package service manages the institution lifecycle.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"yeirin/internal/institution/metrics"
	"yeirin/internal/institution/models"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/sentinel"
	"yeirin/pkg/requestcontext"
)

type Store interface {
	CreateIfNameAvailable(ctx context.Context, inst *models.Institution) error
	FindByID(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error)
	List(ctx context.Context, kind models.InstitutionType) ([]*models.Institution, error)
	Execute(ctx context.Context, institutionID id.InstitutionID, validate func(*models.Institution) error, mutate func(*models.Institution)) (*models.Institution, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateInstitution(ctx context.Context, req models.CreateInstitutionRequest) (*models.Institution, error) {
	inst, err := models.NewInstitution(id.InstitutionID(uuid.New()), req.Name, models.InstitutionType(req.Type),
		req.Address, req.Phone, req.Capacity, req.ServiceTags, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	if err := s.store.CreateIfNameAvailable(ctx, inst); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "institution name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create institution")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.emit(ctx, audit.EventInstitutionCreated, inst.ID)
	return inst, nil
}

func (s *Service) GetInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	inst, err := s.store.FindByID(ctx, institutionID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load institution")
	}
	return inst, nil
}

// ListInstitutions returns every institution, optionally filtered by type.
func (s *Service) ListInstitutions(ctx context.Context, kind string) ([]*models.Institution, error) {
	t := models.InstitutionType(kind)
	if kind != "" && !t.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "type must be one of [care_facility community_center school_welfare]")
	}
	list, err := s.store.List(ctx, t)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list institutions")
	}
	if list == nil {
		list = []*models.Institution{}
	}
	return list, nil
}

// UpdateInstitution applies a partial update. Admins may edit any
// institution; staff only their own.
func (s *Service) UpdateInstitution(ctx context.Context, institutionID id.InstitutionID, req models.UpdateInstitutionRequest) (*models.Institution, error) {
	if err := authorizeEdit(ctx, institutionID); err != nil {
		return nil, err
	}
	patch := req.Patch()
	now := requestcontext.Now(ctx)
	inst, err := s.store.Execute(ctx, institutionID,
		func(i *models.Institution) error {
			if err := i.CanApply(patch); err != nil {
				return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
			}
			return nil
		},
		func(i *models.Institution) { i.ApplyPatch(patch, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to update institution")
	}
	s.emit(ctx, audit.EventInstitutionUpdated, inst.ID)
	return inst, nil
}

func authorizeEdit(ctx context.Context, institutionID id.InstitutionID) error {
	role := requestcontext.Role(ctx)
	if role == id.RoleAdmin {
		return nil
	}
	if role.IsInstitutionStaff() && requestcontext.InstitutionID(ctx) == institutionID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "not allowed to edit this institution")
}

func (s *Service) DeactivateInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	now := requestcontext.Now(ctx)
	inst, err := s.store.Execute(ctx, institutionID,
		func(i *models.Institution) error {
			if err := i.CanDeactivate(); err != nil {
				return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
			}
			return nil
		},
		func(i *models.Institution) { i.ApplyDeactivation(now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to deactivate institution")
	}
	if s.metrics != nil {
		s.metrics.IncrementStatusChange(string(models.StatusInactive))
	}
	s.emit(ctx, audit.EventInstitutionDeactivated, inst.ID)
	return inst, nil
}

func (s *Service) ReactivateInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	now := requestcontext.Now(ctx)
	inst, err := s.store.Execute(ctx, institutionID,
		func(i *models.Institution) error {
			if err := i.CanReactivate(); err != nil {
				return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
			}
			return nil
		},
		func(i *models.Institution) { i.ApplyReactivation(now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to reactivate institution")
	}
	if s.metrics != nil {
		s.metrics.IncrementStatusChange(string(models.StatusActive))
	}
	s.emit(ctx, audit.EventInstitutionReactivated, inst.ID)
	return inst, nil
}

// ApplyReview folds a new rating into the institution's running average.
func (s *Service) ApplyReview(ctx context.Context, institutionID id.InstitutionID, rating int) error {
	now := requestcontext.Now(ctx)
	var applyErr error
	_, err := s.store.Execute(ctx, institutionID,
		func(i *models.Institution) error {
			if rating < 1 || rating > 5 {
				return dErrors.New(dErrors.CodeValidation, "rating must be between 1 and 5")
			}
			return nil
		},
		func(i *models.Institution) { applyErr = i.ApplyReview(rating, now) },
	)
	if err != nil {
		return wrapStoreErr(err, "failed to apply review")
	}
	if applyErr != nil {
		return applyErr
	}
	if s.metrics != nil {
		s.metrics.IncrementReviewApplied()
	}
	return nil
}

// IsActive reports whether the institution exists and is active. A missing
// institution is returned as sentinel.ErrNotFound for callers in other modules.
func (s *Service) IsActive(ctx context.Context, institutionID id.InstitutionID) (bool, error) {
	inst, err := s.store.FindByID(ctx, institutionID)
	if err != nil {
		return false, err
	}
	return inst.IsActive(), nil
}

func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "institution not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "institution name must be unique")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, institutionID id.InstitutionID) {
	s.logger.InfoContext(ctx, string(action),
		"institution_id", institutionID.String(),
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:  requestcontext.UserID(ctx),
		ActorID: requestcontext.UserID(ctx).String(),
		Subject: institutionID.String(),
		Action:  string(action),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", string(action))
	}
}
