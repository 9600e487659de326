// Package service records guardian reviews of institutions and keeps the
// institution's rating aggregate current.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	crmodels "yeirin/internal/counselrequest/models"
	"yeirin/internal/review/models"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/sentinel"
	txcontext "yeirin/pkg/platform/tx"
	"yeirin/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, review *models.Review) error
	ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Review, error)
	Delete(ctx context.Context, reviewID id.ReviewID) error
}

type CounselRequests interface {
	Visible(ctx context.Context, requestID id.CounselRequestID) (*crmodels.CounselRequest, error)
}

// Ratings folds a rating into an institution's average.
type Ratings interface {
	ApplyReview(ctx context.Context, institutionID id.InstitutionID, rating int) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	requests       CounselRequests
	ratings        Ratings
	tx             txcontext.Runner
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

// WithTx makes the review insert and the rating update one unit of work.
func WithTx(runner txcontext.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(store Store, requests CounselRequests, ratings Ratings, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("review store is required")
	}
	if requests == nil {
		return nil, errors.New("counsel request lookup is required")
	}
	if ratings == nil {
		return nil, errors.New("institution ratings are required")
	}
	s := &Service{
		store:    store,
		requests: requests,
		ratings:  ratings,
		tx:       txcontext.NoopRunner{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create reviews an institution for one of the guardian's completed requests.
func (s *Service) Create(ctx context.Context, institutionID id.InstitutionID, req models.CreateRequest) (*models.ReviewResponse, error) {
	if requestcontext.Role(ctx) != id.RoleGuardian {
		return nil, dErrors.New(dErrors.CodeForbidden, "only guardians can write reviews")
	}
	requestID, err := id.ParseCounselRequestID(req.CounselRequestID)
	if err != nil {
		return nil, err
	}
	cr, err := s.requests.Visible(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.GuardianID != requestcontext.UserID(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "counsel request not found")
	}
	if cr.Status != crmodels.StatusCompleted || cr.SelectedInstitutionID != institutionID {
		return nil, dErrors.New(dErrors.CodeConflict, "counsel request was not completed with this institution")
	}

	review, err := models.NewReview(id.ReviewID(uuid.New()), institutionID, cr.ID, cr.GuardianID,
		req.Rating, req.Comment, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	created := false
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, review); err != nil {
			return err
		}
		created = true
		return s.ratings.ApplyReview(ctx, institutionID, review.Rating)
	})
	if err != nil {
		if created {
			s.undo(ctx, review.ID)
		}
		return nil, s.wrapStoreErr(err)
	}

	s.emit(ctx, review)
	return models.ToResponse(review), nil
}

// List returns an institution's reviews, newest first.
func (s *Service) List(ctx context.Context, institutionID id.InstitutionID) (*models.ListResponse, error) {
	reviews, err := s.store.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reviews")
	}
	return models.ToListResponse(reviews), nil
}

// undo removes a review whose rating was not applied. Under a SQL runner the
// rollback already did this and Delete reports not found.
func (s *Service) undo(ctx context.Context, reviewID id.ReviewID) {
	if err := s.store.Delete(ctx, reviewID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to remove unapplied review", "review_id", reviewID.String(), "error", err)
	}
}

func (s *Service) wrapStoreErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "review already submitted for this counsel request")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "institution not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save review")
}

func (s *Service) emit(ctx context.Context, r *models.Review) {
	s.logger.InfoContext(ctx, string(audit.EventReviewCreated),
		"log_type", "audit",
		"review_id", r.ID.String(),
		"institution_id", r.InstitutionID.String(),
		"rating", r.Rating,
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    r.GuardianID,
		Subject:   r.InstitutionID.String(),
		Action:    string(audit.EventReviewCreated),
		Decision:  "recorded",
		Reason:    "counsel_request=" + r.CounselRequestID.String(),
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", string(audit.EventReviewCreated))
	}
}
