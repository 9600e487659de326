// Package service runs the counsel request lifecycle: creation, stored
// recommendations, institution selection and the institution-side workflow.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	childmodels "yeirin/internal/child/models"
	"yeirin/internal/counselrequest/metrics"
	"yeirin/internal/counselrequest/models"
	instmodels "yeirin/internal/institution/models"
	matchingmodels "yeirin/internal/matching/models"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/sentinel"
	txcontext "yeirin/pkg/platform/tx"
	"yeirin/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, req *models.CounselRequest) error
	FindByID(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequest, error)
	ListByGuardian(ctx context.Context, guardianID id.UserID) ([]*models.CounselRequest, error)
	ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.CounselRequest, error)
	Execute(ctx context.Context, requestID id.CounselRequestID, validate func(*models.CounselRequest) error, mutate func(*models.CounselRequest)) (*models.CounselRequest, error)
	ReplaceRecommendations(ctx context.Context, requestID id.CounselRequestID, recs []*models.Recommendation) error
	ListRecommendations(ctx context.Context, requestID id.CounselRequestID) ([]*models.Recommendation, error)
}

// Recommender is the matching use case.
type Recommender interface {
	RequestCounselorRecommendation(ctx context.Context, rawText string) (*matchingmodels.RecommendationResponse, error)
}

type ChildOwnership interface {
	OwnedChild(ctx context.Context, guardianID id.UserID, childID id.ChildID) (*childmodels.Child, error)
}

type ConsentChecker interface {
	Require(ctx context.Context, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose) error
	Has(ctx context.Context, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose) (bool, error)
}

type InstitutionDirectory interface {
	GetInstitution(ctx context.Context, institutionID id.InstitutionID) (*instmodels.Institution, error)
}

// Notifier delivers a text message to a guardian.
type Notifier interface {
	NotifyGuardian(ctx context.Context, guardianID id.UserID, requestID id.CounselRequestID, body string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	recommender    Recommender
	children       ChildOwnership
	consents       ConsentChecker
	institutions   InstitutionDirectory
	notifier       Notifier
	tx             txcontext.Runner
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

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithTx(runner txcontext.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(store Store, recommender Recommender, children ChildOwnership, consents ConsentChecker, institutions InstitutionDirectory, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("counsel request store is required")
	case recommender == nil:
		return nil, errors.New("recommender is required")
	case children == nil:
		return nil, errors.New("child ownership checker is required")
	case consents == nil:
		return nil, errors.New("consent checker is required")
	case institutions == nil:
		return nil, errors.New("institution directory is required")
	}
	s := &Service{
		store:        store,
		recommender:  recommender,
		children:     children,
		consents:     consents,
		institutions: institutions,
		tx:           txcontext.NoopRunner{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Create(ctx context.Context, req models.CreateRequest) (*models.CounselRequestResponse, error) {
	guardianID := requestcontext.UserID(ctx)
	childID, err := id.ParseChildID(req.ChildID)
	if err != nil {
		return nil, err
	}
	if _, err := s.children.OwnedChild(ctx, guardianID, childID); err != nil {
		return nil, err
	}
	c, err := models.NewCounselRequest(id.CounselRequestID(uuid.New()), guardianID, childID, req.RequestText, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, wrapStoreErr(err, "failed to create counsel request")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.emit(ctx, audit.EventCounselRequestCreated, c, "")
	resp := models.ToResponse(c)
	return &resp, nil
}

// List returns the guardian's own requests, or for institution staff the
// requests that selected their institution.
func (s *Service) List(ctx context.Context) (*models.ListResponse, error) {
	var (
		list []*models.CounselRequest
		err  error
	)
	switch role := requestcontext.Role(ctx); {
	case role == id.RoleGuardian:
		list, err = s.store.ListByGuardian(ctx, requestcontext.UserID(ctx))
	case role.IsInstitutionStaff():
		list, err = s.store.ListByInstitution(ctx, requestcontext.InstitutionID(ctx))
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "role cannot list counsel requests")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list counsel requests")
	}
	return models.ToListResponse(list), nil
}

func (s *Service) Get(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	c, err := s.Visible(ctx, requestID)
	if err != nil {
		return nil, err
	}
	resp := models.ToResponse(c)
	return &resp, nil
}

// Visible loads a request the caller may see: its guardian, staff of the
// selected institution, or an admin. Anyone else gets not_found.
func (s *Service) Visible(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequest, error) {
	c, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canView(ctx, c) {
		return nil, dErrors.New(dErrors.CodeNotFound, "counsel request not found")
	}
	return c, nil
}

func canView(ctx context.Context, c *models.CounselRequest) bool {
	role := requestcontext.Role(ctx)
	switch {
	case role == id.RoleAdmin:
		return true
	case role == id.RoleGuardian:
		return c.GuardianID == requestcontext.UserID(ctx)
	case role.IsInstitutionStaff():
		return c.HasSelection() && c.SelectedInstitutionID == requestcontext.InstitutionID(ctx)
	}
	return false
}

// RequestRecommendations asks the matching use case for candidates and
// replaces any previously stored ones.
func (s *Service) RequestRecommendations(ctx context.Context, requestID id.CounselRequestID) (*models.RecommendationListResponse, error) {
	c, err := s.owned(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := c.CanRequestRecommendations(); err != nil {
		return nil, err
	}
	matched, err := s.recommender.RequestCounselorRecommendation(ctx, c.Text)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	recs := models.FromMatching(c.ID, matched, now)

	var updated *models.CounselRequest
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.store.Execute(ctx, requestID,
			func(c *models.CounselRequest) error { return c.CanRequestRecommendations() },
			func(c *models.CounselRequest) { c.MarkRecommended(now) },
		)
		if err != nil {
			return err
		}
		return s.store.ReplaceRecommendations(ctx, requestID, recs)
	})
	if err != nil {
		return nil, wrapStoreErr(err, "failed to store recommendations")
	}
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(models.StatusRecommended))
		s.metrics.ObserveRecommendations(len(recs))
	}
	return models.ToRecommendationList(updated, recs), nil
}

func (s *Service) ListRecommendations(ctx context.Context, requestID id.CounselRequestID) (*models.RecommendationListResponse, error) {
	c, err := s.Visible(ctx, requestID)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.ListRecommendations(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recommendations")
	}
	return models.ToRecommendationList(c, recs), nil
}

// Select matches the request with one of its stored candidates. The
// institution must be registered and active, and the guardian must hold
// counsel_matching consent for the child.
func (s *Service) Select(ctx context.Context, requestID id.CounselRequestID, req models.SelectRequest) (*models.CounselRequestResponse, error) {
	c, err := s.owned(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := c.CanMoveTo(models.StatusMatched); err != nil {
		return nil, err
	}
	recs, err := s.store.ListRecommendations(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recommendations")
	}
	if _, ok := models.FindInstitution(recs, req.InstitutionID); !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "institution was not recommended for this request")
	}
	institutionID, err := id.ParseInstitutionID(req.InstitutionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "recommended institution is not registered")
	}
	inst, err := s.institutions.GetInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	if !inst.IsActive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution is not accepting requests")
	}
	if err := s.consents.Require(ctx, c.GuardianID, c.ChildID, id.ConsentPurposeCounselMatching); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, requestID,
		func(c *models.CounselRequest) error { return c.CanMoveTo(models.StatusMatched) },
		func(c *models.CounselRequest) { c.Select(institutionID, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to select institution")
	}
	s.transitioned(ctx, audit.EventCounselRequestMatched, updated)
	s.notify(ctx, updated, fmt.Sprintf("[Yeirin] 상담 요청이 %s에 전달되었습니다.", inst.Name))
	resp := models.ToResponse(updated)
	return &resp, nil
}

// Accept starts counseling. Only staff of the selected institution may accept.
func (s *Service) Accept(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	now := requestcontext.Now(ctx)
	updated, err := s.staffTransition(ctx, requestID, models.StatusInProgress, func(c *models.CounselRequest) { c.Accept(now) })
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, audit.EventCounselRequestAccepted, updated)
	body := "[Yeirin] 기관에서 상담 요청을 수락했습니다."
	if inst, err := s.institutions.GetInstitution(ctx, updated.SelectedInstitutionID); err == nil {
		body = fmt.Sprintf("[Yeirin] %s에서 상담 요청을 수락했습니다.", inst.Name)
	}
	s.notify(ctx, updated, body)
	resp := models.ToResponse(updated)
	return &resp, nil
}

// Reject releases the request back to the guardian's recommendation list.
func (s *Service) Reject(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	now := requestcontext.Now(ctx)
	updated, err := s.staffTransition(ctx, requestID, models.StatusRecommended, func(c *models.CounselRequest) { c.Reject(now) })
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, audit.EventCounselRequestRejected, updated)
	resp := models.ToResponse(updated)
	return &resp, nil
}

func (s *Service) Complete(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	now := requestcontext.Now(ctx)
	updated, err := s.staffTransition(ctx, requestID, models.StatusCompleted, func(c *models.CounselRequest) { c.Complete(now) })
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, audit.EventCounselRequestCompleted, updated)
	resp := models.ToResponse(updated)
	return &resp, nil
}

// Cancel is available to the guardian until counseling starts.
func (s *Service) Cancel(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	if _, err := s.owned(ctx, requestID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, requestID,
		func(c *models.CounselRequest) error { return c.CanMoveTo(models.StatusCancelled) },
		func(c *models.CounselRequest) { c.Cancel(now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to cancel counsel request")
	}
	s.transitioned(ctx, audit.EventCounselRequestCancelled, updated)
	resp := models.ToResponse(updated)
	return &resp, nil
}

func (s *Service) staffTransition(ctx context.Context, requestID id.CounselRequestID, next models.Status, mutate func(*models.CounselRequest)) (*models.CounselRequest, error) {
	staffInstitution := requestcontext.InstitutionID(ctx)
	if !requestcontext.Role(ctx).IsInstitutionStaff() || staffInstitution.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "institution staff only")
	}
	updated, err := s.store.Execute(ctx, requestID,
		func(c *models.CounselRequest) error {
			if c.SelectedInstitutionID != staffInstitution {
				return dErrors.New(dErrors.CodeNotFound, "counsel request not found")
			}
			return c.CanMoveTo(next)
		},
		mutate,
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to update counsel request")
	}
	return updated, nil
}

func (s *Service) owned(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequest, error) {
	c, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if c.GuardianID != requestcontext.UserID(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "counsel request not found")
	}
	return c, nil
}

func (s *Service) load(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequest, error) {
	c, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load counsel request")
	}
	return c, nil
}

// notify sends an SMS only when the guardian opted in. Failures are logged
// and never undo the transition.
func (s *Service) notify(ctx context.Context, c *models.CounselRequest, body string) {
	if s.notifier == nil {
		return
	}
	ok, err := s.consents.Has(ctx, c.GuardianID, c.ChildID, id.ConsentPurposeSMSNotification)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to check sms consent", "error", err, "counsel_request_id", c.ID.String())
		return
	}
	if !ok {
		return
	}
	if err := s.notifier.NotifyGuardian(ctx, c.GuardianID, c.ID, body); err != nil {
		s.logger.WarnContext(ctx, "failed to notify guardian", "error", err, "counsel_request_id", c.ID.String())
	}
}

func (s *Service) transitioned(ctx context.Context, action audit.AuditEvent, c *models.CounselRequest) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(c.Status))
	}
	reason := ""
	if c.HasSelection() {
		reason = "institution=" + c.SelectedInstitutionID.String()
	}
	s.emit(ctx, action, c, reason)
}

func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "counsel request not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "counsel request already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, c *models.CounselRequest, reason string) {
	s.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"counsel_request_id", c.ID.String(),
		"status", string(c.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    c.GuardianID,
		ActorID:   requestcontext.UserID(ctx).String(),
		Subject:   c.ID.String(),
		Action:    string(action),
		Decision:  string(c.Status),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", string(action))
	}
}
