// Package service manages counseling session reports and their file
// attachments.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	crmodels "yeirin/internal/counselrequest/models"
	"yeirin/internal/platform/objectstore"
	"yeirin/internal/report/metrics"
	"yeirin/internal/report/models"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/sentinel"
	"yeirin/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, reportID id.ReportID) (*models.Report, error)
	ListByCounselRequest(ctx context.Context, requestID id.CounselRequestID) ([]*models.Report, error)
	AddAttachment(ctx context.Context, reportID id.ReportID, att models.Attachment) error
}

// CounselRequests resolves a request the caller is allowed to see.
type CounselRequests interface {
	Visible(ctx context.Context, requestID id.CounselRequestID) (*crmodels.CounselRequest, error)
}

type ConsentChecker interface {
	Require(ctx context.Context, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose) error
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) (objectstore.Object, error)
	Delete(ctx context.Context, key string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Upload is one attachment as received from the client.
type Upload struct {
	FileName string
	Size     int64
	Body     io.ReadSeeker
}

type Service struct {
	store          Store
	requests       CounselRequests
	consents       ConsentChecker
	objects        ObjectStore
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

func New(store Store, requests CounselRequests, consents ConsentChecker, objects ObjectStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("report store is required")
	}
	if requests == nil {
		return nil, errors.New("counsel request lookup is required")
	}
	if consents == nil {
		return nil, errors.New("consent checker is required")
	}
	if objects == nil {
		return nil, errors.New("object store is required")
	}
	s := &Service{
		store:    store,
		requests: requests,
		consents: consents,
		objects:  objects,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create records a session report. Only staff of the handling institution
// may write, and only once counseling has started.
func (s *Service) Create(ctx context.Context, requestID id.CounselRequestID, req models.CreateRequest) (*models.ReportResponse, error) {
	if !requestcontext.Role(ctx).IsInstitutionStaff() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only institution staff can write reports")
	}
	cr, err := s.requests.Visible(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.Status != crmodels.StatusInProgress && cr.Status != crmodels.StatusCompleted {
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("reports cannot be written while counsel request is %s", cr.Status))
	}
	sessionDate, err := models.ParseSessionDate(req.SessionDate)
	if err != nil {
		return nil, err
	}
	report, err := models.NewReport(id.ReportID(uuid.New()), cr.ID, cr.SelectedInstitutionID,
		requestcontext.UserID(ctx), req.Title, req.Content, sessionDate, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, report); err != nil {
		return nil, s.wrapStoreErr(err, "failed to save report")
	}
	s.emit(ctx, audit.EventReportCreated, report, "")
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	return models.ToResponse(report), nil
}

// List returns a request's reports. Guardians additionally need
// report_sharing consent for the child.
func (s *Service) List(ctx context.Context, requestID id.CounselRequestID) (*models.ListResponse, error) {
	cr, err := s.requests.Visible(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if requestcontext.Role(ctx) == id.RoleGuardian {
		if err := s.consents.Require(ctx, cr.GuardianID, cr.ChildID, id.ConsentPurposeReportSharing); err != nil {
			return nil, err
		}
	}
	reports, err := s.store.ListByCounselRequest(ctx, cr.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reports")
	}
	return models.ToListResponse(reports), nil
}

// Attach stores a file against a report. The type is sniffed from content,
// not taken from the client.
func (s *Service) Attach(ctx context.Context, reportID id.ReportID, upload Upload) (*models.ReportResponse, error) {
	if !requestcontext.Role(ctx).IsInstitutionStaff() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only institution staff can attach files")
	}
	report, err := s.store.FindByID(ctx, reportID)
	if err != nil {
		return nil, s.wrapStoreErr(err, "failed to load report")
	}
	if _, err := s.requests.Visible(ctx, report.CounselRequestID); err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	if report.InstitutionID != requestcontext.InstitutionID(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}

	contentType, err := sniff(upload.Body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read file")
	}
	ext, err := models.CheckAttachment(contentType, upload.Size)
	if err != nil {
		return nil, err
	}

	key := models.ObjectKey(report.ID, uuid.NewString(), ext)
	obj, err := s.objects.Put(ctx, key, upload.Body, contentType)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementUploadFailure()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store file")
	}
	att := models.Attachment{
		Key:         obj.Key,
		URL:         obj.URL,
		FileName:    upload.FileName,
		ContentType: contentType,
		Size:        upload.Size,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.AddAttachment(ctx, report.ID, att); err != nil {
		if delErr := s.objects.Delete(ctx, obj.Key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned attachment", "key", obj.Key, "error", delErr)
		}
		return nil, s.wrapStoreErr(err, "failed to record attachment")
	}
	report.Attachments = append(report.Attachments, att)

	s.emit(ctx, audit.EventReportAttached, report, "key="+att.Key)
	if s.metrics != nil {
		s.metrics.ObserveAttachment(att.Size)
	}
	return models.ToResponse(report), nil
}

func sniff(body io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func (s *Service) wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "report already exists")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, r *models.Report, reason string) {
	s.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"report_id", r.ID.String(),
		"counsel_request_id", r.CounselRequestID.String(),
		"institution_id", r.InstitutionID.String(),
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    requestcontext.UserID(ctx),
		ActorID:   requestcontext.UserID(ctx).String(),
		Subject:   r.ID.String(),
		Action:    string(action),
		Purpose:   id.ConsentPurposeReportSharing.String(),
		Decision:  "recorded",
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", string(action))
	}
}
