package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"yeirin/internal/platform/postgres"
	"yeirin/internal/report/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
	txcontext "yeirin/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, report *models.Report) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO reports (id, counsel_request_id, institution_id, author_id, title, content, session_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(report.ID), uuid.UUID(report.CounselRequestID), uuid.UUID(report.InstitutionID),
		uuid.UUID(report.AuthorID), report.Title, report.Content, report.SessionDate, report.CreatedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return fmt.Errorf("report %s: %w", report.ID, sentinel.ErrConflict)
		case postgres.IsForeignKeyViolation(err):
			return fmt.Errorf("report references missing counsel request: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

const selectReport = `SELECT id, counsel_request_id, institution_id, author_id, title, content, session_date, created_at FROM reports`

func (s *PostgresStore) FindByID(ctx context.Context, reportID id.ReportID) (*models.Report, error) {
	exec := txcontext.ExecutorFrom(ctx, s.db)
	r, err := scanReport(exec.QueryRowContext(ctx, selectReport+` WHERE id = $1`, uuid.UUID(reportID)))
	if err != nil {
		return nil, err
	}
	if err := s.loadAttachments(ctx, []*models.Report{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListByCounselRequest(ctx context.Context, requestID id.CounselRequestID) ([]*models.Report, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		selectReport+` WHERE counsel_request_id = $1 ORDER BY session_date, created_at`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	var out []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if err := s.loadAttachments(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) AddAttachment(ctx context.Context, reportID id.ReportID, att models.Attachment) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO report_attachments (report_id, object_key, url, file_name, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(reportID), att.Key, att.URL, att.FileName, att.ContentType, att.Size, att.CreatedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return fmt.Errorf("attachment %s: %w", att.Key, sentinel.ErrConflict)
		case postgres.IsForeignKeyViolation(err):
			return fmt.Errorf("report not found: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadAttachments(ctx context.Context, reports []*models.Report) error {
	if len(reports) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Report, len(reports))
	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		byID[uuid.UUID(r.ID)] = r
		ids = append(ids, r.ID.String())
	}
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT report_id, object_key, url, file_name, content_type, size_bytes, created_at
		FROM report_attachments WHERE report_id = ANY($1::uuid[]) ORDER BY created_at
	`, pq.StringArray(ids))
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			reportID uuid.UUID
			a        models.Attachment
		)
		if err := rows.Scan(&reportID, &a.Key, &a.URL, &a.FileName, &a.ContentType, &a.Size, &a.CreatedAt); err != nil {
			return fmt.Errorf("scan attachment: %w", err)
		}
		if r, ok := byID[reportID]; ok {
			r.Attachments = append(r.Attachments, a)
		}
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*models.Report, error) {
	var (
		r                                        models.Report
		reportID, requestID, institutionID, auth uuid.UUID
	)
	err := row.Scan(&reportID, &requestID, &institutionID, &auth, &r.Title, &r.Content, &r.SessionDate, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	r.ID = id.ReportID(reportID)
	r.CounselRequestID = id.CounselRequestID(requestID)
	r.InstitutionID = id.InstitutionID(institutionID)
	r.AuthorID = id.UserID(auth)
	r.SessionDate = r.SessionDate.UTC()
	return &r, nil
}
