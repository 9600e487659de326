package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"yeirin/internal/counselrequest/models"
	"yeirin/internal/platform/postgres"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
	txcontext "yeirin/pkg/platform/tx"
)

type PostgresStore struct {
	db     *sql.DB
	runner txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, runner: txcontext.NewSQLRunner(db)}
}

func selection(c *models.CounselRequest) uuid.NullUUID {
	if !c.HasSelection() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(c.SelectedInstitutionID), Valid: true}
}

func (s *PostgresStore) Create(ctx context.Context, req *models.CounselRequest) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO counsel_requests (id, guardian_id, child_id, request_text, status, selected_institution_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(req.ID), uuid.UUID(req.GuardianID), uuid.UUID(req.ChildID), req.Text,
		string(req.Status), selection(req), req.CreatedAt, req.UpdatedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return fmt.Errorf("counsel request %s: %w", req.ID, sentinel.ErrConflict)
		case postgres.IsForeignKeyViolation(err):
			return fmt.Errorf("counsel request references missing child: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert counsel request: %w", err)
	}
	return nil
}

const selectRequest = `SELECT id, guardian_id, child_id, request_text, status, selected_institution_id, created_at, updated_at FROM counsel_requests`

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.CounselRequestID) (*models.CounselRequest, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectRequest+` WHERE id = $1`, uuid.UUID(requestID))
	return scanRequest(row)
}

func (s *PostgresStore) ListByGuardian(ctx context.Context, guardianID id.UserID) ([]*models.CounselRequest, error) {
	return s.list(ctx, selectRequest+` WHERE guardian_id = $1 ORDER BY created_at DESC`, uuid.UUID(guardianID))
}

func (s *PostgresStore) ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.CounselRequest, error) {
	return s.list(ctx, selectRequest+` WHERE selected_institution_id = $1 ORDER BY created_at DESC`, uuid.UUID(institutionID))
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.CounselRequest, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list counsel requests: %w", err)
	}
	defer rows.Close()
	var out []*models.CounselRequest
	for rows.Next() {
		c, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Execute locks the row with SELECT ... FOR UPDATE, then validates and
// persists the mutation in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, requestID id.CounselRequestID, validate func(*models.CounselRequest) error, mutate func(*models.CounselRequest)) (*models.CounselRequest, error) {
	var result *models.CounselRequest
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		c, err := scanRequest(exec.QueryRowContext(ctx, selectRequest+` WHERE id = $1 FOR UPDATE`, uuid.UUID(requestID)))
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		_, err = exec.ExecContext(ctx, `
			UPDATE counsel_requests SET status = $2, selected_institution_id = $3, updated_at = $4
			WHERE id = $1
		`, uuid.UUID(c.ID), string(c.Status), selection(c), c.UpdatedAt)
		if err != nil {
			if postgres.IsForeignKeyViolation(err) {
				return fmt.Errorf("selected institution: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("update counsel request: %w", err)
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) ReplaceRecommendations(ctx context.Context, requestID id.CounselRequestID, recs []*models.Recommendation) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		if _, err := exec.ExecContext(ctx, `DELETE FROM counsel_request_recommendations WHERE counsel_request_id = $1`, uuid.UUID(requestID)); err != nil {
			return fmt.Errorf("clear recommendations: %w", err)
		}
		for _, r := range recs {
			_, err := exec.ExecContext(ctx, `
				INSERT INTO counsel_request_recommendations
					(id, counsel_request_id, institution_id, center_name, rank, score, reason, is_high_score, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, uuid.UUID(r.ID), uuid.UUID(requestID), r.InstitutionID, r.CenterName, r.Rank,
				r.Score, r.Reason, r.IsHighScore, r.CreatedAt)
			if err != nil {
				if postgres.IsForeignKeyViolation(err) {
					return fmt.Errorf("counsel request not found: %w", sentinel.ErrNotFound)
				}
				return fmt.Errorf("insert recommendation: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListRecommendations(ctx context.Context, requestID id.CounselRequestID) ([]*models.Recommendation, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT id, counsel_request_id, institution_id, center_name, rank, score, reason, is_high_score, created_at
		FROM counsel_request_recommendations WHERE counsel_request_id = $1 ORDER BY rank
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()
	out := []*models.Recommendation{}
	for rows.Next() {
		var (
			r            models.Recommendation
			recID, reqID uuid.UUID
		)
		if err := rows.Scan(&recID, &reqID, &r.InstitutionID, &r.CenterName, &r.Rank,
			&r.Score, &r.Reason, &r.IsHighScore, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		r.ID = id.RecommendationID(recID)
		r.CounselRequestID = id.CounselRequestID(reqID)
		out = append(out, &r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*models.CounselRequest, error) {
	var (
		c                            models.CounselRequest
		requestID, guardian, childID uuid.UUID
		status                       string
		selected                     uuid.NullUUID
	)
	if err := row.Scan(&requestID, &guardian, &childID, &c.Text, &status, &selected, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("counsel request not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan counsel request: %w", err)
	}
	c.ID = id.CounselRequestID(requestID)
	c.GuardianID = id.UserID(guardian)
	c.ChildID = id.ChildID(childID)
	c.Status = models.Status(status)
	if selected.Valid {
		c.SelectedInstitutionID = id.InstitutionID(selected.UUID)
	}
	return &c, nil
}
