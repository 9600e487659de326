package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"yeirin/internal/platform/postgres"
	"yeirin/internal/review/models"
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

func (s *PostgresStore) Create(ctx context.Context, review *models.Review) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO reviews (id, institution_id, counsel_request_id, guardian_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(review.ID), uuid.UUID(review.InstitutionID), uuid.UUID(review.CounselRequestID),
		uuid.UUID(review.GuardianID), review.Rating, review.Comment, review.CreatedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return fmt.Errorf("review for counsel request %s: %w", review.CounselRequestID, sentinel.ErrConflict)
		case postgres.IsForeignKeyViolation(err):
			return fmt.Errorf("review references missing institution or request: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Review, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT id, institution_id, counsel_request_id, guardian_id, rating, comment, created_at
		FROM reviews WHERE institution_id = $1 ORDER BY created_at DESC
	`, uuid.UUID(institutionID))
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()
	var out []*models.Review
	for rows.Next() {
		var (
			r                                 models.Review
			reviewID, instID, reqID, guardian uuid.UUID
		)
		if err := rows.Scan(&reviewID, &instID, &reqID, &guardian, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.ID = id.ReviewID(reviewID)
		r.InstitutionID = id.InstitutionID(instID)
		r.CounselRequestID = id.CounselRequestID(reqID)
		r.GuardianID = id.UserID(guardian)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, reviewID id.ReviewID) error {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, uuid.UUID(reviewID))
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("review not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
