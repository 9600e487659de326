package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"yeirin/internal/child/models"
	"yeirin/internal/platform/postgres"
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

func (s *PostgresStore) Save(ctx context.Context, child *models.Child) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO children (id, guardian_id, name, birth_date, gender, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			birth_date = EXCLUDED.birth_date,
			gender = EXCLUDED.gender,
			notes = EXCLUDED.notes
	`, uuid.UUID(child.ID), uuid.UUID(child.GuardianID), child.Name, child.BirthDate,
		string(child.Gender), child.Notes, child.CreatedAt)
	if err != nil {
		return fmt.Errorf("save child: %w", err)
	}
	return nil
}

const selectChild = `SELECT id, guardian_id, name, birth_date, gender, notes, created_at FROM children`

func (s *PostgresStore) FindByID(ctx context.Context, childID id.ChildID) (*models.Child, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectChild+` WHERE id = $1`, uuid.UUID(childID))
	return scanChild(row)
}

func (s *PostgresStore) ListByGuardian(ctx context.Context, guardianID id.UserID) ([]*models.Child, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		selectChild+` WHERE guardian_id = $1 ORDER BY created_at`, uuid.UUID(guardianID))
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()
	var out []*models.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a child. A child still referenced by counsel requests is
// sentinel.ErrConflict.
func (s *PostgresStore) Delete(ctx context.Context, childID id.ChildID) error {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `DELETE FROM children WHERE id = $1`, uuid.UUID(childID))
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("child is referenced: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("delete child: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("child not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChild(row scanner) (*models.Child, error) {
	var (
		c                   models.Child
		childID, guardianID uuid.UUID
		gender              string
	)
	if err := row.Scan(&childID, &guardianID, &c.Name, &c.BirthDate, &gender, &c.Notes, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("child not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan child: %w", err)
	}
	c.ID = id.ChildID(childID)
	c.GuardianID = id.UserID(guardianID)
	c.Gender = models.Gender(gender)
	c.BirthDate = c.BirthDate.UTC()
	return &c, nil
}
