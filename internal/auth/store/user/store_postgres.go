package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"yeirin/internal/auth/models"
	"yeirin/internal/platform/postgres"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
	txcontext "yeirin/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	var institutionID *uuid.UUID
	if !user.InstitutionID.IsNil() {
		v := uuid.UUID(user.InstitutionID)
		institutionID = &v
	}
	query := `
		INSERT INTO users (id, email, password_hash, name, phone, role, institution_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			phone = EXCLUDED.phone
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(user.ID),
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Phone,
		user.Role.String(),
		institutionID,
		user.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", user.Email, sentinel.ErrConflict)
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

const selectUser = `
	SELECT id, email, password_hash, name, phone, role, institution_id, created_at
	FROM users
`

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectUser+` WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectUser+` WHERE email = $1`, models.NormalizeEmail(email))
	return scanUser(row)
}

func (s *PostgresStore) CountByRole(ctx context.Context, role id.Role) (int, error) {
	var n int
	err := txcontext.ExecutorFrom(ctx, s.db).
		QueryRowContext(ctx, `SELECT count(*) FROM users WHERE role = $1`, role.String()).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u             models.User
		userID        uuid.UUID
		role          string
		institutionID uuid.NullUUID
	)
	err := row.Scan(&userID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &role, &institutionID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(userID)
	u.Role = id.Role(role)
	if institutionID.Valid {
		u.InstitutionID = id.InstitutionID(institutionID.UUID)
	}
	return &u, nil
}
