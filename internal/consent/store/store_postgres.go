package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"yeirin/internal/consent/models"
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

func (s *PostgresStore) Save(ctx context.Context, consent *models.Consent) error {
	var revokedAt sql.NullTime
	if consent.RevokedAt != nil {
		revokedAt = sql.NullTime{Time: *consent.RevokedAt, Valid: true}
	}
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO consents (id, guardian_id, child_id, purpose, granted_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guardian_id, child_id, purpose) DO UPDATE SET
			granted_at = EXCLUDED.granted_at,
			expires_at = EXCLUDED.expires_at,
			revoked_at = EXCLUDED.revoked_at
	`, uuid.UUID(consent.ID), uuid.UUID(consent.GuardianID), uuid.UUID(consent.ChildID),
		consent.Purpose.String(), consent.GrantedAt, consent.ExpiresAt, revokedAt)
	if err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

const selectConsent = `SELECT id, guardian_id, child_id, purpose, granted_at, expires_at, revoked_at FROM consents`

func (s *PostgresStore) Find(ctx context.Context, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose) (*models.Consent, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		selectConsent+` WHERE guardian_id = $1 AND child_id = $2 AND purpose = $3`,
		uuid.UUID(guardianID), uuid.UUID(childID), purpose.String())
	return scanConsent(row)
}

func (s *PostgresStore) ListByChild(ctx context.Context, guardianID id.UserID, childID id.ChildID) ([]*models.Consent, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		selectConsent+` WHERE guardian_id = $1 AND child_id = $2 ORDER BY purpose`,
		uuid.UUID(guardianID), uuid.UUID(childID))
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()
	var out []*models.Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConsent(row scanner) (*models.Consent, error) {
	var (
		c                            models.Consent
		consentID, guardian, childID uuid.UUID
		purpose                      string
		revokedAt                    sql.NullTime
	)
	if err := row.Scan(&consentID, &guardian, &childID, &purpose, &c.GrantedAt, &c.ExpiresAt, &revokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("consent not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan consent: %w", err)
	}
	c.ID = id.ConsentID(consentID)
	c.GuardianID = id.UserID(guardian)
	c.ChildID = id.ChildID(childID)
	c.Purpose = id.ConsentPurpose(purpose)
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	return &c, nil
}
