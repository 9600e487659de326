package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresTRL persists revoked token JTIs in PostgreSQL. Used when a
// database is configured but Redis is not.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock
}

type PostgresTRLOption func(*PostgresTRL)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(trl *PostgresTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

func (t *PostgresTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if jti == "" {
		return nil
	}
	query := `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	if _, err := t.db.ExecContext(ctx, query, jti, t.clock().Add(ttl)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var expiresAt time.Time
	err := t.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return !t.clock().After(expiresAt), nil
}

// PurgeExpired deletes entries whose token has expired anyway.
func (t *PostgresTRL) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM token_revocations WHERE expires_at < $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge token revocations: %w", err)
	}
	return res.RowsAffected()
}
