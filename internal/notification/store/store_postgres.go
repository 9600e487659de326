package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"yeirin/internal/notification/models"
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

func requestRef(m *models.Message) uuid.NullUUID {
	if m.CounselRequestID.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(m.CounselRequestID), Valid: true}
}

func (s *PostgresStore) Save(ctx context.Context, msg *models.Message) error {
	var deliveredAt sql.NullTime
	if msg.DeliveredAt != nil {
		deliveredAt = sql.NullTime{Time: *msg.DeliveredAt, Valid: true}
	}
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO sms_messages (id, counsel_request_id, recipient, body, status, provider_id, error, created_at, updated_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			provider_id = EXCLUDED.provider_id,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at,
			delivered_at = EXCLUDED.delivered_at
	`, uuid.UUID(msg.ID), requestRef(msg), msg.Recipient, msg.Body, string(msg.Status),
		msg.ProviderID, msg.Error, msg.CreatedAt, msg.UpdatedAt, deliveredAt)
	if err != nil {
		return fmt.Errorf("save sms message: %w", err)
	}
	return nil
}

const selectMessage = `SELECT id, counsel_request_id, recipient, body, status, provider_id, error, created_at, updated_at, delivered_at FROM sms_messages`

func (s *PostgresStore) FindByID(ctx context.Context, messageID id.MessageID) (*models.Message, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectMessage+` WHERE id = $1`, uuid.UUID(messageID))
	return scanMessage(row)
}

func (s *PostgresStore) FindByProviderID(ctx context.Context, providerID string) (*models.Message, error) {
	if providerID == "" {
		return nil, fmt.Errorf("sms message not found: %w", sentinel.ErrNotFound)
	}
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectMessage+` WHERE provider_id = $1`, providerID)
	return scanMessage(row)
}

func (s *PostgresStore) ListByCounselRequest(ctx context.Context, requestID id.CounselRequestID) ([]*models.Message, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		selectMessage+` WHERE counsel_request_id = $1 ORDER BY created_at`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list sms messages: %w", err)
	}
	defer rows.Close()
	var out []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*models.Message, error) {
	var (
		m           models.Message
		msgID       uuid.UUID
		requestID   uuid.NullUUID
		status      string
		deliveredAt sql.NullTime
	)
	err := row.Scan(&msgID, &requestID, &m.Recipient, &m.Body, &status, &m.ProviderID, &m.Error,
		&m.CreatedAt, &m.UpdatedAt, &deliveredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sms message not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan sms message: %w", err)
	}
	m.ID = id.MessageID(msgID)
	if requestID.Valid {
		m.CounselRequestID = id.CounselRequestID(requestID.UUID)
	}
	m.Status = models.Status(status)
	if deliveredAt.Valid {
		t := deliveredAt.Time
		m.DeliveredAt = &t
	}
	return &m, nil
}
