package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "yeirin/pkg/domain"
	audit "yeirin/pkg/platform/audit"
	txcontext "yeirin/pkg/platform/tx"
)

// Store persists audit batches into the audit_events table.
type Store struct {
	db     *sql.DB
	runner txcontext.Runner
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db, runner: txcontext.NewSQLRunner(db)}
}

const insertEvent = `
	INSERT INTO audit_events (
		id, category, timestamp, user_id, actor_id, subject, action,
		purpose, decision, reason, ip, device, request_id
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

// Write inserts the whole batch in one transaction.
func (s *Store) Write(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		for _, event := range events {
			category := event.Category
			if category == "" {
				category = audit.AuditEvent(event.Action).Category()
			}
			var userID *uuid.UUID
			if !event.UserID.IsNil() {
				uid := uuid.UUID(event.UserID)
				userID = &uid
			}
			_, err := exec.ExecContext(ctx, insertEvent,
				uuid.New(),
				string(category),
				event.Timestamp,
				userID,
				event.ActorID,
				event.Subject,
				event.Action,
				event.Purpose,
				event.Decision,
				event.Reason,
				event.IP,
				event.Device,
				event.RequestID,
			)
			if err != nil {
				return fmt.Errorf("insert audit event: %w", err)
			}
		}
		return nil
	})
}

const selectColumns = `
	SELECT category, timestamp, user_id, actor_id, subject, action,
		   purpose, decision, reason, ip, device, request_id
	FROM audit_events
`

// ListByUser returns events for a specific user.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE user_id = $1 ORDER BY timestamp DESC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category       string
			event          audit.Event
			userIDNullable *uuid.UUID
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&userIDNullable,
			&event.ActorID,
			&event.Subject,
			&event.Action,
			&event.Purpose,
			&event.Decision,
			&event.Reason,
			&event.IP,
			&event.Device,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if userIDNullable != nil {
			event.UserID = id.UserID(*userIDNullable)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
