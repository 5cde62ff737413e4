package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "sapp/pkg/platform/audit"
)

// Store implements audit.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an audit event into the audit_events table. Inserting the
// same event ID twice is a no-op, so redelivered broker messages are safe.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, occurred_at, action, subject_id, member_id,
			verdict, reason, session_id, request_id, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	eventID := event.ID
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		event.Timestamp,
		event.Action,
		event.SubjectID,
		event.MemberID,
		event.Verdict,
		event.Reason,
		event.SessionID,
		event.RequestID,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns a subject's events ordered newest first.
func (s *Store) ListBySubject(ctx context.Context, subjectID string) ([]audit.Event, error) {
	query := `
		SELECT id, occurred_at, action, subject_id, member_id,
			verdict, reason, session_id, request_id, device
		FROM audit_events
		WHERE subject_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Action, &e.SubjectID, &e.MemberID,
			&e.Verdict, &e.Reason, &e.SessionID, &e.RequestID, &e.Device,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
