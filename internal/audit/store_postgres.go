package audit

import (
	"context"
	"fmt"

	"ledgergate/internal/platform/database"
)

// PostgresStore persists audit events append-only in audit_events.
type PostgresStore struct {
	pool *database.Pool
}

func NewPostgresStore(pool *database.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (
			ts, authority, subject, action, source, destination,
			amount, reason, justification, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.DB().ExecContext(ctx, query,
		event.Timestamp, event.Authority, event.Subject, string(event.Action),
		event.Source, event.Destination, int64(event.Amount),
		event.Reason, event.Justification, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	query := `
		SELECT ts, authority, subject, action, source, destination,
		       amount, reason, justification, request_id
		FROM audit_events WHERE subject = $1 ORDER BY ts ASC`

	rows, err := s.pool.DB().QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event  Event
			action string
			amount int64
		)
		if err := rows.Scan(&event.Timestamp, &event.Authority, &event.Subject,
			&action, &event.Source, &event.Destination, &amount,
			&event.Reason, &event.Justification, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		event.Action = AuditEvent(action)
		event.Amount = uint64(amount)
		out = append(out, event)
	}
	return out, rows.Err()
}
