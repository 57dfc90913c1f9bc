package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ledgergate/internal/blacklist/models"
	"ledgergate/internal/platform/database"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
)

type PostgresStore struct {
	pool *database.Pool
}

func NewPostgresStore(pool *database.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Upsert(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO blacklist_entries (
			user_id, reason, action_type, evidence_ref, related_alert_id,
			created_by, created_at, updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			reason = EXCLUDED.reason,
			action_type = EXCLUDED.action_type,
			evidence_ref = EXCLUDED.evidence_ref,
			related_alert_id = EXCLUDED.related_alert_id,
			created_by = EXCLUDED.created_by,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`

	var alertID any
	if entry.RelatedAlertID != nil {
		alertID = uuid.UUID(*entry.RelatedAlertID).String()
	}
	var expiresAt any
	if entry.ExpiresAt != nil {
		expiresAt = *entry.ExpiresAt
	}

	_, err := s.pool.DB().ExecContext(ctx, query,
		entry.User.String(), string(entry.Reason), string(entry.ActionType),
		entry.EvidenceRef, alertID, entry.CreatedBy.String(),
		entry.CreatedAt, entry.UpdatedAt, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting blacklist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, user domain.UserID) (*models.Entry, error) {
	query := `
		SELECT user_id, reason, action_type, evidence_ref, related_alert_id,
		       created_by, created_at, updated_at, expires_at
		FROM blacklist_entries WHERE user_id = $1`

	var (
		entry      models.Entry
		userRaw    string
		reason     string
		actionType string
		alertRaw   sql.NullString
		createdBy  string
		expiresAt  sql.NullTime
	)
	err := s.pool.DB().QueryRowContext(ctx, query, user.String()).Scan(
		&userRaw, &reason, &actionType, &entry.EvidenceRef, &alertRaw,
		&createdBy, &entry.CreatedAt, &entry.UpdatedAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning blacklist entry: %w", err)
	}
	entry.User = domain.UserID(userRaw)
	entry.Reason = models.Reason(reason)
	entry.ActionType = models.ActionType(actionType)
	entry.CreatedBy = domain.PrincipalID(createdBy)
	if alertRaw.Valid {
		parsed, err := uuid.Parse(alertRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parsing related alert id: %w", err)
		}
		id := domain.AlertID(parsed)
		entry.RelatedAlertID = &id
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		entry.ExpiresAt = &t
	}
	return &entry, nil
}

func (s *PostgresStore) Delete(ctx context.Context, user domain.UserID) error {
	res, err := s.pool.DB().ExecContext(ctx,
		`DELETE FROM blacklist_entries WHERE user_id = $1`, user.String())
	if err != nil {
		return fmt.Errorf("deleting blacklist entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
