package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"ledgergate/internal/authority/models"
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

func (s *PostgresStore) Create(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO authority_records (
			principal, authority_id, institution, jurisdiction, powers,
			active, created_at, updated_at, last_action_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.DB().ExecContext(ctx, query,
		rec.Principal.String(), rec.AuthorityID, rec.Institution, rec.Jurisdiction,
		int16(rec.Powers), rec.Active, rec.CreatedAt, rec.UpdatedAt, nullTime(rec.LastActionAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("inserting authority record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, principal domain.PrincipalID) (*models.Record, error) {
	query := `
		SELECT principal, authority_id, institution, jurisdiction, powers,
		       active, created_at, updated_at, last_action_at
		FROM authority_records WHERE principal = $1`

	var (
		rec          models.Record
		principalRaw string
		powers       int16
		lastAction   sql.NullTime
	)
	err := s.pool.DB().QueryRowContext(ctx, query, principal.String()).Scan(
		&principalRaw, &rec.AuthorityID, &rec.Institution, &rec.Jurisdiction,
		&powers, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt, &lastAction,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning authority record: %w", err)
	}
	rec.Principal = domain.PrincipalID(principalRaw)
	rec.Powers = models.Powers(powers)
	if lastAction.Valid {
		rec.LastActionAt = lastAction.Time
	}
	return &rec, nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *models.Record) error {
	query := `
		UPDATE authority_records SET
			authority_id = $2, institution = $3, jurisdiction = $4, powers = $5,
			active = $6, updated_at = $7, last_action_at = $8
		WHERE principal = $1`

	res, err := s.pool.DB().ExecContext(ctx, query,
		rec.Principal.String(), rec.AuthorityID, rec.Institution, rec.Jurisdiction,
		int16(rec.Powers), rec.Active, rec.UpdatedAt, nullTime(rec.LastActionAt),
	)
	if err != nil {
		return fmt.Errorf("updating authority record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
