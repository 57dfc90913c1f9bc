package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"ledgergate/internal/identity/models"
	"ledgergate/internal/platform/database"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
)

// PostgresStore persists identity records in the identity_records table and
// the verified-user counter in engine_counters, updated transactionally.
type PostgresStore struct {
	pool *database.Pool
}

func NewPostgresStore(pool *database.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO identity_records (
			owner, status, verification_level, verified_at, expires_at,
			jurisdiction_code, bank_routing_code, account_hash, provider,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.DB().ExecContext(ctx, query,
		rec.Owner.String(), string(rec.Status), int16(rec.VerificationLevel),
		nullTime(rec.VerifiedAt), nullTime(rec.ExpiresAt),
		rec.JurisdictionCode, rec.Metadata.BankRoutingCode, rec.Metadata.AccountHash,
		rec.Metadata.Provider, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("inserting identity record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, user domain.UserID) (*models.Record, error) {
	query := `
		SELECT owner, status, verification_level, verified_at, expires_at,
		       jurisdiction_code, bank_routing_code, account_hash, provider,
		       created_at, updated_at
		FROM identity_records WHERE owner = $1`

	return scanRecord(s.pool.DB().QueryRowContext(ctx, query, user.String()))
}

func (s *PostgresStore) Update(ctx context.Context, rec *models.Record, verifiedDelta int) error {
	tx, err := s.pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning identity update tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE identity_records SET
			status = $2, verification_level = $3, verified_at = $4,
			expires_at = $5, updated_at = $6
		WHERE owner = $1`

	res, err := tx.ExecContext(ctx, query,
		rec.Owner.String(), string(rec.Status), int16(rec.VerificationLevel),
		nullTime(rec.VerifiedAt), nullTime(rec.ExpiresAt), rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating identity record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}

	if verifiedDelta != 0 {
		counterQuery := `
			UPDATE engine_counters
			SET value = GREATEST(value + $1, 0)
			WHERE name = 'verified_users'`
		if _, err := tx.ExecContext(ctx, counterQuery, verifiedDelta); err != nil {
			return fmt.Errorf("updating verified-user counter: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) VerifiedUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.DB().QueryRowContext(ctx,
		`SELECT value FROM engine_counters WHERE name = 'verified_users'`,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading verified-user counter: %w", err)
	}
	return count, nil
}

func scanRecord(row *sql.Row) (*models.Record, error) {
	var (
		rec        models.Record
		owner      string
		status     string
		level      int16
		verifiedAt sql.NullTime
		expiresAt  sql.NullTime
	)
	err := row.Scan(&owner, &status, &level, &verifiedAt, &expiresAt,
		&rec.JurisdictionCode, &rec.Metadata.BankRoutingCode, &rec.Metadata.AccountHash,
		&rec.Metadata.Provider, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning identity record: %w", err)
	}
	rec.Owner = domain.UserID(owner)
	rec.Status = models.Status(status)
	rec.VerificationLevel = uint8(level)
	if verifiedAt.Valid {
		rec.VerifiedAt = verifiedAt.Time
	}
	if expiresAt.Valid {
		rec.ExpiresAt = expiresAt.Time
	}
	return &rec, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
