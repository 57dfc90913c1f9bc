package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ledgergate/internal/alert/models"
	"ledgergate/internal/platform/database"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
)

// PostgresStore persists alerts with evidence refs, the action record and
// annotations as jsonb columns.
type PostgresStore struct {
	pool *database.Pool
}

func NewPostgresStore(pool *database.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.Record) error {
	evidence, actionTaken, annotations, err := marshalJSONColumns(rec)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO alert_records (
			id, subject, authority_id, raised_by, status, severity,
			evidence_refs, action_taken, resolution, annotations,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = s.pool.DB().ExecContext(ctx, query,
		uuid.UUID(rec.ID).String(), rec.Subject.String(), rec.AuthorityID,
		rec.RaisedBy.String(), string(rec.Status), int16(rec.Severity),
		evidence, actionTaken, rec.Resolution, annotations,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting alert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, id domain.AlertID) (*models.Record, error) {
	query := selectColumns + ` FROM alert_records WHERE id = $1`
	row := s.pool.DB().QueryRowContext(ctx, query, uuid.UUID(id).String())
	rec, err := scanAlert(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) Update(ctx context.Context, rec *models.Record) error {
	evidence, actionTaken, annotations, err := marshalJSONColumns(rec)
	if err != nil {
		return err
	}
	query := `
		UPDATE alert_records SET
			status = $2, severity = $3, evidence_refs = $4, action_taken = $5,
			resolution = $6, annotations = $7, updated_at = $8
		WHERE id = $1`

	res, err := s.pool.DB().ExecContext(ctx, query,
		uuid.UUID(rec.ID).String(), string(rec.Status), int16(rec.Severity),
		evidence, actionTaken, rec.Resolution, annotations, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating alert record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject domain.UserID) ([]*models.Record, error) {
	query := selectColumns + ` FROM alert_records WHERE subject = $1 ORDER BY created_at ASC`
	rows, err := s.pool.DB().QueryContext(ctx, query, subject.String())
	if err != nil {
		return nil, fmt.Errorf("listing alert records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const selectColumns = `
	SELECT id, subject, authority_id, raised_by, status, severity,
	       evidence_refs, action_taken, resolution, annotations,
	       created_at, updated_at`

func scanAlert(scan func(...any) error) (*models.Record, error) {
	var (
		rec         models.Record
		idRaw       string
		subject     string
		raisedBy    string
		status      string
		severity    int16
		evidence    []byte
		actionTaken []byte
		annotations []byte
	)
	err := scan(&idRaw, &subject, &rec.AuthorityID, &raisedBy, &status, &severity,
		&evidence, &actionTaken, &rec.Resolution, &annotations,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning alert record: %w", err)
	}
	parsed, err := uuid.Parse(idRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing alert id: %w", err)
	}
	rec.ID = domain.AlertID(parsed)
	rec.Subject = domain.UserID(subject)
	rec.RaisedBy = domain.PrincipalID(raisedBy)
	rec.Status = models.Status(status)
	rec.Severity = uint8(severity)
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &rec.EvidenceRefs); err != nil {
			return nil, fmt.Errorf("decoding evidence refs: %w", err)
		}
	}
	if len(actionTaken) > 0 {
		if err := json.Unmarshal(actionTaken, &rec.ActionTaken); err != nil {
			return nil, fmt.Errorf("decoding action record: %w", err)
		}
	}
	if len(annotations) > 0 {
		if err := json.Unmarshal(annotations, &rec.Annotations); err != nil {
			return nil, fmt.Errorf("decoding annotations: %w", err)
		}
	}
	return &rec, nil
}

func marshalJSONColumns(rec *models.Record) (evidence, actionTaken, annotations []byte, err error) {
	if evidence, err = json.Marshal(rec.EvidenceRefs); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding evidence refs: %w", err)
	}
	if rec.ActionTaken != nil {
		if actionTaken, err = json.Marshal(rec.ActionTaken); err != nil {
			return nil, nil, nil, fmt.Errorf("encoding action record: %w", err)
		}
	}
	if annotations, err = json.Marshal(rec.Annotations); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding annotations: %w", err)
	}
	return evidence, actionTaken, annotations, nil
}
