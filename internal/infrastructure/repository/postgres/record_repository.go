package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS spectrum_records (
	id TEXT PRIMARY KEY,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_spectrum_records_status ON spectrum_records(status);
CREATE INDEX IF NOT EXISTS idx_spectrum_records_ionmode ON spectrum_records((metadata->>'ionmode'));
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RecordRepository) Create(ctx context.Context, record *domain.StoredRecord) error {
	metadataJSON, err := marshalMetadata(record.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO spectrum_records (id, metadata, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, record.ID, metadataJSON, string(record.Status), record.Error, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.StoredRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, metadata, status, error_message, created_at, updated_at
FROM spectrum_records
WHERE id = $1
`, id)

	var record domain.StoredRecord
	var metadataRaw []byte
	var status string

	err := row.Scan(&record.ID, &metadataRaw, &status, &record.Error, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecordNotFound, "get record", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}

	if err := json.Unmarshal(metadataRaw, &record.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	record.Status = domain.RecordStatus(status)
	return &record, nil
}

func (r *RecordRepository) UpdateStatus(ctx context.Context, id string, status domain.RecordStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE spectrum_records
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update record status: %w", err)
	}
	return requireAffected(result, "update record status", id)
}

func (r *RecordRepository) SaveMetadata(ctx context.Context, id string, metadata map[string]any) error {
	metadataJSON, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE spectrum_records
SET metadata = $2, updated_at = $3
WHERE id = $1
`, id, metadataJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save record metadata: %w", err)
	}
	return requireAffected(result, "save record metadata", id)
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	out, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return out, nil
}

func requireAffected(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrRecordNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
