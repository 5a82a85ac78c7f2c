package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/dunamismax/logocrunch/internal/domain"
)

const resultSchemaSQL = `
CREATE TABLE IF NOT EXISTS logo_results (
	job_id BIGINT PRIMARY KEY,
	batch_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	representation TEXT NOT NULL DEFAULT '',
	dominant_color TEXT NOT NULL DEFAULT '',
	background_color TEXT NOT NULL DEFAULT '',
	score DOUBLE PRECISION NOT NULL DEFAULT 0,
	clusters INTEGER NOT NULL DEFAULT 0,
	output_path TEXT NOT NULL DEFAULT '',
	bytes INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS logo_results_batch_id_idx ON logo_results (batch_id);
`

const resultColumns = `job_id, batch_id, status, representation, dominant_color, background_color,
	score, clusters, output_path, bytes, error, updated_at`

type PostgresResultStore struct {
	db *sql.DB
}

func NewPostgresResultStore(ctx context.Context, dsn string) (*PostgresResultStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresResultStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresResultStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, resultSchemaSQL); err != nil {
		return fmt.Errorf("ensure logo_results schema: %w", err)
	}
	return nil
}

func (s *PostgresResultStore) Close() error {
	return s.db.Close()
}

func (s *PostgresResultStore) Upsert(ctx context.Context, r domain.LogoResult) error {
	if err := validate(r); err != nil {
		return err
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO logo_results (`+resultColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (job_id) DO UPDATE SET
			batch_id = EXCLUDED.batch_id,
			status = EXCLUDED.status,
			representation = EXCLUDED.representation,
			dominant_color = EXCLUDED.dominant_color,
			background_color = EXCLUDED.background_color,
			score = EXCLUDED.score,
			clusters = EXCLUDED.clusters,
			output_path = EXCLUDED.output_path,
			bytes = EXCLUDED.bytes,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at`,
		int64(r.JobID),
		r.BatchID,
		r.Status,
		r.Representation,
		r.Dominant,
		r.Background,
		r.Score,
		r.Clusters,
		r.OutputPath,
		r.Bytes,
		r.Error,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert logo result %d: %w", r.JobID, err)
	}
	return nil
}

func (s *PostgresResultStore) Get(ctx context.Context, jobID uint32) (domain.LogoResult, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+resultColumns+`
		 FROM logo_results
		 WHERE job_id = $1`,
		int64(jobID),
	)

	result, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LogoResult{}, false, nil
		}
		return domain.LogoResult{}, false, fmt.Errorf("query logo result %d: %w", jobID, err)
	}
	return result, true, nil
}

func (s *PostgresResultStore) ListBatch(ctx context.Context, batchID string) ([]domain.LogoResult, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+resultColumns+`
		 FROM logo_results
		 WHERE batch_id = $1
		 ORDER BY job_id`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query batch %s: %w", batchID, err)
	}
	defer rows.Close()

	out := make([]domain.LogoResult, 0)
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch %s: %w", batchID, err)
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch %s: %w", batchID, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (domain.LogoResult, error) {
	var (
		r     domain.LogoResult
		jobID int64
	)
	err := row.Scan(
		&jobID,
		&r.BatchID,
		&r.Status,
		&r.Representation,
		&r.Dominant,
		&r.Background,
		&r.Score,
		&r.Clusters,
		&r.OutputPath,
		&r.Bytes,
		&r.Error,
		&r.UpdatedAt,
	)
	if err != nil {
		return domain.LogoResult{}, err
	}
	r.JobID = uint32(jobID)
	return r, nil
}
