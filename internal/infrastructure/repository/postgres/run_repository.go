package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

// RunRepository stores pipeline run metadata. Report text and generated content are never written.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
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

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
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
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	matched_count INTEGER NOT NULL DEFAULT 0,
	high_priority_count INTEGER NOT NULL DEFAULT 0,
	document_count INTEGER NOT NULL DEFAULT 0,
	fallback_count INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	error_kind TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_created_at ON pipeline_runs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) RecordRun(ctx context.Context, run domain.PipelineRun) error {
	if run.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record run", errors.New("run id is required"))
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO pipeline_runs (id, status, matched_count, high_priority_count, document_count, fallback_count, duration_ms, error_kind, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING
`, run.ID, string(run.Status), run.MatchedCount, run.HighPriorityCount, run.DocumentCount, run.FallbackCount,
		run.Duration.Milliseconds(), nullString(run.ErrorKind), createdAt)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "record run", err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, matched_count, high_priority_count, document_count, fallback_count, duration_ms, error_kind, created_at
FROM pipeline_runs
WHERE id = $1
`, id)

	var (
		run        domain.PipelineRun
		status     string
		durationMS int64
		errorKind  sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&status,
		&run.MatchedCount,
		&run.HighPriorityCount,
		&run.DocumentCount,
		&run.FallbackCount,
		&durationMS,
		&errorKind,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get run", fmt.Errorf("run not found: id=%s", id))
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	run.Status = domain.RunStatus(status)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.ErrorKind = errorKind.String
	return &run, nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
