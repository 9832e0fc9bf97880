package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// RunRepository persists the audit trail of completed asks.
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

	// Serialize bootstrap DDL across worker replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	extraction_status TEXT NOT NULL,
	acquisition_status TEXT NOT NULL,
	documents_written BOOLEAN NOT NULL DEFAULT FALSE,
	fallback_used BOOLEAN NOT NULL DEFAULT FALSE,
	retrieved_chunk_count INTEGER NOT NULL DEFAULT 0,
	failed_stage TEXT,
	answer_preview TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_failed_stage ON runs(failed_stage) WHERE failed_stage IS NOT NULL;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) InsertRun(ctx context.Context, record domain.RunRecord) error {
	var failedStage any
	if record.FailedStage != "" {
		failedStage = record.FailedStage
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO runs (
	id, question, extraction_status, acquisition_status, documents_written,
	fallback_used, retrieved_chunk_count, failed_stage, answer_preview, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO NOTHING
`,
		record.ID, record.Question, record.ExtractionStatus, record.AcquisitionStatus, record.DocumentsWritten,
		record.FallbackUsed, record.RetrievedChunkCount, failedStage, record.AnswerPreview, record.DurationMS, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}
