// Package sqldriver implements ledger.Store over database/sql. The SQLite
// and PostgreSQL stores share it and only differ in connection setup and
// column types.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/papercomputeco/physrag/pkg/ledger"
)

// Driver implements ledger.Store with portable SQL ($n placeholders are
// understood by both go-sqlite3 and pgx).
type Driver struct {
	DB *sql.DB
}

// Migrate creates the ledger tables. timestampType is the column type used
// for run timestamps ("TIMESTAMP" on SQLite, "TIMESTAMPTZ" on PostgreSQL).
func Migrate(ctx context.Context, db *sql.DB, timestampType string) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ingest_runs (
			id TEXT PRIMARY KEY,
			started_at %[1]s NOT NULL,
			finished_at %[1]s NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			embedding_model TEXT NOT NULL DEFAULT '',
			documents INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			chunks INTEGER NOT NULL DEFAULT 0,
			written INTEGER NOT NULL DEFAULT 0
		)`, timestampType),
		`CREATE TABLE IF NOT EXISTS ingest_failures (
			run_id TEXT NOT NULL REFERENCES ingest_runs(id) ON DELETE CASCADE,
			chunk_id TEXT NOT NULL DEFAULT '',
			document_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_failures_run ON ingest_failures(run_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating ledger schema: %w", err)
		}
	}
	return nil
}

// SaveRun upserts the run row and replaces its failures in one transaction.
func (d *Driver) SaveRun(ctx context.Context, run *ledger.Run, failures []ledger.FailedChunk) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ingest_failures WHERE run_id = $1`, run.ID); err != nil {
		return fmt.Errorf("clearing failures for run %s: %w", run.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ingest_runs WHERE id = $1`, run.ID); err != nil {
		return fmt.Errorf("clearing run %s: %w", run.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ingest_runs
			(id, started_at, finished_at, source, embedding_model,
			 documents, succeeded, skipped, failed, chunks, written)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Source, run.EmbeddingModel,
		run.Documents, run.Succeeded, run.Skipped, run.Failed, run.Chunks, run.Written,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	for _, f := range failures {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ingest_failures (run_id, chunk_id, document_id, stage, reason)
			VALUES ($1, $2, $3, $4, $5)`,
			run.ID, f.ChunkID, f.DocumentID, f.Stage, f.Reason,
		); err != nil {
			return fmt.Errorf("inserting failure for run %s: %w", run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const selectRuns = `
	SELECT id, started_at, finished_at, source, embedding_model,
		documents, succeeded, skipped, failed, chunks, written
	FROM ingest_runs
	ORDER BY started_at DESC`

func scanRun(rows *sql.Rows) (*ledger.Run, error) {
	var r ledger.Run
	err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.EmbeddingModel,
		&r.Documents, &r.Succeeded, &r.Skipped, &r.Failed, &r.Chunks, &r.Written)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestRun returns the most recently started run.
func (d *Driver) LatestRun(ctx context.Context) (*ledger.Run, error) {
	runs, err := d.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ledger.ErrNotFound
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first. A limit of 0 returns all runs.
func (d *Driver) ListRuns(ctx context.Context, limit int) ([]*ledger.Run, error) {
	query := selectRuns
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*ledger.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// FailedChunks returns the failures recorded for runID.
func (d *Driver) FailedChunks(ctx context.Context, runID string) ([]ledger.FailedChunk, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT run_id, chunk_id, document_id, stage, reason
		FROM ingest_failures
		WHERE run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}
	defer rows.Close()

	var out []ledger.FailedChunk
	for rows.Next() {
		var f ledger.FailedChunk
		if err := rows.Scan(&f.RunID, &f.ChunkID, &f.DocumentID, &f.Stage, &f.Reason); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failures: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	if d.DB == nil {
		return errors.New("ledger database is not open")
	}
	return d.DB.Close()
}

var _ ledger.Store = (*Driver)(nil)
