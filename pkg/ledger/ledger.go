// Package ledger persists ingestion run summaries and the chunks that failed
// in each run, so a later run can resume the documents that did not finish.
package ledger

import (
	"context"
	"time"
)

// Failure stages.
const (
	StageChunk = "chunk"
	StageEmbed = "embed"
	StageWrite = "write"

	// StageCancelled marks a document the run never finished because it was
	// cancelled first.
	StageCancelled = "cancelled"
)

// Run is the summary of one ingestion run.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Source         string
	EmbeddingModel string

	Documents int
	Succeeded int
	Skipped   int
	Failed    int
	Chunks    int
	Written   int
}

// FailedChunk records a chunk (or a whole document, when ChunkID is empty)
// that did not make it into the index.
type FailedChunk struct {
	RunID      string
	ChunkID    string
	DocumentID string
	Stage      string
	Reason     string
}

// Store persists runs.
type Store interface {
	// SaveRun stores a finished run with its failures.
	SaveRun(ctx context.Context, run *Run, failures []FailedChunk) error

	// LatestRun returns the most recently started run, or ErrNotFound.
	LatestRun(ctx context.Context) (*Run, error)

	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// FailedChunks returns the failures recorded for a run.
	FailedChunks(ctx context.Context, runID string) ([]FailedChunk, error)

	// Close releases any resources held by the store.
	Close() error
}

// FailedDocuments returns the distinct document ids among failures, in
// first-seen order.
func FailedDocuments(failures []FailedChunk) []string {
	seen := make(map[string]bool, len(failures))
	var ids []string
	for _, f := range failures {
		if f.DocumentID == "" || seen[f.DocumentID] {
			continue
		}
		seen[f.DocumentID] = true
		ids = append(ids, f.DocumentID)
	}
	return ids
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
