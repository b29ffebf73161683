// Package indexer writes embedded chunks to a vector store in bounded,
// retried batches.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/papercomputeco/physrag/pkg/chunker"
	"github.com/papercomputeco/physrag/pkg/document"
	"github.com/papercomputeco/physrag/pkg/retry"
	"github.com/papercomputeco/physrag/pkg/vector"
)

const (
	// DefaultBatchSize is the number of entries per upsert.
	DefaultBatchSize = 100

	// DefaultMaxInFlight bounds concurrent upserts across all callers.
	DefaultMaxInFlight = 4
)

// Config configures a Writer.
type Config struct {
	BatchSize   int
	MaxInFlight int
	Retry       retry.Policy

	// EmbeddingModel is recorded in every entry's metadata.
	EmbeddingModel string
}

// FailedChunk is a chunk that was not written.
type FailedChunk struct {
	ChunkID    string
	DocumentID string
	Err        error
}

// Result summarizes one Write call.
type Result struct {
	Written int
	Failed  []FailedChunk
}

// Writer upserts chunks into a vector.Driver. It is safe for concurrent use;
// MaxInFlight is shared by all callers, so a Writer is the single point where
// concurrent ingestion workers are throttled.
type Writer struct {
	driver vector.Driver
	cfg    Config
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewWriter creates a Writer over driver.
func NewWriter(driver vector.Driver, cfg Config, logger *slog.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}

	w := &Writer{
		driver: driver,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		logger: logger,
	}
	w.cfg.Retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		w.logger.Warn("index write failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}
	return w
}

// Entry converts an embedded chunk of doc into a vector entry.
func Entry(doc document.Document, ch chunker.Chunk, model string) vector.Entry {
	return vector.Entry{
		ID:        ch.ID,
		Embedding: ch.Embedding,
		Metadata: vector.Metadata{
			DocumentID:     ch.DocumentID,
			Title:          doc.Title,
			Filename:       doc.SourceRef,
			ChunkIndex:     ch.Index,
			Text:           ch.Text,
			StartWord:      ch.StartWord,
			EndWord:        ch.EndWord,
			NumPages:       doc.NumPages,
			EmbeddingModel: model,
		}.Truncated(),
	}
}

// Write upserts the embedded chunks of doc in chunk order, in batches of
// BatchSize. It blocks while MaxInFlight batches are already being written.
// A batch that still fails after retries marks all its chunks failed and the
// remaining batches continue.
func (w *Writer) Write(ctx context.Context, doc document.Document, chunks []chunker.Chunk) Result {
	var (
		mu     sync.Mutex
		result Result
	)

	fail := func(batch []vector.Entry, err error) {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range batch {
			result.Failed = append(result.Failed, FailedChunk{
				ChunkID:    e.ID,
				DocumentID: doc.ID,
				Err:        err,
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	for start := 0; start < len(chunks); start += w.cfg.BatchSize {
		end := min(start+w.cfg.BatchSize, len(chunks))

		batch := make([]vector.Entry, 0, end-start)
		for _, ch := range chunks[start:end] {
			batch = append(batch, Entry(doc, ch, w.cfg.EmbeddingModel))
		}

		if err := gctx.Err(); err != nil {
			fail(batch, fmt.Errorf("%w: %v", ErrIndexWrite, err))
			continue
		}
		if err := w.sem.Acquire(gctx, 1); err != nil {
			fail(batch, fmt.Errorf("%w: %v", ErrIndexWrite, err))
			continue
		}

		g.Go(func() error {
			defer w.sem.Release(1)

			err := w.cfg.Retry.Do(gctx, func(ctx context.Context) error {
				return w.driver.Upsert(ctx, batch)
			})
			if err != nil {
				w.logger.Error("index batch failed",
					"document_id", doc.ID,
					"first_chunk", batch[0].ID,
					"size", len(batch),
					"error", err,
				)
				fail(batch, fmt.Errorf("%w: %w", ErrIndexWrite, err))
				return nil
			}

			mu.Lock()
			result.Written += len(batch)
			mu.Unlock()
			return nil
		})
	}

	// Batch failures are collected in result, never returned.
	_ = g.Wait()

	return result
}
