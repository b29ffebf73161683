// Package ingest runs the offline half of the pipeline: extractor records are
// chunked, embedded and written to the vector store by a pool of workers, and
// the run is summarized, published and recorded in the ledger.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/physrag/pkg/chunker"
	"github.com/papercomputeco/physrag/pkg/document"
	"github.com/papercomputeco/physrag/pkg/embeddings"
	"github.com/papercomputeco/physrag/pkg/eventstream"
	"github.com/papercomputeco/physrag/pkg/eventstream/nop"
	"github.com/papercomputeco/physrag/pkg/indexer"
	"github.com/papercomputeco/physrag/pkg/ledger"
)

const defaultPublishTimeout = 5 * time.Second

// Config wires the collaborators of a Pipeline.
type Config struct {
	Chunker  *chunker.Chunker
	Embedder *embeddings.Batcher
	Writer   *indexer.Writer

	// Ledger is optional. When set, every run is saved with its failures.
	Ledger ledger.Store

	// Publisher is optional and defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of documents processed concurrently.
	// Defaults to runtime.NumCPU()*2.
	NumWorkers uint

	// QueueSize bounds the number of documents waiting for a worker.
	QueueSize uint

	// Source describes where the records came from, e.g. the input path.
	Source string

	// VectorStore names the vector store provider for published events.
	VectorStore string

	// PublishTimeout bounds each document event publish. Defaults to 5s.
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pipeline ingests extractor records.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// NewPipeline validates cfg and returns a Pipeline.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Chunker == nil {
		return nil, fmt.Errorf("%w: chunker is required", ErrInvalidConfig)
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("%w: index writer is required", ErrInvalidConfig)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nop.NewPublisher()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}

	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

// Run ingests records and returns the run summary. Per-document failures are
// recorded in the summary; the returned error is non-nil only when ctx was
// cancelled or the ledger could not be written.
func (p *Pipeline) Run(ctx context.Context, records []document.Record) (*Summary, error) {
	t := &tally{handled: make(map[int]bool, len(records))}
	t.summary.RunID = uuid.NewString()
	t.summary.StartedAt = time.Now().UTC()

	logger := p.logger.With("run_id", t.summary.RunID)
	logger.Info("ingestion started",
		"documents", len(records),
		"source", p.cfg.Source,
		"model", p.cfg.Embedder.Model(),
	)

	pool, err := NewPool(ctx, &PoolConfig{
		NumWorkers: p.cfg.NumWorkers,
		QueueSize:  p.cfg.QueueSize,
		Logger:     logger,
		Handle: func(ctx context.Context, job Job) {
			outcome := p.process(ctx, t.summary.RunID, job.Record, logger)
			t.add(job.Index, outcome)
		},
	})
	if err != nil {
		return nil, err
	}

	var submitErr error
	for i, rec := range records {
		if err := pool.Submit(ctx, Job{Index: i, Record: rec}); err != nil {
			submitErr = err
			break
		}
	}
	pool.Close()

	if submitErr != nil || ctx.Err() != nil {
		cause := submitErr
		if cause == nil {
			cause = ctx.Err()
		}
		for i, rec := range records {
			if t.handled[i] {
				continue
			}
			t.add(i, cancelled(t.summary.RunID, rec.ID(), cause))
		}
	}

	summary := &t.summary
	summary.FinishedAt = time.Now().UTC()

	logger.Info("ingestion finished", "summary", summary)

	if p.cfg.Ledger != nil {
		run := summary.Run(p.cfg.Source, p.cfg.Embedder.Model())
		// Documents a cancelled run never reached are recorded as failed so
		// they can be resumed.
		if err := p.cfg.Ledger.SaveRun(context.WithoutCancel(ctx), run, summary.FailedChunks); err != nil {
			return summary, fmt.Errorf("saving run %s: %w", run.ID, err)
		}
	}

	if submitErr != nil {
		return summary, submitErr
	}
	return summary, ctx.Err()
}

// process ingests one record.
func (p *Pipeline) process(ctx context.Context, runID string, rec document.Record, logger *slog.Logger) documentOutcome {
	doc, text := rec.Split()
	logger = logger.With("document_id", doc.ID)

	if err := rec.Validate(); err != nil {
		logger.Warn("skipping invalid record", "error", err)
		return p.finish(ctx, runID, doc, skipped(runID, doc.ID, err))
	}

	chunks, err := p.cfg.Chunker.Chunk(text)
	if err != nil {
		logger.Warn("skipping malformed record", "error", err)
		return p.finish(ctx, runID, doc, skipped(runID, doc.ID, err))
	}

	outcome := documentOutcome{chunks: len(chunks)}
	if len(chunks) == 0 {
		logger.Debug("document has no text")
		outcome.status = eventstream.StatusIndexed
		return p.finish(ctx, runID, doc, outcome)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	embedded, err := p.cfg.Embedder.EmbedAll(ctx, texts)
	if err != nil {
		// Only cancellation reaches here; nothing of this document was written.
		for _, ch := range chunks {
			outcome.failures = append(outcome.failures, failedChunk(runID, ch.ID, doc.ID, ledger.StageEmbed, err))
		}
		outcome.status = eventstream.StatusFailed
		return p.finish(ctx, runID, doc, outcome)
	}

	for _, f := range embedded.Failures {
		ch := chunks[f.Index]
		logger.Warn("chunk embedding failed", "chunk_id", ch.ID, "error", f.Err)
		outcome.failures = append(outcome.failures, failedChunk(runID, ch.ID, doc.ID, ledger.StageEmbed, f.Err))
	}

	ready := make([]chunker.Chunk, 0, len(chunks))
	for i, ch := range chunks {
		if embedded.Vectors[i] == nil {
			continue
		}
		ch.Embedding = embedded.Vectors[i]
		ready = append(ready, ch)
	}

	if len(ready) > 0 {
		result := p.cfg.Writer.Write(ctx, doc, ready)
		outcome.written = result.Written
		for _, f := range result.Failed {
			outcome.failures = append(outcome.failures, failedChunk(runID, f.ChunkID, f.DocumentID, ledger.StageWrite, f.Err))
		}
	}

	switch {
	case len(outcome.failures) == 0:
		outcome.status = eventstream.StatusIndexed
	case outcome.written > 0:
		outcome.status = eventstream.StatusPartial
	default:
		outcome.status = eventstream.StatusFailed
	}

	logger.Debug("document ingested",
		"status", outcome.status,
		"chunks", outcome.chunks,
		"written", outcome.written,
	)

	return p.finish(ctx, runID, doc, outcome)
}

// finish publishes the document event. Publish failures are logged and do
// not change the outcome.
func (p *Pipeline) finish(ctx context.Context, runID string, doc document.Document, outcome documentOutcome) documentOutcome {
	var reason string
	if len(outcome.failures) > 0 {
		reason = outcome.failures[0].Reason
	}

	event := eventstream.NewDocumentIndexedEvent(runID,
		eventstream.EventDocument{
			ID:       doc.ID,
			Title:    doc.Title,
			Filename: doc.SourceRef,
		},
		eventstream.EventOutcome{
			Status:  outcome.status,
			Chunks:  outcome.chunks,
			Written: outcome.written,
			Failed:  len(outcome.failures),
			Reason:  reason,
		},
		eventstream.EventIndexMeta{
			EmbeddingModel: p.cfg.Embedder.Model(),
			VectorStore:    p.cfg.VectorStore,
		},
	)

	// Events outlive cancellation of the run but not an unreachable broker.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.PublishTimeout)
	defer cancel()

	if err := p.cfg.Publisher.PublishDocumentIndexed(publishCtx, event); err != nil {
		p.logger.Warn("failed to publish document event",
			"document_id", doc.ID,
			"error", err,
		)
	}

	return outcome
}

func skipped(runID, documentID string, err error) documentOutcome {
	return documentOutcome{
		status:   eventstream.StatusSkipped,
		failures: []ledger.FailedChunk{failedChunk(runID, "", documentID, ledger.StageChunk, err)},
	}
}

func cancelled(runID, documentID string, err error) documentOutcome {
	return documentOutcome{
		status:   eventstream.StatusFailed,
		failures: []ledger.FailedChunk{failedChunk(runID, "", documentID, ledger.StageCancelled, err)},
	}
}

func failedChunk(runID, chunkID, documentID, stage string, err error) ledger.FailedChunk {
	return ledger.FailedChunk{
		RunID:      runID,
		ChunkID:    chunkID,
		DocumentID: documentID,
		Stage:      stage,
		Reason:     err.Error(),
	}
}

// Resume narrows records to the documents that had failures in the most
// recent run recorded in store.
func Resume(ctx context.Context, store ledger.Store, records []document.Record) ([]document.Record, *ledger.Run, error) {
	run, err := store.LatestRun(ctx)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, nil, ErrNoPreviousRun
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading latest run: %w", err)
	}

	failures, err := store.FailedChunks(ctx, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading failures of run %s: %w", run.ID, err)
	}

	pending := make(map[string]bool)
	for _, id := range ledger.FailedDocuments(failures) {
		pending[id] = true
	}

	out := make([]document.Record, 0, len(pending))
	for _, rec := range records {
		if pending[rec.ID()] {
			out = append(out, rec)
		}
	}
	return out, run, nil
}
