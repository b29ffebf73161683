package ingest

import (
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/physrag/pkg/eventstream"
	"github.com/papercomputeco/physrag/pkg/ledger"
)

// Summary is the outcome of one ingestion run. A document is counted Failed
// when any of its chunks failed to embed or write, or when the run was
// cancelled before the document finished.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Documents int
	Succeeded int
	Skipped   int
	Failed    int
	Chunks    int
	Written   int

	FailedChunks []ledger.FailedChunk
}

// Run converts the summary into a ledger run.
func (s *Summary) Run(source, model string) *ledger.Run {
	return &ledger.Run{
		ID:             s.RunID,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.FinishedAt,
		Source:         source,
		EmbeddingModel: model,
		Documents:      s.Documents,
		Succeeded:      s.Succeeded,
		Skipped:        s.Skipped,
		Failed:         s.Failed,
		Chunks:         s.Chunks,
		Written:        s.Written,
	}
}

// LogValue renders the counters for structured logging.
func (s *Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.RunID),
		slog.Int("documents", s.Documents),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
		slog.Int("chunks", s.Chunks),
		slog.Int("written", s.Written),
		slog.Int("failed_chunks", len(s.FailedChunks)),
		slog.Duration("duration", s.FinishedAt.Sub(s.StartedAt)),
	)
}

// documentOutcome is what one worker reports back for one document.
type documentOutcome struct {
	status   string
	chunks   int
	written  int
	failures []ledger.FailedChunk
}

type tally struct {
	mu      sync.Mutex
	summary Summary

	// handled holds the indexes of the records that reported an outcome.
	handled map[int]bool
}

func (t *tally) add(index int, o documentOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handled[index] = true

	s := &t.summary
	s.Documents++
	s.Chunks += o.chunks
	s.Written += o.written
	s.FailedChunks = append(s.FailedChunks, o.failures...)

	switch o.status {
	case eventstream.StatusSkipped:
		s.Skipped++
	case eventstream.StatusIndexed:
		s.Succeeded++
	default:
		s.Failed++
	}
}
