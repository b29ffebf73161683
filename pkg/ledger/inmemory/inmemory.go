// Package inmemory provides an in-memory ledger store.
package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/physrag/pkg/ledger"
)

// Store keeps runs in memory.
type Store struct {
	mu       sync.RWMutex
	runs     []*ledger.Run
	failures map[string][]ledger.FailedChunk
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{failures: make(map[string][]ledger.FailedChunk)}
}

func (s *Store) SaveRun(_ context.Context, run *ledger.Run, failures []ledger.FailedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	s.runs = slices.DeleteFunc(s.runs, func(r *ledger.Run) bool { return r.ID == run.ID })
	s.runs = append(s.runs, &cp)

	stored := make([]ledger.FailedChunk, len(failures))
	for i, f := range failures {
		f.RunID = run.ID
		stored[i] = f
	}
	s.failures[run.ID] = stored
	return nil
}

func (s *Store) LatestRun(ctx context.Context) (*ledger.Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ledger.ErrNotFound
	}
	return runs[0], nil
}

func (s *Store) ListRuns(_ context.Context, limit int) ([]*ledger.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ledger.Run, 0, len(s.runs))
	for _, r := range s.runs {
		cp := *r
		out = append(out, &cp)
	}
	slices.SortStableFunc(out, func(a, b *ledger.Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) FailedChunks(_ context.Context, runID string) ([]ledger.FailedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.failures[runID]), nil
}

func (s *Store) Close() error {
	return nil
}

var _ ledger.Store = (*Store)(nil)
