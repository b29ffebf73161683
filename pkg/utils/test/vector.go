package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/physrag/pkg/vector"
)

// ErrMockVector is returned by MockVectorDriver when a failure is configured.
var ErrMockVector = errors.New("mock vector store failure")

// MockVectorDriver is a test vector driver
type MockVectorDriver struct {
	mu sync.Mutex

	// Entries accumulates every upserted entry, keyed by id.
	Entries map[string]vector.Entry

	// Results is returned by Query, truncated to topK.
	Results []vector.QueryResult

	// FailUpserts makes the next N Upsert calls fail.
	FailUpserts int

	// FailUpsertIDs makes any Upsert containing one of these ids fail.
	FailUpsertIDs map[string]bool

	// FailQuery causes Query to return an error.
	FailQuery bool

	UpsertCalls int
	BatchSizes  []int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Entries:       make(map[string]vector.Entry),
		Results:       make([]vector.QueryResult, 0),
		FailUpsertIDs: make(map[string]bool),
	}
}

func (m *MockVectorDriver) Upsert(_ context.Context, entries []vector.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	m.BatchSizes = append(m.BatchSizes, len(entries))

	if m.FailUpserts > 0 {
		m.FailUpserts--
		return ErrMockVector
	}
	for _, e := range entries {
		if m.FailUpsertIDs[e.ID] {
			return ErrMockVector
		}
	}
	for _, e := range entries {
		m.Entries[e.ID] = e
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailQuery {
		return nil, ErrMockVector
	}
	if topK <= 0 || len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]vector.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.Entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.Entries, id)
	}
	return nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
