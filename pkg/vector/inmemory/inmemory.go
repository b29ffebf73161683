// Package inmemory provides a brute-force, in-process vector driver for
// tests and small local corpora.
package inmemory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/papercomputeco/physrag/pkg/vector"
)

// Driver keeps entries in memory and scores queries by cosine similarity.
type Driver struct {
	mu      sync.RWMutex
	entries map[string]vector.Entry

	// order holds ids in first-insertion order so equal scores rank stably.
	order []string
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		entries: make(map[string]vector.Entry),
	}
}

// Upsert stores entries, replacing any with the same ID.
func (d *Driver) Upsert(_ context.Context, entries []vector.Entry) error {
	if err := vector.ValidateEntries(entries); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range entries {
		if _, ok := d.entries[e.ID]; !ok {
			d.order = append(d.order, e.ID)
		}
		e.Embedding = slices.Clone(e.Embedding)
		e.Metadata = e.Metadata.Truncated()
		d.entries[e.ID] = e
	}
	return nil
}

// Query scores every entry against embedding and returns the best topK.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	results := make([]vector.QueryResult, 0, len(d.order))
	for _, id := range d.order {
		e := d.entries[id]
		results = append(results, vector.QueryResult{
			ID:       e.ID,
			Score:    vector.CosineSimilarity(embedding, e.Embedding),
			Metadata: e.Metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Get retrieves entries by their IDs.
func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]vector.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := d.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Delete removes entries by their IDs.
func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.entries, id)
	}
	d.order = slices.DeleteFunc(d.order, func(id string) bool {
		_, ok := d.entries[id]
		return !ok
	})
	return nil
}

// Count returns the number of stored entries.
func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries), nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

var _ vector.Driver = (*Driver)(nil)
