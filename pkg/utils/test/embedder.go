package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/physrag/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// ModelName is returned by Model. Defaults to "mock-embed".
	ModelName string

	// FailOn causes Embed to return an error when the input text matches,
	// and EmbedBatch to fail for any batch containing it.
	FailOn string

	// BatchFailures makes the next N EmbedBatch calls fail.
	BatchFailures int

	// EmbedCalls and BatchCalls count invocations.
	EmbedCalls int
	BatchCalls int

	// BatchSizes records the length of every EmbedBatch input.
	BatchSizes []int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		ModelName:  "mock-embed",
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbedCalls++

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", embeddings.ErrEmbedding, text)
	}
	return m.lookup(text), nil
}

func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchCalls++
	m.BatchSizes = append(m.BatchSizes, len(texts))

	if m.BatchFailures > 0 {
		m.BatchFailures--
		return nil, fmt.Errorf("%w: mock batch failure", embeddings.ErrEmbedding)
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.FailOn != "" && t == m.FailOn {
			return nil, fmt.Errorf("%w: mock embedding failure for: %s", embeddings.ErrEmbedding, t)
		}
		out[i] = m.lookup(t)
	}
	return out, nil
}

func (m *MockEmbedder) lookup(text string) []float32 {
	if emb, ok := m.Embeddings[text]; ok {
		return emb
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}
}

func (m *MockEmbedder) Model() string {
	if m.ModelName == "" {
		return "mock-embed"
	}
	return m.ModelName
}

func (m *MockEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
