// Package vector provides interfaces and implementations for vector storage.
package vector

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	// MaxTextRunes bounds Metadata.Text when an entry is written.
	MaxTextRunes = 1000

	// MaxTitleRunes bounds Metadata.Title when an entry is written.
	MaxTitleRunes = 200
)

// Metadata is the payload stored next to every chunk vector.
type Metadata struct {
	DocumentID     string `json:"document_id"`
	Title          string `json:"title"`
	Filename       string `json:"filename"`
	ChunkIndex     int    `json:"chunk_index"`
	Text           string `json:"text"`
	StartWord      int    `json:"start_word"`
	EndWord        int    `json:"end_word"`
	NumPages       int    `json:"num_pages"`
	EmbeddingModel string `json:"embedding_model"`
}

// Truncated returns a copy with Text and Title cut to their stored limits.
func (m Metadata) Truncated() Metadata {
	m.Text = truncateRunes(m.Text, MaxTextRunes)
	m.Title = truncateRunes(m.Title, MaxTitleRunes)
	return m
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Entry is a stored chunk: its id, embedding and metadata.
type Entry struct {
	// ID is the chunk id, "<document_id>_chunk_<index>".
	ID string

	// Embedding is the vector representation of the chunk text.
	Embedding []float32

	Metadata Metadata
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	ID string

	// Score represents the similarity score (higher = more similar).
	Score float32

	Metadata Metadata
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Upsert stores entries with their embeddings.
	// An entry with an existing ID replaces the stored one.
	Upsert(ctx context.Context, entries []Entry) error

	// Query finds the topK most similar entries to the given embedding,
	// most similar first.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves entries by their IDs. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Entry, error)

	// Delete removes entries by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}

// ValidateEntries checks that every entry has an id and an embedding of
// the same length.
func ValidateEntries(entries []Entry) error {
	dim := -1
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry without id", ErrInvalidEntry)
		}
		if len(e.Embedding) == 0 {
			return fmt.Errorf("%w: entry %s has no embedding", ErrInvalidEntry, e.ID)
		}
		if dim >= 0 && len(e.Embedding) != dim {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d", ErrInvalidEntry, e.ID, len(e.Embedding), dim)
		}
		dim = len(e.Embedding)
	}
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
