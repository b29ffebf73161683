// Package chunker splits document text into overlapping word windows.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/physrag/pkg/document"
)

// Chunk is a contiguous window of words from one document.
type Chunk struct {
	// ID is "<document_id>_chunk_<index>".
	ID         string
	DocumentID string

	// Index is the 0-based position of the chunk within its document.
	Index int
	Text  string

	// StartWord and EndWord bound the window as [StartWord, EndWord).
	StartWord int
	EndWord   int

	// Embedding is filled in by the embedding stage.
	Embedding []float32
}

// ChunkID returns the deterministic identifier of a chunk.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// Chunker produces fixed-size overlapping word windows.
type Chunker struct {
	size     int
	overlap  int
	minChars int
}

// New creates a Chunker. The overlap must satisfy 0 <= overlap < size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.size <= 0 || c.overlap < 0 || c.overlap >= c.size {
		return nil, fmt.Errorf("%w: chunk size %d, overlap %d", ErrInvalidWindow, c.size, c.overlap)
	}
	if c.minChars < 0 {
		return nil, fmt.Errorf("%w: negative minimum chunk length %d", ErrInvalidWindow, c.minChars)
	}

	return c, nil
}

// Size returns the window size in words.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of words shared by consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits the record's text into windows. Window i starts at word
// i*(size-overlap) and every start offset below the word count yields a
// chunk, so the final chunk may be shorter than the window but never empty.
//
// Chunk indexes are positional and are not renumbered when WithMinChars
// drops a short chunk.
func (c *Chunker) Chunk(rec *document.TextRecord) ([]Chunk, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}
	if rec.DocumentID == "" {
		return nil, fmt.Errorf("%w: record has no document id", ErrMalformedRecord)
	}
	if rec.Pages == nil {
		return nil, fmt.Errorf("%w: document %s has no text field", ErrMalformedRecord, rec.DocumentID)
	}

	words := strings.Fields(rec.Text())
	n := len(words)
	if n == 0 {
		return []Chunk{}, nil
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, (n+step-1)/step)
	for index, start := 0, 0; start < n; index, start = index+1, start+step {
		end := min(start+c.size, n)
		text := strings.Join(words[start:end], " ")

		if c.minChars > 0 && utf8.RuneCountInString(text) <= c.minChars {
			continue
		}

		chunks = append(chunks, Chunk{
			ID:         ChunkID(rec.DocumentID, index),
			DocumentID: rec.DocumentID,
			Index:      index,
			Text:       text,
			StartWord:  start,
			EndWord:    end,
		})
	}

	return chunks, nil
}

// Count returns how many chunks a text of n words produces, ignoring WithMinChars.
func (c *Chunker) Count(n int) int {
	if n <= 0 {
		return 0
	}
	step := c.size - c.overlap
	return (n + step - 1) / step
}

// Reconstruct rebuilds the word sequence from consecutive chunks of one
// document by dropping the leading overlap of every chunk after the first.
func Reconstruct(chunks []Chunk, overlap int) []string {
	var words []string
	for i, ch := range chunks {
		fields := strings.Fields(ch.Text)
		if i > 0 {
			shared := min(overlap, len(fields))
			// The last window may be shorter than the overlap when it is
			// fully contained in the previous one.
			shared = min(shared, chunks[i-1].EndWord-ch.StartWord)
			fields = fields[max(shared, 0):]
		}
		words = append(words, fields...)
	}
	return words
}
