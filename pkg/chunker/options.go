package chunker

const (
	// DefaultChunkSize is the window size W in words.
	DefaultChunkSize = 500

	// DefaultOverlap is the number of words O shared by consecutive chunks.
	DefaultOverlap = 100
)

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the window size in words.
func WithChunkSize(words int) Option {
	return func(c *Chunker) {
		c.size = words
	}
}

// WithOverlap sets how many words consecutive chunks share.
func WithOverlap(words int) Option {
	return func(c *Chunker) {
		c.overlap = words
	}
}

// WithMinChars drops chunks whose text is at most n characters long.
// Zero keeps every chunk.
func WithMinChars(n int) Option {
	return func(c *Chunker) {
		c.minChars = n
	}
}
