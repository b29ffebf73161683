package retrieval

import "errors"

var (
	// ErrRetrieval wraps failures to embed a question or query the store.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrModelMismatch is returned when the index was built with a different
	// embedding model than the one used for the question.
	ErrModelMismatch = errors.New("embedding model mismatch")
)
