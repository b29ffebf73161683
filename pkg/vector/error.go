package vector

import "errors"

var (
	// ErrNotFound is returned when an entry is not found in the vector store.
	ErrNotFound = errors.New("entry not found")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrInvalidEntry is returned for entries that cannot be stored.
	ErrInvalidEntry = errors.New("invalid vector entry")
)
