package indexer

import "errors"

// ErrIndexWrite is returned when a batch could not be written to the vector store.
var ErrIndexWrite = errors.New("index write failed")
