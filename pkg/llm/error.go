package llm

import "errors"

var (
	// ErrCompletion wraps a failed call to a language model backend.
	ErrCompletion = errors.New("completion failed")

	// ErrEmptyResponse is returned when the backend replies without text.
	ErrEmptyResponse = errors.New("empty completion response")
)
