package chunker

import "errors"

var (
	// ErrInvalidWindow is returned when the overlap is negative or not smaller than the chunk size.
	ErrInvalidWindow = errors.New("invalid chunk window")

	// ErrMalformedRecord is returned for a text record without a text field.
	ErrMalformedRecord = errors.New("malformed text record")
)
