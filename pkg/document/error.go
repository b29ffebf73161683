package document

import "errors"

var (
	// ErrAcquisition is returned when a source document is unavailable.
	ErrAcquisition = errors.New("document unavailable")

	// ErrExtraction is returned when extractor output cannot be read or is unusable.
	ErrExtraction = errors.New("extraction output unreadable")
)
