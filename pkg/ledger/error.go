package ledger

import "errors"

// ErrNotFound is returned when no matching run exists.
var ErrNotFound = errors.New("run not found")
