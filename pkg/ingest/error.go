package ingest

import "errors"

var (
	// ErrNoPreviousRun is returned by Resume when the ledger holds no runs.
	ErrNoPreviousRun = errors.New("no previous ingestion run to resume")

	// ErrInvalidConfig is returned by NewPipeline when a required collaborator is missing.
	ErrInvalidConfig = errors.New("invalid ingestion pipeline config")
)
