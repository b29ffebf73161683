// Package ledgerutils builds ledger stores from configuration.
package ledgerutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/physrag/pkg/ledger"
	"github.com/papercomputeco/physrag/pkg/ledger/inmemory"
	"github.com/papercomputeco/physrag/pkg/ledger/postgres"
	"github.com/papercomputeco/physrag/pkg/ledger/sqlite"
)

// NewStoreOpts selects a ledger backend.
type NewStoreOpts struct {
	ProviderType string

	// Target is a file path for sqlite and a connection string for postgres.
	Target string
}

// NewStore builds the ledger store for o.ProviderType.
func NewStore(ctx context.Context, o *NewStoreOpts) (ledger.Store, error) {
	switch o.ProviderType {
	case "sqlite":
		return sqlite.NewStore(ctx, o.Target)
	case "postgres":
		return postgres.NewStore(ctx, o.Target)
	case "memory", "":
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported ledger provider: %s", o.ProviderType)
	}
}
