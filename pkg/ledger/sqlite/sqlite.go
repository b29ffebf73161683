// Package sqlite provides a SQLite-backed ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/physrag/pkg/ledger/sqldriver"
)

// Store implements ledger.Store on SQLite.
type Store struct {
	*sqldriver.Driver
}

// NewStore opens (or creates) the ledger at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := sqldriver.Migrate(ctx, db, "TIMESTAMP"); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{Driver: &sqldriver.Driver{DB: db}}, nil
}
