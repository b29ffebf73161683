// Package dotdir resolves the .physrag/ directory that holds the config file
// and the default sqlite databases.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the physrag directory.
	dirName = ".physrag"

	// VectorDBName is the sqlite-vec file used when no vector store target
	// is configured.
	VectorDBName = "physrag.db"

	// LedgerDBName is the sqlite file used when no ledger target is configured.
	LedgerDBName = "ledger.db"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .physrag/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.physrag/ dir
//  3. Home ~/.physrag/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating physrag directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DBPath returns the path of the named sqlite database inside the resolved
// .physrag/ directory.
func (m *Manager) DBPath(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// localDirExists checks whether a .physrag/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
