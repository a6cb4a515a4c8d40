// Package history persists per-transfer statistics so a completed or
// failed connection leaves a record behind for pkg/monitor to serve.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed transfer ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger database at path, creating parent
// directories as needed. An empty path places the ledger under the
// user's config directory. WAL mode lets the monitor server read while
// a transfer is still being recorded.
func Open(path string) (*Store, error) {
	if path == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("history: locate config directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
		path = filepath.Join(base, "penguin", "penguin.db")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("history: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: connect to database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
