package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// NewSQLiteStore opens (or creates) an embedded SQLite graph store at path.
// Use ":memory:" for an ephemeral store in tests. The connection pool is
// capped at one writer because SQLite serializes writes; this also makes the
// upsert statements trivially atomic.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s, err := newSQLStore(db, DialectSQLite)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
