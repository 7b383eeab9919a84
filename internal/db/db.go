// Package db persists tracked subject positions and the location audit
// trail in sqlite.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sql handle with the position and audit operations.
type DB struct {
	*sql.DB
	path string
}

// OpenDB opens the sqlite database without touching the schema. Use it for
// migration commands; NewDB is the normal entry point.
func OpenDB(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// The ingestion endpoint and the batch path write concurrently; WAL and
	// a busy timeout keep writers from tripping over each other.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	return &DB{DB: handle, path: path}, nil
}

// NewDB opens the database and brings the schema up to date using the
// embedded migrations.
func NewDB(path string) (*DB, error) {
	database, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(MigrationsFS()); err != nil {
		database.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return database, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
