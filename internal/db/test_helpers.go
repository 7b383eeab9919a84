package db

import (
	"path/filepath"
	"testing"
)

// setupTestDB opens a migrated database in a per-test temp dir.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := NewDB(filepath.Join(t.TempDir(), "crewtrace-test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database
}
