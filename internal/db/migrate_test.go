package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"
)

var testMigrations = fstest.MapFS{
	"000001_create_probe.up.sql": &fstest.MapFile{Data: []byte(`
		CREATE TABLE IF NOT EXISTS probe (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		);
	`)},
	"000001_create_probe.down.sql": &fstest.MapFile{Data: []byte(`
		DROP TABLE IF EXISTS probe;
	`)},
	"000002_add_note.up.sql": &fstest.MapFile{Data: []byte(`
		ALTER TABLE probe ADD COLUMN note TEXT;
	`)},
	"000002_add_note.down.sql": &fstest.MapFile{Data: []byte(`
		ALTER TABLE probe DROP COLUMN note;
	`)},
}

func openUnmigratedDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenDB(filepath.Join(t.TempDir(), "migrate-test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMigrateUpAndVersion(t *testing.T) {
	database := openUnmigratedDB(t)

	if err := database.MigrateUp(testMigrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	version, dirty, err := database.MigrateVersion(testMigrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("version = %d (dirty %v), want 2 (clean)", version, dirty)
	}

	// Re-running is a no-op.
	if err := database.MigrateUp(testMigrations); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
}

func TestMigrateVersionBeforeAnyMigration(t *testing.T) {
	database := openUnmigratedDB(t)

	version, dirty, err := database.MigrateVersion(testMigrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("version = %d (dirty %v), want 0 (clean)", version, dirty)
	}
}

func TestMigrateDownStepsBackOne(t *testing.T) {
	database := openUnmigratedDB(t)

	if err := database.MigrateUp(testMigrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := database.MigrateDown(testMigrations); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}

	version, _, err := database.MigrateVersion(testMigrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("version after down = %d, want 1", version)
	}
}

func TestMigrateForce(t *testing.T) {
	database := openUnmigratedDB(t)

	if err := database.MigrateUp(testMigrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := database.MigrateForce(testMigrations, 1); err != nil {
		t.Fatalf("MigrateForce failed: %v", err)
	}

	version, dirty, err := database.MigrateVersion(testMigrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d (dirty %v), want 1 (clean)", version, dirty)
	}
}

func TestEmbeddedMigrationsApply(t *testing.T) {
	database := openUnmigratedDB(t)

	if err := database.MigrateUp(MigrationsFS()); err != nil {
		t.Fatalf("embedded MigrateUp failed: %v", err)
	}

	for _, table := range []string{"subject_positions", "location_audit"} {
		var name string
		err := database.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s after migration: %v", table, err)
		}
	}
}
