package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMigrationsSortedByVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0002_indexes.sql", "CREATE INDEX x ON y (z);")
	writeFile(t, dir, "0001_init.sql", "CREATE TABLE y (z INT);")
	writeFile(t, dir, "0010_later.sql", "ALTER TABLE y ADD w INT;")

	m := NewMigrator(nil, dir)
	migs, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(migs) != 3 {
		t.Fatalf("got %d migrations, want 3", len(migs))
	}
	for i, want := range []int{1, 2, 10} {
		if migs[i].Version != want {
			t.Errorf("migs[%d].Version = %d, want %d", i, migs[i].Version, want)
		}
	}
	if migs[0].SQL != "CREATE TABLE y (z INT);" {
		t.Errorf("SQL content not loaded: %q", migs[0].SQL)
	}
}

func TestLoadMigrationsSkipsNonNumeric(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0001_init.sql", "SELECT 1;")
	writeFile(t, dir, "README.md", "not sql")
	writeFile(t, dir, "notes_draft.sql", "no version prefix")

	m := NewMigrator(nil, dir)
	migs, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(migs) != 1 {
		t.Fatalf("got %d migrations, want 1", len(migs))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/path")
	if _, err := m.Load(); err == nil {
		t.Error("expected error for missing directory")
	}
}
