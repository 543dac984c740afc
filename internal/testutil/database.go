// Package testutil provides database helpers and fixtures for tests.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	_ "modernc.org/sqlite" // SQLite driver
)

// TestDB wraps an in-memory ledger database.
type TestDB struct {
	*sql.DB
}

// NewTestDB opens an empty in-memory SQLite database.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Every pooled connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	return &TestDB{DB: db}
}

// NewLedgerDB opens an in-memory database with the ledger schema applied.
// It is closed when the test ends.
func NewLedgerDB(t *testing.T) *TestDB {
	t.Helper()

	db := NewTestDB(t)
	db.RunMigrations(t, MigrationsDir(t))
	t.Cleanup(func() { db.Close(t) })
	return db
}

// MigrationsDir locates internal/database/migrations from this source file.
func MigrationsDir(t *testing.T) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate testutil source file")
	}
	return filepath.Join(filepath.Dir(file), "..", "database", "migrations")
}

// RunMigrations executes the "Up" portion of every .sql file in
// migrationsDir, in name order.
func (tdb *TestDB) RunMigrations(t *testing.T, migrationsDir string) {
	t.Helper()

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("failed to read migrations directory: %v", err)
	}

	ctx := context.Background()
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".sql" {
			continue
		}

		sqlBytes, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", file.Name(), err)
		}

		sqlStr := string(sqlBytes)
		if idx := strings.Index(sqlStr, "-- +migrate Down"); idx >= 0 {
			sqlStr = sqlStr[:idx]
		}

		if _, err := tdb.ExecContext(ctx, sqlStr); err != nil {
			t.Fatalf("failed to execute migration %s: %v", file.Name(), err)
		}
	}
}

// Close closes the test database.
func (tdb *TestDB) Close(t *testing.T) {
	t.Helper()

	if err := tdb.DB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// AssertCollectionCount asserts how many collections are stored.
func (tdb *TestDB) AssertCollectionCount(t *testing.T, expected int) {
	t.Helper()

	var count int
	if err := tdb.QueryRow("SELECT COUNT(*) FROM ledger_collections").Scan(&count); err != nil {
		t.Fatalf("failed to count collections: %v", err)
	}
	if count != expected {
		t.Errorf("expected %d stored collections, got %d", expected, count)
	}
}

// Payload returns the stored payload for key, failing the test if absent.
func (tdb *TestDB) Payload(t *testing.T, key string) string {
	t.Helper()

	var payload string
	if err := tdb.QueryRow("SELECT payload FROM ledger_collections WHERE key = ?", key).Scan(&payload); err != nil {
		t.Fatalf("reading collection %s: %v", key, err)
	}
	return payload
}

// Corrupt overwrites the stored payload for key with text that is not JSON.
func (tdb *TestDB) Corrupt(t *testing.T, key string) {
	t.Helper()

	res, err := tdb.Exec("UPDATE ledger_collections SET payload = 'garbage' WHERE key = ?", key)
	if err != nil {
		t.Fatalf("corrupting collection %s: %v", key, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("collection %s not stored", key)
	}
}
