package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/northchrome/opsledger/internal/config"
)

func TestAttemptRecovery_FirstRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	report, err := AttemptRecovery(dbPath, "")
	if err != nil {
		t.Fatalf("AttemptRecovery: %v", err)
	}
	if report.Result != RecoverySuccess {
		t.Errorf("expected success for missing database, got %s", report.Result)
	}
}

func TestAttemptRecovery_Healthy(t *testing.T) {
	_, dbPath, backupDir := openTestFileDB(t)

	report, err := AttemptRecovery(dbPath, backupDir)
	if err != nil {
		t.Fatalf("AttemptRecovery: %v", err)
	}
	if report.Result != RecoverySuccess {
		t.Errorf("expected success, got %s", report.Result)
	}
	if report.IntegrityCheck != "ok" {
		t.Errorf("expected integrity ok, got %q", report.IntegrityCheck)
	}
}

func TestAttemptRecovery_RestoresBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	backupDir := filepath.Join(dir, "backups")
	if err := os.MkdirAll(backupDir, 0750); err != nil {
		t.Fatalf("creating backup dir: %v", err)
	}

	db, err := Open(dbPath, &config.DatabaseConfig{Path: dbPath}, backupDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE TABLE marker (v TEXT)"); err != nil {
		t.Fatalf("creating marker: %v", err)
	}
	if _, err := db.Backup(ctx); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Clobber the live file
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")
	if err := os.WriteFile(dbPath, []byte("this is not a sqlite database file at all"), 0640); err != nil {
		t.Fatalf("corrupting database: %v", err)
	}

	report, err := AttemptRecovery(dbPath, backupDir)
	if err != nil {
		t.Fatalf("AttemptRecovery: %v", err)
	}
	if report.Result != RecoveryFromBackup {
		t.Fatalf("expected restore from backup, got %s", report.Result)
	}

	diag, err := DiagnoseDatabase(dbPath, backupDir)
	if err != nil {
		t.Fatalf("DiagnoseDatabase: %v", err)
	}
	if diag.QuickCheck != "ok" {
		t.Errorf("restored database quick_check = %q", diag.QuickCheck)
	}
	if len(diag.Backups) != 1 {
		t.Errorf("expected the backup to be listed, got %d", len(diag.Backups))
	}
}

func TestAttemptRecovery_NoBackup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	if err := os.WriteFile(dbPath, []byte("garbage garbage garbage garbage"), 0640); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}

	report, err := AttemptRecovery(dbPath, "")
	if err == nil {
		t.Fatal("expected failure without backups")
	}
	if report.Result != RecoveryFailed {
		t.Errorf("expected failed result, got %s", report.Result)
	}
}

func TestAttemptRecovery_ReportsInvalidCollections(t *testing.T) {
	db, dbPath, backupDir := openTestFileDB(t)
	ctx := context.Background()

	migrator, err := NewMigrator(db)
	if err != nil {
		t.Fatalf("NewMigrator: %v", err)
	}
	if _, err := migrator.MigrateUp(ctx); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	for key, payload := range map[string]string{
		"work_orders": `[]`,
		"inventory":   `{"truncated": `,
		"tool_loans":  `[{"id":"LN-1"}]`,
	} {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO ledger_collections (key, payload, updated_at) VALUES (?, ?, ?)",
			key, payload, "2024-05-06T09:00:00Z"); err != nil {
			t.Fatalf("inserting %s: %v", key, err)
		}
	}
	if err := db.Checkpoint(ctx); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	report, err := AttemptRecovery(dbPath, backupDir)
	if err != nil {
		t.Fatalf("AttemptRecovery: %v", err)
	}
	if report.Result != RecoverySuccess {
		t.Errorf("invalid payloads must not fail recovery, got %s", report.Result)
	}
	if len(report.InvalidCollections) != 1 || report.InvalidCollections[0] != "inventory" {
		t.Errorf("expected inventory reported, got %v", report.InvalidCollections)
	}

	diag, err := DiagnoseDatabase(dbPath, "")
	if err != nil {
		t.Fatalf("DiagnoseDatabase: %v", err)
	}
	if len(diag.Collections) != 3 {
		t.Fatalf("expected 3 collections, got %d", len(diag.Collections))
	}
	for _, c := range diag.Collections {
		if c.ValidJSON == (c.Key == "inventory") {
			t.Errorf("collection %s valid = %v", c.Key, c.ValidJSON)
		}
	}
}

func TestDiagnoseDatabase_Missing(t *testing.T) {
	diag, err := DiagnoseDatabase(filepath.Join(t.TempDir(), "none.db"), "")
	if err != nil {
		t.Fatalf("DiagnoseDatabase: %v", err)
	}
	if diag.Exists {
		t.Error("expected missing file reported")
	}
}
