package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"
)

// CollectionInfo summarizes one stored ledger collection.
type CollectionInfo struct {
	Key       string
	Bytes     int64
	UpdatedAt string
	ValidJSON bool
}

// DatabaseDiagnostics describes a ledger database file for the doctor command.
type DatabaseDiagnostics struct {
	Path          string
	Exists        bool
	SizeBytes     int64
	ModTime       time.Time
	WALExists     bool
	WALSizeBytes  int64
	OpenError     string
	SQLiteVersion string
	JournalMode   string
	PageCount     int
	FreelistCount int
	QuickCheck    string
	Collections   []CollectionInfo
	Backups       []BackupFile
}

// DiagnoseDatabase inspects a database file without modifying it. Backups
// are listed when backupDir is set.
func DiagnoseDatabase(dbPath, backupDir string) (*DatabaseDiagnostics, error) {
	diag := &DatabaseDiagnostics{Path: dbPath}

	if backupDir != "" {
		if backups, err := listBackups(backupDir); err == nil {
			diag.Backups = backups
		}
	}

	info, err := os.Stat(dbPath)
	switch {
	case os.IsNotExist(err):
		return diag, nil
	case err != nil:
		return nil, fmt.Errorf("stating database: %w", err)
	}
	diag.Exists = true
	diag.SizeBytes = info.Size()
	diag.ModTime = info.ModTime()

	if wal, err := os.Stat(dbPath + "-wal"); err == nil {
		diag.WALExists = true
		diag.WALSizeBytes = wal.Size()
	}

	err = withReadOnly(dbPath, 10*time.Second, func(ctx context.Context, db *sql.DB) error {
		if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&diag.SQLiteVersion); err != nil {
			diag.OpenError = err.Error()
			return nil
		}
		pragmas := []struct {
			name string
			dest any
		}{
			{"journal_mode", &diag.JournalMode},
			{"page_count", &diag.PageCount},
			{"freelist_count", &diag.FreelistCount},
			{"quick_check", &diag.QuickCheck},
		}
		for _, p := range pragmas {
			if err := db.QueryRowContext(ctx, "PRAGMA "+p.name).Scan(p.dest); err != nil {
				diag.OpenError = fmt.Sprintf("reading %s: %v", p.name, err)
				return nil
			}
		}
		return diag.readCollections(ctx, db)
	})
	if err != nil {
		return nil, err
	}
	return diag, nil
}

// readCollections fills Collections; an unmigrated file leaves it empty.
func (d *DatabaseDiagnostics) readCollections(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx,
		"SELECT key, length(payload), updated_at, json_valid(payload) FROM ledger_collections ORDER BY key")
	if err != nil {
		return nil
	}
	defer rows.Close()

	for rows.Next() {
		var c CollectionInfo
		if err := rows.Scan(&c.Key, &c.Bytes, &c.UpdatedAt, &c.ValidJSON); err != nil {
			return fmt.Errorf("scanning collection: %w", err)
		}
		d.Collections = append(d.Collections, c)
	}
	return rows.Err()
}
