package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// RecoveryResult indicates the outcome of a recovery attempt.
type RecoveryResult int

const (
	// RecoverySuccess means the database was healthy or recovered in place.
	RecoverySuccess RecoveryResult = iota
	// RecoveryFromBackup means the database was restored from a backup.
	RecoveryFromBackup
	// RecoveryFailed means all recovery attempts failed.
	RecoveryFailed
)

func (r RecoveryResult) String() string {
	switch r {
	case RecoverySuccess:
		return "success"
	case RecoveryFromBackup:
		return "restored_from_backup"
	case RecoveryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecoveryReport describes what AttemptRecovery found and did.
type RecoveryReport struct {
	Result         RecoveryResult
	DatabasePath   string
	BackupUsed     string
	IntegrityCheck string
	WALRecovered   bool
	// InvalidCollections lists stored collections whose payload is not JSON.
	// The ledger falls back to defaults for these without overwriting them.
	InvalidCollections []string
	Error              error
	Steps              []RecoveryStep
}

// RecoveryStep is one phase of a recovery attempt.
type RecoveryStep struct {
	Name      string
	Succeeded bool
	Message   string
	Duration  time.Duration
}

// AttemptRecovery checks the ledger database before it is opened. A file
// that fails SQLite's integrity check is first replayed from its WAL, then
// replaced from the newest backup that passes the same check. A missing
// file is a first run and succeeds.
func AttemptRecovery(dbPath string, backupDir string) (*RecoveryReport, error) {
	report := &RecoveryReport{DatabasePath: dbPath}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		report.Result = RecoverySuccess
		report.Steps = append(report.Steps, RecoveryStep{
			Name:      "check_exists",
			Succeeded: true,
			Message:   "database does not exist (first run)",
		})
		return report, nil
	}

	healthy := report.run("integrity_check", func() (string, error) {
		return checkDatabaseIntegrity(dbPath)
	})

	if !healthy {
		slog.Warn("database integrity check failed", "path", dbPath)
		if _, err := os.Stat(dbPath + "-wal"); err == nil {
			healthy = report.run("wal_recovery", func() (string, error) { return attemptWALRecovery(dbPath) }) &&
				report.run("post_wal_integrity", func() (string, error) { return checkDatabaseIntegrity(dbPath) })
			report.WALRecovered = healthy
		}
	}

	if !healthy && backupDir != "" {
		if report.run("backup_restoration", func() (string, error) { return restoreFromBackup(dbPath, backupDir) }) {
			report.Result = RecoveryFromBackup
			report.BackupUsed = report.last().Message
			slog.Warn("database restored from backup", "path", dbPath, "backup", report.BackupUsed)
			healthy = true
		}
	}

	if !healthy {
		report.Result = RecoveryFailed
		report.Error = errors.New("all recovery attempts failed")
		slog.Error("database recovery failed", "path", dbPath, "steps", len(report.Steps))
		return report, report.Error
	}

	if report.Result != RecoveryFromBackup {
		report.Result = RecoverySuccess
		report.IntegrityCheck = "ok"
	}

	report.run("collection_check", func() (string, error) {
		invalid, err := invalidCollections(dbPath)
		if err != nil {
			return "", err
		}
		report.InvalidCollections = invalid
		if len(invalid) > 0 {
			slog.Warn("stored collections are not valid JSON", "keys", invalid)
			return "invalid: " + strings.Join(invalid, ", "), nil
		}
		return "ok", nil
	})

	return report, nil
}

// run executes one recovery step, records it and reports whether it succeeded.
func (r *RecoveryReport) run(name string, fn func() (string, error)) bool {
	start := time.Now()
	msg, err := fn()

	step := RecoveryStep{Name: name, Duration: time.Since(start), Succeeded: err == nil, Message: msg}
	if err != nil {
		step.Message = err.Error()
	}
	r.Steps = append(r.Steps, step)
	return step.Succeeded
}

func (r *RecoveryReport) last() RecoveryStep {
	return r.Steps[len(r.Steps)-1]
}

// withReadOnly opens dbPath read-only and runs fn under a deadline.
func withReadOnly(dbPath string, timeout time.Duration, fn func(context.Context, *sql.DB) error) error {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx, db)
}

// column runs a query returning one text column and collects it.
func column(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// checkDatabaseIntegrity runs PRAGMA integrity_check; anything but a lone
// "ok" is an error listing the problems.
func checkDatabaseIntegrity(dbPath string) (string, error) {
	var problems []string
	err := withReadOnly(dbPath, 30*time.Second, func(ctx context.Context, db *sql.DB) (err error) {
		problems, err = column(ctx, db, "PRAGMA integrity_check")
		return err
	})
	switch {
	case err != nil:
		return "", fmt.Errorf("running integrity check: %w", err)
	case len(problems) == 1 && problems[0] == "ok":
		return "ok", nil
	}
	return "", fmt.Errorf("integrity check failed: %s", strings.Join(problems, "; "))
}

// invalidCollections lists the stored collections SQLite does not accept
// as JSON. An unmigrated database has none.
func invalidCollections(dbPath string) ([]string, error) {
	var keys []string
	err := withReadOnly(dbPath, 10*time.Second, func(ctx context.Context, db *sql.DB) error {
		tables, err := column(ctx, db, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ledger_collections'")
		if err != nil || len(tables) == 0 {
			return err
		}
		keys, err = column(ctx, db, "SELECT key FROM ledger_collections WHERE json_valid(payload) = 0 ORDER BY key")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("checking collections: %w", err)
	}
	return keys, nil
}

// attemptWALRecovery opens the database read-write so SQLite replays the
// WAL, then forces a checkpoint.
func attemptWALRecovery(dbPath string) (string, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_txlock=immediate", dbPath))
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(RESTART)"); err != nil {
		return "", fmt.Errorf("WAL checkpoint: %w", err)
	}
	return "WAL checkpoint complete", nil
}

// restoreFromBackup replaces dbPath with the newest backup that passes the
// integrity check. The damaged file is kept beside it with a .corrupted suffix.
func restoreFromBackup(dbPath string, backupDir string) (string, error) {
	backups, err := listBackups(backupDir)
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", errors.New("no backup files found")
	}

	for _, backup := range backups {
		if _, err := checkDatabaseIntegrity(backup.Path); err != nil {
			slog.Debug("skipping backup", "path", backup.Path, "error", err)
			continue
		}

		corruptedPath := dbPath + ".corrupted." + time.Now().Format("20060102-150405")
		if err := moveFile(dbPath, corruptedPath); err != nil {
			slog.Warn("failed to preserve corrupted database", "path", dbPath, "error", err)
		}
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")

		if err := copyFile(backup.Path, dbPath); err != nil {
			return "", fmt.Errorf("copying backup: %w", err)
		}
		return backup.Path, nil
	}

	return "", errors.New("no valid backup found")
}

// BackupFile is a backup found on disk.
type BackupFile struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// listBackups returns the .db files in dir, newest first.
func listBackups(dir string) ([]BackupFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []BackupFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupFile{
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	slices.SortFunc(backups, func(a, b BackupFile) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return backups, nil
}

// moveFile renames src to dst, copying when they are on different
// filesystems.
func moveFile(src, dst string) error {
	if os.Rename(src, dst) == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile writes a synced copy of src to dst with the same mode.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, out.Close()) }()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Sync()
}
