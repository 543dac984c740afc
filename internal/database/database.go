// Package database manages the SQLite file behind the ledger's collection
// store: WAL mode, integrity checks, scheduled VACUUM INTO backups and
// phased recovery.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/northchrome/opsledger/internal/config"

	_ "modernc.org/sqlite"
)

const (
	backupPrefix     = "ledger-"
	backupTimeLayout = "20060102-150405"
)

// ErrClosed is returned by operations on a closed DB.
var ErrClosed = errors.New("database is closed")

// DB is the ledger database handle. The embedded *sql.DB is what the
// collection repository talks to.
type DB struct {
	*sql.DB
	path      string
	backupDir string
	retention time.Duration
	now       func() time.Time

	mu     sync.Mutex
	closed bool

	stopBackups context.CancelFunc
	backups     sync.WaitGroup
}

// Open opens (creating if needed) the ledger database at dbPath in WAL mode.
// When cfg schedules backups and backupDir is set, a background loop writes
// one every BackupIntervalHours until Close.
func Open(dbPath string, cfg *config.DatabaseConfig, backupDir string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_txlock=immediate&_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: the ledger is the single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db := newDB(sqlDB, dbPath, backupDir)
	if cfg != nil && cfg.BackupRetentionDays > 0 {
		db.retention = time.Duration(cfg.BackupRetentionDays) * 24 * time.Hour
	}

	if err := db.applyPragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	// Recovery has already run by the time Open is called; a failure here is
	// reported but the handle is still usable.
	if err := db.CheckIntegrity(context.Background()); err != nil {
		slog.Warn("database integrity check failed", "path", dbPath, "error", err)
	}

	if cfg != nil && cfg.BackupIntervalHours > 0 && backupDir != "" {
		db.scheduleBackups(time.Duration(cfg.BackupIntervalHours) * time.Hour)
	}

	return db, nil
}

// NewInMemory opens a private in-memory database without WAL or backups.
func NewInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every pooled connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return newDB(sqlDB, ":memory:", ""), nil
}

func newDB(sqlDB *sql.DB, path, backupDir string) *DB {
	return &DB{
		DB:        sqlDB,
		path:      path,
		backupDir: backupDir,
		now:       time.Now,
	}
}

func (db *DB) applyPragmas() error {
	pragmas := []string{
		"journal_mode=WAL",
		"synchronous=NORMAL",
		"busy_timeout=5000",
		"page_size=4096",
		"cache_size=-16000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec("PRAGMA " + p); err != nil {
			return fmt.Errorf("setting pragma %s: %w", p, err)
		}
	}
	return nil
}

// CheckIntegrity runs PRAGMA integrity_check and fails unless SQLite
// reports exactly "ok".
func (db *DB) CheckIntegrity(ctx context.Context) error {
	rows, err := db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return fmt.Errorf("running integrity check: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("scanning integrity result: %w", err)
		}
		problems = append(problems, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating integrity results: %w", err)
	}

	if len(problems) == 1 && problems[0] == "ok" {
		return nil
	}
	return fmt.Errorf("integrity check failed: %s", strings.Join(problems, "; "))
}

// Checkpoint folds the WAL back into the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}

// Backup writes a consistent copy of the database into the backup
// directory and returns its path. Backups past the retention window are
// pruned afterwards; the newest is always kept.
func (db *DB) Backup(ctx context.Context) (string, error) {
	if db.backupDir == "" {
		return "", errors.New("backup directory not configured")
	}
	if db.isClosed() {
		return "", ErrClosed
	}

	backupPath := filepath.Join(db.backupDir, backupPrefix+db.now().Format(backupTimeLayout)+".db")

	if err := db.Checkpoint(ctx); err != nil {
		slog.Warn("checkpoint before backup failed", "error", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", backupPath); err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	slog.Info("database backup created", "path", backupPath)

	if db.retention > 0 {
		if removed := db.pruneBackups(); removed > 0 {
			slog.Debug("pruned old backups", "count", removed)
		}
	}
	return backupPath, nil
}

// pruneBackups removes ledger backups older than the retention window and
// returns how many were deleted.
func (db *DB) pruneBackups() int {
	backups, err := listBackups(db.backupDir)
	if err != nil {
		slog.Warn("reading backup directory", "error", err)
		return 0
	}

	cutoff := db.now().Add(-db.retention)
	removed := 0
	// listBackups is newest first; index 0 survives regardless of age.
	for _, b := range backups[min(1, len(backups)):] {
		if !strings.HasPrefix(filepath.Base(b.Path), backupPrefix) || !b.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			slog.Warn("removing old backup", "path", b.Path, "error", err)
			continue
		}
		removed++
	}
	return removed
}

func (db *DB) scheduleBackups(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	db.stopBackups = cancel

	db.backups.Add(1)
	go func() {
		defer db.backups.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runCtx, done := context.WithTimeout(ctx, 5*time.Minute)
				if _, err := db.Backup(runCtx); err != nil && !errors.Is(err, ErrClosed) {
					slog.Error("scheduled backup failed", "error", err)
				}
				done()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (db *DB) isClosed() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.closed
}

// Close stops the backup loop, checkpoints the WAL and closes the file.
// Calling Close again is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	if db.stopBackups != nil {
		db.stopBackups()
		db.backups.Wait()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		slog.Warn("final checkpoint failed", "error", err)
	}

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	slog.Debug("database closed", "path", db.path)
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// WithTransaction runs fn in a transaction, committing when fn returns nil.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	if db.isClosed() {
		return ErrClosed
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Tables lists the user tables in the database, sorted.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	slices.Sort(tables)
	return tables, rows.Err()
}
