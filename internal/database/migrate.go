package database

import (
	"cmp"
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

var migrationName = regexp.MustCompile(`^(\d{3})_(.+)\.sql$`)

// ErrMigrationModified is returned when an applied migration no longer
// matches the embedded file it was applied from.
var ErrMigrationModified = errors.New("applied migration was modified")

// Migration is one embedded schema change and, after Status, whether it
// has been applied.
type Migration struct {
	Version     int
	Description string
	UpSQL       string
	DownSQL     string
	Checksum    string

	Applied   bool
	AppliedAt time.Time
	// Modified is set when the recorded checksum differs from Checksum.
	Modified bool
}

// MigrationResult reports what a migration run changed.
type MigrationResult struct {
	Applied        []Migration
	RolledBack     []Migration
	CurrentVersion int
	TargetVersion  int
}

// Migrator applies the embedded migrations to a DB.
type Migrator struct {
	db         *DB
	migrations []Migration
}

// NewMigrator loads the embedded migrations and makes sure the bookkeeping
// table exists.
func NewMigrator(db *DB) (*Migrator, error) {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now')),
			checksum TEXT
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	return &Migrator{db: db, migrations: migrations}, nil
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := migrationName.FindStringSubmatch(entry.Name())
		if m == nil {
			slog.Warn("skipping invalid migration filename", "name", entry.Name())
			continue
		}
		version, _ := strconv.Atoi(m[1])

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		up, down := parseMigration(string(content))
		sum := sha256.Sum256([]byte(up))

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(m[2], "_", " "),
			UpSQL:       up,
			DownSQL:     down,
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %03d", migrations[i].Version)
		}
	}
	return migrations, nil
}

// parseMigration splits a migration file into its Up and Down sections.
// A file without markers is all Up.
func parseMigration(content string) (up, down string) {
	_, body, found := strings.Cut(content, upMarker)
	if !found {
		return strings.TrimSpace(content), ""
	}
	up, down, _ = strings.Cut(body, downMarker)
	return strings.TrimSpace(up), strings.TrimSpace(down)
}

// splitStatements breaks a script on semicolons outside quoted text.
func splitStatements(script string) []string {
	var (
		statements []string
		start      int
		quote      rune
	)
	flush := func(end int) {
		if stmt := strings.TrimSpace(script[start:end]); stmt != "" {
			statements = append(statements, stmt)
		}
	}

	for i, ch := range script {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ';':
			flush(i)
			start = i + 1
		}
	}
	flush(len(script))
	return statements
}

// Latest returns the highest embedded migration version.
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

// CurrentVersion returns the highest applied version, 0 for a new database.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("querying current version: %w", err)
	}
	return version, nil
}

// Status reports every embedded migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	type record struct {
		at       time.Time
		checksum string
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at, COALESCE(checksum, '') FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]record)
	for rows.Next() {
		var (
			version int
			at, sum string
		)
		if err := rows.Scan(&version, &at, &sum); err != nil {
			return nil, fmt.Errorf("scanning migration record: %w", err)
		}
		t, _ := time.Parse(time.DateTime, at)
		applied[version] = record{at: t, checksum: sum}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migration records: %w", err)
	}

	status := slices.Clone(m.migrations)
	for i := range status {
		rec, ok := applied[status[i].Version]
		if !ok {
			continue
		}
		status[i].Applied = true
		status[i].AppliedAt = rec.at
		status[i].Modified = rec.checksum != "" && rec.checksum != status[i].Checksum
	}
	return status, nil
}

// MigrateUp applies every pending migration.
func (m *Migrator) MigrateUp(ctx context.Context) (*MigrationResult, error) {
	return m.MigrateTo(ctx, m.Latest())
}

// MigrateDown rolls back the most recently applied migration.
func (m *Migrator) MigrateDown(ctx context.Context) (*MigrationResult, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	if current == 0 {
		return &MigrationResult{}, errors.New("no migrations to roll back")
	}

	target := 0
	for _, mig := range m.migrations {
		if mig.Version < current {
			target = mig.Version
		}
	}
	return m.MigrateTo(ctx, target)
}

// MigrateTo moves the schema up or down to target. Each step runs in its
// own transaction; a failure leaves the schema at the last completed step.
func (m *Migrator) MigrateTo(ctx context.Context, target int) (*MigrationResult, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	result := &MigrationResult{CurrentVersion: current, TargetVersion: target}

	for _, mig := range status {
		if mig.Modified {
			return result, fmt.Errorf("migration %03d: %w", mig.Version, ErrMigrationModified)
		}
	}

	if target >= current {
		for _, mig := range status {
			if mig.Applied || mig.Version > target {
				continue
			}
			slog.Info("applying migration", "version", mig.Version, "description", mig.Description)
			if err := m.apply(ctx, mig); err != nil {
				return result, fmt.Errorf("migration %03d failed: %w", mig.Version, err)
			}
			mig.Applied = true
			result.Applied = append(result.Applied, mig)
		}
	} else {
		for _, mig := range slices.Backward(status) {
			if !mig.Applied || mig.Version <= target {
				continue
			}
			if mig.DownSQL == "" {
				return result, fmt.Errorf("migration %03d has no rollback SQL", mig.Version)
			}
			slog.Info("rolling back migration", "version", mig.Version, "description", mig.Description)
			if err := m.rollback(ctx, mig); err != nil {
				return result, fmt.Errorf("rollback %03d failed: %w", mig.Version, err)
			}
			mig.Applied = false
			result.RolledBack = append(result.RolledBack, mig)
		}
	}

	if len(result.Applied) == 0 && len(result.RolledBack) == 0 {
		slog.Debug("database schema is current", "version", current)
	}
	return result, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	return m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := execScript(ctx, tx, mig.UpSQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description, checksum) VALUES (?, ?, ?)",
			mig.Version, mig.Description, mig.Checksum,
		)
		if err != nil {
			return fmt.Errorf("recording migration: %w", err)
		}
		return nil
	})
}

func (m *Migrator) rollback(ctx context.Context, mig Migration) error {
	return m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := execScript(ctx, tx, mig.DownSQL); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", mig.Version); err != nil {
			return fmt.Errorf("removing migration record: %w", err)
		}
		return nil
	})
}

func execScript(ctx context.Context, tx *sql.Tx, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
