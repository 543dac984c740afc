package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Collection is one persisted blob keyed by collection name.
type Collection struct {
	Key       string
	Payload   []byte
	UpdatedAt time.Time
}

// CollectionRepository stores serialized ledger collections, one row per key.
type CollectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository creates a new collection repository.
func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Put inserts or replaces the payload stored under key.
func (r *CollectionRepository) Put(ctx context.Context, tx *sql.Tx, key string, payload []byte) error {
	query := `
		INSERT INTO ledger_collections (key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`

	_, err := r.getExecer(tx).ExecContext(ctx, query,
		key,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing collection %s: %w", key, err)
	}
	return nil
}

// Get retrieves the collection stored under key.
// Returns nil and no error when the key has never been written.
func (r *CollectionRepository) Get(ctx context.Context, key string) (*Collection, error) {
	query := `
		SELECT key, payload, updated_at
		FROM ledger_collections
		WHERE key = ?`

	var (
		c         Collection
		payload   string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, query, key).Scan(&c.Key, &payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning collection %s: %w", key, err)
	}

	c.Payload = []byte(payload)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// Load returns the raw payload under key, or nil if absent.
func (r *CollectionRepository) Load(ctx context.Context, key string) ([]byte, error) {
	c, err := r.Get(ctx, key)
	if err != nil || c == nil {
		return nil, err
	}
	return c.Payload, nil
}

// Save writes payload under key outside any transaction.
func (r *CollectionRepository) Save(ctx context.Context, key string, payload []byte) error {
	return r.Put(ctx, nil, key, payload)
}

// SaveBatch writes several collections in a single transaction.
func (r *CollectionRepository) SaveBatch(ctx context.Context, payloads map[string][]byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for key, payload := range payloads {
		if err := r.Put(ctx, tx, key, payload); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing collections: %w", err)
	}
	return nil
}

func (r *CollectionRepository) getExecer(tx *sql.Tx) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return r.db
}
