package repository

import (
	"context"
	"testing"

	"github.com/northchrome/opsledger/internal/testutil"
)

func setupCollectionTest(t *testing.T) (*CollectionRepository, *testutil.TestDB, context.Context) {
	t.Helper()
	db := testutil.NewLedgerDB(t)
	return NewCollectionRepository(db.DB), db, context.Background()
}

func TestCollectionRepository_PutGet(t *testing.T) {
	repo, db, ctx := setupCollectionTest(t)

	t.Run("Missing key returns nil", func(t *testing.T) {
		got, err := repo.Get(ctx, "work_orders")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing key, got %+v", got)
		}
	})

	t.Run("Put then Get", func(t *testing.T) {
		if err := repo.Put(ctx, nil, "inventory", []byte(`[{"id":"MAT-001"}]`)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := repo.Get(ctx, "inventory")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got.Payload) != `[{"id":"MAT-001"}]` {
			t.Errorf("unexpected payload %s", got.Payload)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("expected updated_at to be set")
		}
	})

	t.Run("Put overwrites", func(t *testing.T) {
		if err := repo.Put(ctx, nil, "inventory", []byte(`[]`)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		payload, err := repo.Load(ctx, "inventory")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if string(payload) != `[]` {
			t.Errorf("expected overwritten payload, got %s", payload)
		}
		db.AssertCollectionCount(t, 1)
	})
}

func TestCollectionRepository_SaveBatch(t *testing.T) {
	repo, db, ctx := setupCollectionTest(t)

	err := repo.SaveBatch(ctx, map[string][]byte{
		"tools":      []byte(`[]`),
		"tool_loans": []byte(`[]`),
	})
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	db.AssertCollectionCount(t, 2)

	for _, key := range []string{"tools", "tool_loans"} {
		if payload, err := repo.Load(ctx, key); err != nil || string(payload) != `[]` {
			t.Errorf("Load %s = %q, %v", key, payload, err)
		}
	}
}
