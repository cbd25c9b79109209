package badger_test

import (
	"context"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	kvBadger "github.com/marmos91/vaultfs/pkg/kv/badger"
)

func newStore(t *testing.T) *kvBadger.BadgerStore {
	t.Helper()
	store, err := kvBadger.NewBadgerStore(context.Background(), kvBadger.BadgerStoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadgerStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSetIfAbsent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	acquired, err := store.SetIfAbsent(ctx, "k", "v1", 0)
	if err != nil || !acquired {
		t.Fatalf("first SetIfAbsent = %v, %v", acquired, err)
	}
	acquired, err = store.SetIfAbsent(ctx, "k", "v2", 0)
	if err != nil {
		t.Fatalf("second SetIfAbsent errored: %v", err)
	}
	if acquired {
		t.Fatal("second SetIfAbsent should lose")
	}

	value, found, err := store.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Get = %q, %v, %v", value, found, err)
	}
	if value != "v1" {
		t.Errorf("losing write must not overwrite, got %q", value)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if acquired, _ := store.SetIfAbsent(ctx, "k", "v3", 0); !acquired {
		t.Error("key should be free after delete")
	}
}

func TestEntriesExpire(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if acquired, err := store.SetIfAbsent(ctx, "k", "v", 50*time.Millisecond); err != nil || !acquired {
		t.Fatalf("SetIfAbsent = %v, %v", acquired, err)
	}
	if _, found, _ := store.Get(ctx, "k"); !found {
		t.Fatal("entry should be visible before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("entry should be gone after the TTL")
	}
	if acquired, err := store.SetIfAbsent(ctx, "k", "v2", 0); err != nil || !acquired {
		t.Errorf("expired key should be reclaimable, got %v, %v", acquired, err)
	}
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	store := newStore(t)
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("deleting a missing key errored: %v", err)
	}
}

func TestSharedDatabaseWrapper(t *testing.T) {
	opts := badgerdb.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badgerdb.WARNING)
	db, err := badgerdb.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	defer db.Close()

	store := kvBadger.NewBadgerStoreFromDB(db)
	ctx := context.Background()

	if acquired, err := store.SetIfAbsent(ctx, "k", "v", 0); err != nil || !acquired {
		t.Fatalf("SetIfAbsent = %v, %v", acquired, err)
	}

	// Close on a wrapper leaves the shared database open.
	if err := store.Close(); err != nil {
		t.Fatalf("wrapper Close errored: %v", err)
	}
	if _, found, err := store.Get(ctx, "k"); err != nil || !found {
		t.Errorf("database should still be usable after wrapper Close: %v, %v", found, err)
	}
}
