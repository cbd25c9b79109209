package memory

import (
	"context"
	"testing"
	"time"
)

func TestSetIfAbsent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, err := store.SetIfAbsent(ctx, "k", "v1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetIfAbsent should succeed: %v, %v", ok, err)
	}

	ok, err = store.SetIfAbsent(ctx, "k", "v2", time.Minute)
	if err != nil {
		t.Fatalf("second SetIfAbsent errored: %v", err)
	}
	if ok {
		t.Fatal("second SetIfAbsent should report the key as held")
	}

	value, found, err := store.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Get failed: %v, %v", found, err)
	}
	if value != "v1" {
		t.Errorf("expected v1, got %q", value)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, err = store.SetIfAbsent(ctx, "k", "v3", time.Minute)
	if err != nil || !ok {
		t.Fatalf("SetIfAbsent after delete should succeed: %v, %v", ok, err)
	}
}

func TestEntriesExpire(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	if ok, _ := store.SetIfAbsent(ctx, "k", "v", time.Hour); !ok {
		t.Fatal("SetIfAbsent should succeed on empty store")
	}

	current = current.Add(30 * time.Minute)
	if _, found, _ := store.Get(ctx, "k"); !found {
		t.Fatal("entry should still be live before the TTL elapses")
	}

	current = current.Add(31 * time.Minute)
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Fatal("entry should have expired")
	}

	if ok, _ := store.SetIfAbsent(ctx, "k", "v2", time.Hour); !ok {
		t.Fatal("SetIfAbsent should reclaim an expired key")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	if ok, _ := store.SetIfAbsent(ctx, "k", "v", 0); !ok {
		t.Fatal("SetIfAbsent should succeed")
	}

	current = current.Add(1000 * time.Hour)
	if _, found, _ := store.Get(ctx, "k"); !found {
		t.Fatal("entry without TTL should never expire")
	}
}
