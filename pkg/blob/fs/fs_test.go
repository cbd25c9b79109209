package fs_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/marmos91/vaultfs/pkg/blob/fs"
	"github.com/marmos91/vaultfs/pkg/resource"
)

func newStore(t *testing.T) *fs.FSBlobStore {
	t.Helper()
	store, err := fs.NewFSBlobStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("NewFSBlobStore failed: %v", err)
	}
	return store
}

func TestSaveOpenRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	content := "blob content"
	n, err := store.Save(ctx, "blob-1", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("Save returned %d bytes, want %d", n, len(content))
	}

	rc, err := store.Open(ctx, "blob-1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != content {
		t.Errorf("read %q, want %q", data, content)
	}

	exists, err := store.Exists(ctx, "blob-1")
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	store.Save(ctx, "blob-1", strings.NewReader("old"))
	if _, err := store.Save(ctx, "blob-1", strings.NewReader("new")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	rc, _ := store.Open(ctx, "blob-1")
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "new" {
		t.Errorf("read %q after overwrite, want %q", data, "new")
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.Open(context.Background(), "missing")
	if !resource.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	store.Save(ctx, "blob-1", strings.NewReader("x"))
	if err := store.Delete(ctx, "blob-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if exists, _ := store.Exists(ctx, "blob-1"); exists {
		t.Error("blob should be gone after delete")
	}
	if err := store.Delete(ctx, "blob-1"); err != nil {
		t.Errorf("repeated delete errored: %v", err)
	}
}
