package vaultfs_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	blobMemory "github.com/marmos91/vaultfs/pkg/blob/memory"
	kvMemory "github.com/marmos91/vaultfs/pkg/kv/memory"
	"github.com/marmos91/vaultfs/pkg/resource"
	"github.com/marmos91/vaultfs/pkg/resource/memory"
	"github.com/marmos91/vaultfs/pkg/vaultfs"
)

func newEngine(t *testing.T) *vaultfs.VaultFS {
	t.Helper()
	return vaultfs.New(memory.NewMemoryStore(), blobMemory.NewMemoryBlobStore(), kvMemory.NewMemoryStore(), 8)
}

func mustPath(t *testing.T, owner *resource.User, path string) resource.UserPath {
	t.Helper()
	p, err := resource.NewUserPath(owner, path)
	if err != nil {
		t.Fatalf("NewUserPath(%q) failed: %v", path, err)
	}
	return p
}

func TestDownloadImportsAndRevocationCleansUp(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	alice, err := engine.Register(ctx, "alice", "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob, err := engine.Register(ctx, "bob", "bob@example.com", "pw")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	content := "hello from alice"
	if _, err := engine.UploadFile(ctx, mustPath(t, alice, "doc.txt"),
		strings.NewReader(content), int64(len(content)), false, resource.PrivacyPublic); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Bob downloads Alice's public file through her namespace.
	file, rc, err := engine.DownloadFile(ctx, mustPath(t, alice, "doc.txt"), bob)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != content {
		t.Errorf("downloaded %q, want %q", data, content)
	}

	// The download imported the file: Bob now has a link under Shared/alice.
	if got, err := engine.CheckResourceType(ctx, mustPath(t, bob, "Shared/alice/doc.txt")); err != nil || got != resource.TypeLink {
		t.Fatalf("expected a link in Bob's Shared folder, got %v, %v", got, err)
	}

	// Alice pulls the file back to private. Bob's import disappears.
	if _, err := engine.UpdateFile(ctx, mustPath(t, alice, "doc.txt"), resource.PrivacyPrivate, nil); err != nil {
		t.Fatalf("update to private: %v", err)
	}
	if _, err := engine.CheckResourceType(ctx, mustPath(t, bob, "Shared/alice/doc.txt")); !resource.IsNotFound(err) {
		t.Errorf("Bob's link should be gone, got %v", err)
	}
	if _, err := engine.CheckResourceType(ctx, mustPath(t, bob, "Shared/alice")); !resource.IsNotFound(err) {
		t.Errorf("Bob's sharing folder should be gone, got %v", err)
	}

	// Bob can no longer read the file.
	if _, _, err := engine.DownloadFile(ctx, mustPath(t, alice, "doc.txt"), bob); !resource.IsForbidden(err) {
		t.Errorf("download after revocation should be Forbidden, got %v", err)
	}
	if _, err := engine.GetVerifiedFile(ctx, file.ID, bob); !resource.IsForbidden(err) {
		t.Errorf("lookup by ID after revocation should be Forbidden, got %v", err)
	}

	// Alice still can.
	if _, rc, err := engine.DownloadFile(ctx, mustPath(t, alice, "doc.txt"), alice); err != nil {
		t.Errorf("owner download failed: %v", err)
	} else {
		rc.Close()
	}
}

func TestOwnerDownloadDoesNotImport(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	alice, _ := engine.Register(ctx, "alice", "alice@example.com", "pw")
	engine.UploadFile(ctx, mustPath(t, alice, "doc.txt"), strings.NewReader("x"), 1, false, resource.PrivacyPublic)

	_, rc, err := engine.DownloadFile(ctx, mustPath(t, alice, "doc.txt"), alice)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	rc.Close()

	contents, err := engine.GetFolderContents(ctx, mustPath(t, alice, "Shared"))
	if err != nil {
		t.Fatalf("listing Shared: %v", err)
	}
	if len(contents.Folders) != 0 {
		t.Errorf("owner download must not create sharing folders, got %d", len(contents.Folders))
	}
}

func TestBackgroundArchive(t *testing.T) {
	engine := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)
	defer engine.Stop(context.Background())

	alice, _ := engine.Register(ctx, "alice", "alice@example.com", "pw")
	engine.CreateFolder(ctx, mustPath(t, alice, "docs"), resource.PrivacyPrivate)
	engine.UploadFile(ctx, mustPath(t, alice, "docs/a.txt"), strings.NewReader("alpha"), 5, false, resource.PrivacyPrivate)

	if err := engine.RequestArchive(ctx, mustPath(t, alice, "docs"), false); err != nil {
		t.Fatalf("RequestArchive failed: %v", err)
	}

	// The worker runs the job asynchronously; poll for the result.
	deadline := time.Now().Add(5 * time.Second)
	for {
		zipFile, err := engine.Service().Resolver().FileFromPath(ctx, mustPath(t, alice, "docs.zip"))
		if err == nil {
			if zipFile.Privacy != resource.PrivacyPrivate {
				t.Errorf("archive should be private, got %q", zipFile.Privacy)
			}
			break
		}
		if !resource.IsNotFound(err) {
			t.Fatalf("unexpected error waiting for archive: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("archive was not created before the deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The lock is released once the job completes, so a rerun is accepted.
	if err := engine.RequestArchive(ctx, mustPath(t, alice, "docs"), true); err != nil {
		t.Fatalf("rerun with force failed: %v", err)
	}
}
