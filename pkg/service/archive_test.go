package service_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strconv"
	"testing"

	kvMemory "github.com/marmos91/vaultfs/pkg/kv/memory"
	"github.com/marmos91/vaultfs/pkg/queue"
	"github.com/marmos91/vaultfs/pkg/resource"
	"github.com/marmos91/vaultfs/pkg/service"
)

func newArchiver(t *testing.T, e *env) *service.Archiver {
	t.Helper()
	return service.NewArchiver(e.service, kvMemory.NewMemoryStore(), queue.NewMemoryQueue(8))
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader failed: %v", err)
	}
	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %q: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %q: %v", f.Name, err)
		}
		entries[f.Name] = string(content)
	}
	return entries
}

func TestArchiveLockExclusivity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	archiver := newArchiver(t, e)

	token, err := archiver.AcquireLock(ctx, "owner-1", "/docs")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if token == "" {
		t.Fatal("acquire should return a token")
	}

	if _, err := archiver.AcquireLock(ctx, "owner-1", "/docs"); !resource.IsLockBusy(err) {
		t.Fatalf("second acquire should be LockBusy, got %v", err)
	}

	// A different path or owner is an independent lock.
	if _, err := archiver.AcquireLock(ctx, "owner-1", "/other"); err != nil {
		t.Errorf("different path should acquire: %v", err)
	}
	if _, err := archiver.AcquireLock(ctx, "owner-2", "/docs"); err != nil {
		t.Errorf("different owner should acquire: %v", err)
	}

	if err := archiver.ReleaseLock(ctx, "owner-1", "/docs"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := archiver.AcquireLock(ctx, "owner-1", "/docs"); err != nil {
		t.Errorf("reacquire after release failed: %v", err)
	}

	// Releasing an unheld lock is a no-op.
	if err := archiver.ReleaseLock(ctx, "owner-9", "/nothing"); err != nil {
		t.Errorf("release of unheld lock errored: %v", err)
	}
}

func TestBuildArchiveRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice")
	archiver := newArchiver(t, e)

	e.service.CreateFolderWithParents(ctx, mustPath(t, alice, "docs/sub"), resource.PrivacyPrivate)
	e.service.CreateFolderWithParents(ctx, mustPath(t, alice, "docs/empty"), resource.PrivacyPrivate)
	e.upload(t, alice, "docs/a.txt", "alpha", resource.PrivacyPrivate)
	e.upload(t, alice, "docs/sub/b.txt", "beta", resource.PrivacyPrivate)

	data, size, err := archiver.DownloadFolder(ctx, mustPath(t, alice, "docs"))
	if err != nil {
		t.Fatalf("DownloadFolder failed: %v", err)
	}
	if size != int64(len(data)) {
		t.Errorf("size %d does not match buffer length %d", size, len(data))
	}

	entries := readArchive(t, data)
	if entries["docs/a.txt"] != "alpha" {
		t.Errorf("docs/a.txt = %q, want %q", entries["docs/a.txt"], "alpha")
	}
	if entries["docs/sub/b.txt"] != "beta" {
		t.Errorf("docs/sub/b.txt = %q, want %q", entries["docs/sub/b.txt"], "beta")
	}
	if _, ok := entries["docs/empty/"]; !ok {
		t.Errorf("empty folder should appear as a directory entry, got %v", keysOf(entries))
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %v", keysOf(entries))
	}
}

func TestArchiveOfEmptyFolderKeepsDirectoryEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice")
	archiver := newArchiver(t, e)

	e.service.CreateFolder(ctx, mustPath(t, alice, "empty"), resource.PrivacyPrivate, resource.FolderNormal)

	data, _, err := archiver.DownloadFolder(ctx, mustPath(t, alice, "empty"))
	if err != nil {
		t.Fatalf("DownloadFolder failed: %v", err)
	}

	entries := readArchive(t, data)
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 entry, got %v", keysOf(entries))
	}
	if _, ok := entries["empty/"]; !ok {
		t.Errorf("the archived folder itself should survive as a directory entry, got %v", keysOf(entries))
	}
}

func keysOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestHandleArchiveJobCreatesZip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice")
	archiver := newArchiver(t, e)

	e.service.CreateFolder(ctx, mustPath(t, alice, "docs"), resource.PrivacyPublic, resource.FolderNormal)
	e.upload(t, alice, "docs/a.txt", "alpha", resource.PrivacyPrivate)

	job := queue.Job{
		Name: service.JobCreateArchive,
		Args: map[string]string{
			"owner_id": alice.ID,
			"path":     "/docs",
			"force":    strconv.FormatBool(false),
			"token":    "tok",
		},
	}
	if err := archiver.HandleArchiveJob(ctx, job); err != nil {
		t.Fatalf("HandleArchiveJob failed: %v", err)
	}

	zipFile, rc, err := e.service.OpenFile(ctx, mustPath(t, alice, "docs.zip"))
	if err != nil {
		t.Fatalf("archive file should exist next to the folder: %v", err)
	}
	defer rc.Close()
	if zipFile.Privacy != resource.PrivacyPrivate {
		t.Errorf("archive must be created private, got %q", zipFile.Privacy)
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading archive blob failed: %v", err)
	}
	entries := readArchive(t, data)
	if entries["docs/a.txt"] != "alpha" {
		t.Errorf("docs/a.txt = %q, want %q", entries["docs/a.txt"], "alpha")
	}

	// Without force a second run collides with the existing zip, but the
	// lock must be released regardless.
	if err := archiver.HandleArchiveJob(ctx, job); !resource.IsAlreadyExists(err) {
		t.Fatalf("second run without force should be AlreadyExists, got %v", err)
	}
	if _, err := archiver.AcquireLock(ctx, alice.ID, "/docs"); err != nil {
		t.Errorf("lock should be free after a failed job: %v", err)
	}
	archiver.ReleaseLock(ctx, alice.ID, "/docs")

	// With force the zip is replaced.
	job.Args["force"] = strconv.FormatBool(true)
	if err := archiver.HandleArchiveJob(ctx, job); err != nil {
		t.Fatalf("forced rerun failed: %v", err)
	}
}

func TestEnqueueArchiveHoldsLock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice")
	archiver := newArchiver(t, e)

	e.service.CreateFolder(ctx, mustPath(t, alice, "docs"), resource.PrivacyPrivate, resource.FolderNormal)

	if err := archiver.EnqueueArchive(ctx, mustPath(t, alice, "docs"), false); err != nil {
		t.Fatalf("EnqueueArchive failed: %v", err)
	}
	if err := archiver.EnqueueArchive(ctx, mustPath(t, alice, "docs"), false); !resource.IsLockBusy(err) {
		t.Fatalf("enqueue while job in flight should be LockBusy, got %v", err)
	}

	// A bad path fails fast without taking the lock.
	if err := archiver.EnqueueArchive(ctx, mustPath(t, alice, "missing"), false); !resource.IsNotFound(err) {
		t.Fatalf("enqueue of missing folder should be NotFound, got %v", err)
	}
	if _, err := archiver.AcquireLock(ctx, alice.ID, "/missing"); err != nil {
		t.Errorf("failed enqueue must not leave the lock held: %v", err)
	}
}
