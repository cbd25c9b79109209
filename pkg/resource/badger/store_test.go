package badger_test

import (
	"context"
	"testing"

	"github.com/marmos91/vaultfs/pkg/resource"
	"github.com/marmos91/vaultfs/pkg/resource/badger"
)

func newStore(t *testing.T) *badger.BadgerStore {
	t.Helper()
	store, err := badger.NewBadgerStore(context.Background(), badger.BadgerStoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadgerStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUserIndexes(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	user, err := store.SaveUser(ctx, &resource.User{Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("SaveUser should assign an ID")
	}

	byName, err := store.GetUserByUsername(ctx, "alice")
	if err != nil || byName == nil || byName.ID != user.ID {
		t.Fatalf("GetUserByUsername = %v, %v", byName, err)
	}
	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil || byEmail == nil || byEmail.ID != user.ID {
		t.Fatalf("GetUserByEmail = %v, %v", byEmail, err)
	}

	// A username change must retire the old index entry.
	user.Username = "alice2"
	if _, err := store.SaveUser(ctx, user); err != nil {
		t.Fatalf("SaveUser rename failed: %v", err)
	}
	stale, err := store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("stale lookup errored: %v", err)
	}
	if stale != nil {
		t.Error("old username should no longer resolve")
	}
	fresh, _ := store.GetUserByUsername(ctx, "alice2")
	if fresh == nil || fresh.ID != user.ID {
		t.Error("new username should resolve to the same user")
	}

	missing, err := store.GetUser(ctx, "no-such-id")
	if err != nil || missing != nil {
		t.Errorf("missing user should be (nil, nil), got %v, %v", missing, err)
	}
}

func TestFolderHierarchy(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	root, err := store.SaveFolder(ctx, &resource.Folder{Name: "owner-1", OwnerID: "owner-1", Privacy: resource.PrivacyPrivate, Type: resource.FolderNormal})
	if err != nil {
		t.Fatalf("SaveFolder failed: %v", err)
	}

	// Root folders are found with an empty parent ID.
	got, err := store.GetFolderByNameAndParent(ctx, "owner-1", "")
	if err != nil || got == nil || got.ID != root.ID {
		t.Fatalf("root lookup = %v, %v", got, err)
	}

	child, err := store.SaveFolder(ctx, &resource.Folder{Name: "docs", ParentID: root.ID, OwnerID: "owner-1", Privacy: resource.PrivacyPrivate, Type: resource.FolderNormal})
	if err != nil {
		t.Fatalf("SaveFolder child failed: %v", err)
	}

	subs, err := store.ListSubfolders(ctx, root.ID)
	if err != nil || len(subs) != 1 || subs[0].ID != child.ID {
		t.Fatalf("ListSubfolders = %v, %v", subs, err)
	}

	// Roots of different owners never show up as each other's children.
	other, _ := store.SaveFolder(ctx, &resource.Folder{Name: "owner-2", OwnerID: "owner-2", Privacy: resource.PrivacyPrivate, Type: resource.FolderNormal})
	siblings, err := store.ListSubfolders(ctx, "")
	if err != nil {
		t.Fatalf("ListSubfolders(\"\") errored: %v", err)
	}
	if len(siblings) != 0 {
		t.Errorf("empty parent ID must not enumerate roots, got %d", len(siblings))
	}
	_ = other

	// Moving the child retires the old child-index entry.
	second, _ := store.SaveFolder(ctx, &resource.Folder{Name: "attic", ParentID: root.ID, OwnerID: "owner-1", Privacy: resource.PrivacyPrivate, Type: resource.FolderNormal})
	child.ParentID = second.ID
	if _, err := store.SaveFolder(ctx, child); err != nil {
		t.Fatalf("SaveFolder move failed: %v", err)
	}
	stale, err := store.GetFolderByNameAndParent(ctx, "docs", root.ID)
	if err != nil {
		t.Fatalf("stale lookup errored: %v", err)
	}
	if stale != nil {
		t.Error("moved folder should not resolve under its old parent")
	}
	moved, _ := store.GetFolderByNameAndParent(ctx, "docs", second.ID)
	if moved == nil || moved.ID != child.ID {
		t.Error("moved folder should resolve under its new parent")
	}

	if err := store.DeleteFolder(ctx, child.ID); err != nil {
		t.Fatalf("DeleteFolder failed: %v", err)
	}
	if err := store.DeleteFolder(ctx, child.ID); err != nil {
		t.Errorf("repeated delete should be a no-op, got %v", err)
	}
}

func TestFileRenameReindexes(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	file, err := store.SaveFile(ctx, &resource.File{Name: "a.txt", FolderID: "folder-1", OwnerID: "owner-1", Privacy: resource.PrivacyPrivate})
	if err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	file.Name = "b.txt"
	if _, err := store.SaveFile(ctx, file); err != nil {
		t.Fatalf("SaveFile rename failed: %v", err)
	}

	stale, err := store.GetFileByNameAndParent(ctx, "a.txt", "folder-1")
	if err != nil {
		t.Fatalf("stale lookup errored: %v", err)
	}
	if stale != nil {
		t.Error("old name should no longer resolve")
	}
	fresh, _ := store.GetFileByNameAndParent(ctx, "b.txt", "folder-1")
	if fresh == nil || fresh.ID != file.ID {
		t.Error("new name should resolve to the same file")
	}

	files, err := store.ListFiles(ctx, "folder-1")
	if err != nil || len(files) != 1 {
		t.Fatalf("ListFiles = %v, %v", files, err)
	}
}

func TestLinkIndexes(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	link, err := store.SaveLink(ctx, &resource.Link{
		Name:         "doc.txt",
		FolderID:     "folder-1",
		OwnerID:      "owner-2",
		ResourceType: resource.TypeFile,
		TargetFileID: "file-1",
	})
	if err != nil {
		t.Fatalf("SaveLink failed: %v", err)
	}

	byTarget, err := store.ListLinksByTargetFile(ctx, "file-1")
	if err != nil || len(byTarget) != 1 || byTarget[0].ID != link.ID {
		t.Fatalf("ListLinksByTargetFile = %v, %v", byTarget, err)
	}
	byOwner, err := store.GetLinkByTargetFileAndOwner(ctx, "file-1", "owner-2")
	if err != nil || byOwner == nil || byOwner.ID != link.ID {
		t.Fatalf("GetLinkByTargetFileAndOwner = %v, %v", byOwner, err)
	}
	byName, err := store.GetLinkByNameAndParent(ctx, "doc.txt", "folder-1")
	if err != nil || byName == nil || byName.ID != link.ID {
		t.Fatalf("GetLinkByNameAndParent = %v, %v", byName, err)
	}

	if err := store.DeleteLink(ctx, link.ID); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}
	byTarget, _ = store.ListLinksByTargetFile(ctx, "file-1")
	if len(byTarget) != 0 {
		t.Error("target index should be cleaned on delete")
	}
	byOwner, _ = store.GetLinkByTargetFileAndOwner(ctx, "file-1", "owner-2")
	if byOwner != nil {
		t.Error("owner index should be cleaned on delete")
	}
}

func TestGrants(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.SaveGrant(ctx, &resource.Grant{FileID: "file-1", UserID: "user-1"}); err != nil {
		t.Fatalf("SaveGrant failed: %v", err)
	}
	if err := store.SaveGrant(ctx, &resource.Grant{FileID: "file-1", UserID: "user-2"}); err != nil {
		t.Fatalf("SaveGrant failed: %v", err)
	}

	grant, err := store.GetGrant(ctx, "file-1", "user-1")
	if err != nil || grant == nil {
		t.Fatalf("GetGrant = %v, %v", grant, err)
	}
	grants, err := store.ListGrantsByFile(ctx, "file-1")
	if err != nil || len(grants) != 2 {
		t.Fatalf("ListGrantsByFile = %v, %v", grants, err)
	}

	if err := store.DeleteGrant(ctx, "file-1", "user-1"); err != nil {
		t.Fatalf("DeleteGrant failed: %v", err)
	}
	grant, _ = store.GetGrant(ctx, "file-1", "user-1")
	if grant != nil {
		t.Error("deleted grant should not resolve")
	}
	if err := store.DeleteGrant(ctx, "file-1", "user-1"); err != nil {
		t.Errorf("repeated delete should be a no-op, got %v", err)
	}
}
