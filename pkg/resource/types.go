// Package resource defines the persisted entities of the VaultFS namespace
// (users, folders, files, links, grants), their invariants, and the store
// interface every persistence backend implements.
//
// The namespace is a per-user tree: every account owns exactly one root
// folder (named by the account's user ID) holding an arbitrary hierarchy of
// folders and files. Cross-user sharing never copies data; it is expressed
// through Link entries (non-owning references in the importing user's tree)
// backed by Grant rows (the source of truth for who has imported a file).
package resource

// Privacy is the access level of a file or folder.
type Privacy string

const (
	// PrivacyPrivate restricts access to the owner
	PrivacyPrivate Privacy = "private"

	// PrivacyProtected grants access to the owner plus the usernames
	// materialized in File.SharedTo
	PrivacyProtected Privacy = "protected"

	// PrivacyPublic grants access to everyone; no grant set is tracked
	PrivacyPublic Privacy = "public"
)

// FolderType distinguishes user-managed folders from the auto-managed
// sharing containers.
type FolderType string

const (
	// FolderNormal is a regular user-created folder
	FolderNormal FolderType = "normal"

	// FolderShared is the fixed, non-deletable "Shared" folder created at
	// account setup. It only ever contains FolderSharingUser subfolders.
	FolderShared FolderType = "shared"

	// FolderSharingUser is an auto-managed "Shared/<owner-username>" folder
	// holding Links to one other owner's resources. Created lazily on import,
	// deleted automatically the moment its last Link is removed.
	FolderSharingUser FolderType = "sharing_user"
)

// ResourceType identifies what kind of entity sits at a path.
type ResourceType string

const (
	TypeFile   ResourceType = "file"
	TypeFolder ResourceType = "folder"
	TypeLink   ResourceType = "link"
)

// User is an account identity. Authentication happens outside the engine;
// the password hash is stored only so account registration is self-contained.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Folder is a node of the namespace tree.
//
// A folder with an empty ParentID is a root folder; exactly one exists per
// owner and its name is the owner's user ID. Root and FolderShared folders
// cannot be deleted or have their privacy mutated through hierarchy
// operations.
type Folder struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	ParentID string     `json:"parent_id,omitempty"`
	OwnerID  string     `json:"owner_id"`
	Privacy  Privacy    `json:"privacy"`
	Type     FolderType `json:"type"`
}

// IsRoot reports whether the folder is a root folder (has no parent).
func (f *Folder) IsRoot() bool {
	return f.ParentID == ""
}

// File is a named blob inside a folder. The payload itself lives in the blob
// store, keyed by the file's ID; this row carries only metadata.
//
// SharedTo is the materialized set of usernames with PROTECTED access. It
// must stay consistent with the Grant rows for this file: the sharing engine
// is the only writer of both.
type File struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	FolderID string   `json:"folder_id"`
	OwnerID  string   `json:"owner_id"`
	Privacy  Privacy  `json:"privacy"`
	Size     int64    `json:"size"`
	SharedTo []string `json:"shared_to"`
}

// IsSharedTo reports whether the given username is in the file's allow-list.
func (f *File) IsSharedTo(username string) bool {
	for _, u := range f.SharedTo {
		if u == username {
			return true
		}
	}
	return false
}

// Link is a non-owning reference in one user's tree pointing at another
// user's file or folder. Exactly one of TargetFileID/TargetFolderID is set.
// Deleting a link never deletes its target.
type Link struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	FolderID       string       `json:"folder_id"`
	OwnerID        string       `json:"owner_id"`
	ResourceType   ResourceType `json:"resource_type"`
	TargetFileID   string       `json:"target_file_id,omitempty"`
	TargetFolderID string       `json:"target_folder_id,omitempty"`
}

// Grant records that a user has imported a specific file. It is the source
// of truth for revocation on privacy downgrades; the convenience Link entry
// in the grantee's tree is derived from it.
//
// Grants are created and destroyed only by the sharing engine, never
// directly by users.
type Grant struct {
	FileID string `json:"file_id"`
	UserID string `json:"user_id"`
}

// UnionUsernames returns the set union of two username lists, preserving
// first-seen order. Used when reconciling a file's allow-list on privacy
// transitions.
func UnionUsernames(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
