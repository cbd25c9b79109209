package resource

import "context"

// Store is the persistence interface for the resource tree.
//
// Implementations must provide read-your-writes consistency within a single
// call sequence and be safe for concurrent use; isolation between concurrent
// mutations of the same parent (e.g. two simultaneous creates of the same
// name) is delegated to the backend's own transaction/locking guarantees.
//
// Lookup methods return (nil, nil) when the entity does not exist;
// existence is an ordinary query result here, not an error condition. Save
// is an upsert: it assigns an ID to new entities and returns the refreshed
// entity. Delete methods are idempotent and succeed on missing entities.
type Store interface {
	// Users

	SaveUser(ctx context.Context, user *User) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Folders
	//
	// A parentID of "" addresses root folders (folders with no parent).

	SaveFolder(ctx context.Context, folder *Folder) (*Folder, error)
	GetFolder(ctx context.Context, id string) (*Folder, error)
	GetFolderByNameAndParent(ctx context.Context, name, parentID string) (*Folder, error)
	ListSubfolders(ctx context.Context, parentID string) ([]*Folder, error)
	DeleteFolder(ctx context.Context, id string) error

	// Files

	SaveFile(ctx context.Context, file *File) (*File, error)
	GetFile(ctx context.Context, id string) (*File, error)
	GetFileByNameAndParent(ctx context.Context, name, folderID string) (*File, error)
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DeleteFile(ctx context.Context, id string) error

	// Links

	SaveLink(ctx context.Context, link *Link) (*Link, error)
	GetLink(ctx context.Context, id string) (*Link, error)
	GetLinkByNameAndParent(ctx context.Context, name, folderID string) (*Link, error)
	ListLinks(ctx context.Context, folderID string) ([]*Link, error)
	ListLinksByTargetFile(ctx context.Context, fileID string) ([]*Link, error)
	GetLinkByTargetFileAndOwner(ctx context.Context, fileID, ownerID string) (*Link, error)
	DeleteLink(ctx context.Context, id string) error

	// Grants

	SaveGrant(ctx context.Context, grant *Grant) error
	GetGrant(ctx context.Context, fileID, userID string) (*Grant, error)
	ListGrantsByFile(ctx context.Context, fileID string) ([]*Grant, error)
	DeleteGrant(ctx context.Context, fileID, userID string) error

	// Close releases backend resources. Safe to call multiple times.
	Close() error
}
