package service

import (
	"context"

	"github.com/marmos91/vaultfs/pkg/resource"
)

// Resolver maps (owner, path) pairs to persisted tree nodes and back.
//
// Resolution is a chain of keyed lookups: the owner's root folder is found
// by name (the owner's user ID) with no parent, then each path segment is
// looked up by name within the previous folder. Cost is O(depth) point
// lookups per call; no caching.
type Resolver struct {
	store resource.Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store resource.Store) *Resolver {
	return &Resolver{store: store}
}

// rootFolder returns the owner's root folder. A missing root is an
// integrity fault, not an ordinary not-found: every account is provisioned
// with one at registration.
func (r *Resolver) rootFolder(ctx context.Context, owner *resource.User) (*resource.Folder, error) {
	root, err := r.store.GetFolderByNameAndParent(ctx, owner.ID, "")
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, resource.ErrIntegrity("root folder missing for user " + owner.Username)
	}
	return root, nil
}

// FolderFromPath resolves a path to the folder it addresses. It fails with
// NotFound naming the first missing segment.
func (r *Resolver) FolderFromPath(ctx context.Context, path resource.UserPath) (*resource.Folder, error) {
	current, err := r.rootFolder(ctx, path.Owner())
	if err != nil {
		return nil, err
	}

	for _, segment := range path.Parts() {
		next, err := r.store.GetFolderByNameAndParent(ctx, segment, current.ID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, resource.ErrNotFound(segment)
		}
		current = next
	}

	return current, nil
}

// FileFromPath resolves a path to the file it addresses.
func (r *Resolver) FileFromPath(ctx context.Context, path resource.UserPath) (*resource.File, error) {
	if path.IsRoot() {
		return nil, resource.ErrInvalidPath(path.String())
	}

	parent, err := r.FolderFromPath(ctx, path.Parent())
	if err != nil {
		return nil, err
	}

	file, err := r.store.GetFileByNameAndParent(ctx, path.Name(), parent.ID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, resource.ErrNotFound(path.Name())
	}
	return file, nil
}

// LinkFromPath resolves a path to the link it addresses.
func (r *Resolver) LinkFromPath(ctx context.Context, path resource.UserPath) (*resource.Link, error) {
	if path.IsRoot() {
		return nil, resource.ErrInvalidPath(path.String())
	}

	parent, err := r.FolderFromPath(ctx, path.Parent())
	if err != nil {
		return nil, err
	}

	link, err := r.store.GetLinkByNameAndParent(ctx, path.Name(), parent.ID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, resource.ErrNotFound(path.Name())
	}
	return link, nil
}

// PathFromFolder is the inverse of FolderFromPath: it walks parent pointers
// up to the root, collecting names, and re-attaches the owner. The root
// folder's name is the owner's user ID, which is how the owner is recovered.
func (r *Resolver) PathFromFolder(ctx context.Context, folder *resource.Folder) (resource.UserPath, error) {
	var names []string
	current := folder

	for !current.IsRoot() {
		names = append(names, current.Name)
		parent, err := r.store.GetFolder(ctx, current.ParentID)
		if err != nil {
			return resource.UserPath{}, err
		}
		if parent == nil {
			return resource.UserPath{}, resource.ErrIntegrity("folder " + current.ID + " has a dangling parent")
		}
		current = parent
	}

	owner, err := r.store.GetUser(ctx, current.Name)
	if err != nil {
		return resource.UserPath{}, err
	}
	if owner == nil {
		return resource.UserPath{}, resource.ErrIntegrity("root folder " + current.ID + " names no known user")
	}

	path := resource.RootOf(owner)
	for i := len(names) - 1; i >= 0; i-- {
		path = path.Join(names[i])
	}
	return path, nil
}

// PathFromFile returns the full path of a file.
func (r *Resolver) PathFromFile(ctx context.Context, file *resource.File) (resource.UserPath, error) {
	folder, err := r.store.GetFolder(ctx, file.FolderID)
	if err != nil {
		return resource.UserPath{}, err
	}
	if folder == nil {
		return resource.UserPath{}, resource.ErrIntegrity("file " + file.ID + " has a dangling parent folder")
	}

	folderPath, err := r.PathFromFolder(ctx, folder)
	if err != nil {
		return resource.UserPath{}, err
	}
	return folderPath.Join(file.Name), nil
}

// PathFromLink returns the full path of a link.
func (r *Resolver) PathFromLink(ctx context.Context, link *resource.Link) (resource.UserPath, error) {
	folder, err := r.store.GetFolder(ctx, link.FolderID)
	if err != nil {
		return resource.UserPath{}, err
	}
	if folder == nil {
		return resource.UserPath{}, resource.ErrIntegrity("link " + link.ID + " has a dangling parent folder")
	}

	folderPath, err := r.PathFromFolder(ctx, folder)
	if err != nil {
		return resource.UserPath{}, err
	}
	return folderPath.Join(link.Name), nil
}
