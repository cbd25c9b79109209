package service

import (
	"context"
	"io"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/resource"
)

// FolderContents is a listing of a folder's direct children.
type FolderContents struct {
	Folder  *resource.Folder
	Folders []*resource.Folder
	Files   []*resource.File
	Links   []*resource.Link
}

// ensureNameFree rejects with AlreadyExists when any child (file, folder or
// link) of the given parent already carries the name. Names are unique per
// parent across all three kinds.
func (s *Service) ensureNameFree(ctx context.Context, name, parentID string) error {
	folder, err := s.store.GetFolderByNameAndParent(ctx, name, parentID)
	if err != nil {
		return err
	}
	if folder != nil {
		return resource.ErrAlreadyExists(name)
	}

	file, err := s.store.GetFileByNameAndParent(ctx, name, parentID)
	if err != nil {
		return err
	}
	if file != nil {
		return resource.ErrAlreadyExists(name)
	}

	link, err := s.store.GetLinkByNameAndParent(ctx, name, parentID)
	if err != nil {
		return err
	}
	if link != nil {
		return resource.ErrAlreadyExists(name)
	}

	return nil
}

// CreateFolder creates a folder at the given path. The parent chain must
// already exist; creating a root folder through this path is forbidden.
func (s *Service) CreateFolder(ctx context.Context, path resource.UserPath, privacy resource.Privacy, folderType resource.FolderType) (*resource.Folder, error) {
	if path.IsRoot() {
		return nil, resource.ErrForbidden("cannot create a folder at the namespace root")
	}

	parent, err := s.resolver.FolderFromPath(ctx, path.Parent())
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, path.Name(), parent.ID); err != nil {
		return nil, err
	}

	folder, err := s.store.SaveFolder(ctx, &resource.Folder{
		Name:     path.Name(),
		ParentID: parent.ID,
		OwnerID:  path.Owner().ID,
		Privacy:  privacy,
		Type:     folderType,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Created folder %s (type=%s privacy=%s)", path, folderType, privacy)
	return folder, nil
}

// CreateFolderWithParents creates a folder with mkdir -p semantics: missing
// intermediate folders are created as PRIVATE, the leaf at the requested
// privacy.
func (s *Service) CreateFolderWithParents(ctx context.Context, path resource.UserPath, privacy resource.Privacy) (*resource.Folder, error) {
	if path.IsRoot() {
		return nil, resource.ErrForbidden("cannot create a folder at the namespace root")
	}

	current, err := s.resolver.rootFolder(ctx, path.Owner())
	if err != nil {
		return nil, err
	}

	parts := path.Parts()
	for _, segment := range parts[:len(parts)-1] {
		next, err := s.store.GetFolderByNameAndParent(ctx, segment, current.ID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			if err := s.ensureNameFree(ctx, segment, current.ID); err != nil {
				return nil, err
			}
			next, err = s.store.SaveFolder(ctx, &resource.Folder{
				Name:     segment,
				ParentID: current.ID,
				OwnerID:  path.Owner().ID,
				Privacy:  resource.PrivacyPrivate,
				Type:     resource.FolderNormal,
			})
			if err != nil {
				return nil, err
			}
		}
		current = next
	}

	if err := s.ensureNameFree(ctx, path.Name(), current.ID); err != nil {
		return nil, err
	}

	return s.store.SaveFolder(ctx, &resource.Folder{
		Name:     path.Name(),
		ParentID: current.ID,
		OwnerID:  path.Owner().ID,
		Privacy:  privacy,
		Type:     resource.FolderNormal,
	})
}

// GetFolderContents lists the direct children of the folder at path.
func (s *Service) GetFolderContents(ctx context.Context, path resource.UserPath) (*FolderContents, error) {
	folder, err := s.resolver.FolderFromPath(ctx, path)
	if err != nil {
		return nil, err
	}

	folders, err := s.store.ListSubfolders(ctx, folder.ID)
	if err != nil {
		return nil, err
	}
	files, err := s.store.ListFiles(ctx, folder.ID)
	if err != nil {
		return nil, err
	}
	links, err := s.store.ListLinks(ctx, folder.ID)
	if err != nil {
		return nil, err
	}

	return &FolderContents{
		Folder:  folder,
		Folders: folders,
		Files:   files,
		Links:   links,
	}, nil
}

// DeleteFolder deletes the folder at path. Root and SHARED folders cannot
// be deleted. A populated folder requires recursive=true, otherwise the
// call fails with NotEmpty. A recursive delete leaves no orphaned files,
// subfolders, links or grants behind.
func (s *Service) DeleteFolder(ctx context.Context, path resource.UserPath, recursive bool) error {
	folder, err := s.resolver.FolderFromPath(ctx, path)
	if err != nil {
		return err
	}

	if folder.IsRoot() {
		return resource.ErrForbidden("root folder cannot be deleted")
	}
	if folder.Type == resource.FolderShared {
		return resource.ErrForbidden("the Shared folder cannot be deleted")
	}

	if !recursive {
		empty, err := s.folderIsEmpty(ctx, folder)
		if err != nil {
			return err
		}
		if !empty {
			return resource.ErrNotEmpty(path.String())
		}
	}

	return s.deleteFolderTree(ctx, folder)
}

func (s *Service) folderIsEmpty(ctx context.Context, folder *resource.Folder) (bool, error) {
	folders, err := s.store.ListSubfolders(ctx, folder.ID)
	if err != nil {
		return false, err
	}
	files, err := s.store.ListFiles(ctx, folder.ID)
	if err != nil {
		return false, err
	}
	links, err := s.store.ListLinks(ctx, folder.ID)
	if err != nil {
		return false, err
	}
	return len(folders) == 0 && len(files) == 0 && len(links) == 0, nil
}

// deleteFolderTree removes a folder and everything beneath it. Files go
// through the full file-delete cascade, subfolders are deleted recursively,
// and links in SHARING_USER folders revoke their owner's grant first.
func (s *Service) deleteFolderTree(ctx context.Context, folder *resource.Folder) error {
	files, err := s.store.ListFiles(ctx, folder.ID)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := s.deleteFileCascade(ctx, file); err != nil {
			return err
		}
	}

	subfolders, err := s.store.ListSubfolders(ctx, folder.ID)
	if err != nil {
		return err
	}
	for _, sub := range subfolders {
		if err := s.deleteFolderTree(ctx, sub); err != nil {
			return err
		}
	}

	links, err := s.store.ListLinks(ctx, folder.ID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if folder.Type == resource.FolderSharingUser {
			if err := s.removeLink(ctx, link, false); err != nil {
				return err
			}
		} else if err := s.store.DeleteLink(ctx, link.ID); err != nil {
			return err
		}
	}

	return s.store.DeleteFolder(ctx, folder.ID)
}

// CreateFile stores content at the given path. The parent folder must be of
// type NORMAL; uploading into managed Shared folders is forbidden. With
// force=true any existing file at the path is deleted first (a missing file
// is not an error). The stored size is the actual byte count written; the
// declared size is advisory only.
func (s *Service) CreateFile(ctx context.Context, path resource.UserPath, content io.Reader, declaredSize int64, force bool, privacy resource.Privacy) (*resource.File, error) {
	if path.IsRoot() {
		return nil, resource.ErrForbidden("creation of a file with no name is forbidden")
	}

	parent, err := s.resolver.FolderFromPath(ctx, path.Parent())
	if err != nil {
		return nil, err
	}
	if parent.Type != resource.FolderNormal {
		return nil, resource.ErrForbidden("cannot upload into a managed shared folder")
	}

	if force {
		existing, err := s.store.GetFileByNameAndParent(ctx, path.Name(), parent.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if err := s.deleteFileCascade(ctx, existing); err != nil {
				return nil, err
			}
		}
	}

	if err := s.ensureNameFree(ctx, path.Name(), parent.ID); err != nil {
		return nil, err
	}

	file, err := s.store.SaveFile(ctx, &resource.File{
		Name:     path.Name(),
		FolderID: parent.ID,
		OwnerID:  path.Owner().ID,
		Privacy:  privacy,
		Size:     declaredSize,
	})
	if err != nil {
		return nil, err
	}

	written, err := s.blobs.Save(ctx, file.ID, content)
	if err != nil {
		// Roll the metadata row back so no file exists without content.
		if delErr := s.store.DeleteFile(ctx, file.ID); delErr != nil {
			logger.Warn("Failed to roll back file %s after blob write error: %v", file.ID, delErr)
		}
		return nil, err
	}

	if written != declaredSize {
		logger.Debug("Declared size %d differs from written size %d for %s", declaredSize, written, path)
	}
	if written != file.Size {
		file.Size = written
		file, err = s.store.SaveFile(ctx, file)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Created file %s (size=%d privacy=%s)", path, written, privacy)
	return file, nil
}

// OpenFile returns the file at path together with a reader over its
// content. The caller must close the reader.
func (s *Service) OpenFile(ctx context.Context, path resource.UserPath) (*resource.File, io.ReadCloser, error) {
	file, err := s.resolver.FileFromPath(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, file.ID)
	if err != nil {
		return nil, nil, err
	}
	return file, rc, nil
}

// DeleteFile deletes the file at path, first removing every link across the
// system that points at it so no dangling reference survives.
func (s *Service) DeleteFile(ctx context.Context, path resource.UserPath) error {
	file, err := s.resolver.FileFromPath(ctx, path)
	if err != nil {
		return err
	}
	return s.deleteFileCascade(ctx, file)
}

// deleteFileCascade removes a file, its blob, all links pointing at it and
// all grants on it.
func (s *Service) deleteFileCascade(ctx context.Context, file *resource.File) error {
	links, err := s.store.ListLinksByTargetFile(ctx, file.ID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if err := s.removeLink(ctx, link, true); err != nil {
			return err
		}
	}

	// removeLink drops grants held through SHARING_USER folders; sweep any
	// remaining grant rows so none outlive the file.
	grants, err := s.store.ListGrantsByFile(ctx, file.ID)
	if err != nil {
		return err
	}
	for _, grant := range grants {
		if err := s.store.DeleteGrant(ctx, grant.FileID, grant.UserID); err != nil {
			return err
		}
	}

	if err := s.store.DeleteFile(ctx, file.ID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, file.ID); err != nil {
		return err
	}

	logger.Debug("Deleted file %s (%s)", file.Name, file.ID)
	return nil
}

// GetVerifiedFile returns the file only if the identity may access it:
// PUBLIC files need no identity; PROTECTED files admit the owner and users
// on the share list; PRIVATE files admit the owner only.
func (s *Service) GetVerifiedFile(ctx context.Context, fileID string, identity *resource.User) (*resource.File, error) {
	file, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, resource.ErrNotFound(fileID)
	}

	if err := VerifyFileAccess(file, identity); err != nil {
		return nil, err
	}
	return file, nil
}

// VerifyFileAccess checks whether identity may read the file. A nil
// identity stands for an unauthenticated caller.
func VerifyFileAccess(file *resource.File, identity *resource.User) error {
	if file.Privacy == resource.PrivacyPublic {
		return nil
	}
	if identity == nil {
		return resource.ErrForbidden("authentication required")
	}
	if identity.ID == file.OwnerID {
		return nil
	}
	if file.Privacy == resource.PrivacyProtected && file.IsSharedTo(identity.Username) {
		return nil
	}
	return resource.ErrForbidden("access to file " + file.Name + " denied")
}

// GetPublicFile returns the file by ID, insisting on PUBLIC privacy.
func (s *Service) GetPublicFile(ctx context.Context, fileID string) (*resource.File, error) {
	file, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, resource.ErrNotFound(fileID)
	}
	if file.Privacy != resource.PrivacyPublic {
		return nil, resource.ErrForbidden("file " + file.Name + " is not public")
	}
	return file, nil
}

// GetPublicFolder returns the folder by ID, insisting on PUBLIC privacy.
func (s *Service) GetPublicFolder(ctx context.Context, folderID string) (*resource.Folder, error) {
	folder, err := s.store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, resource.ErrNotFound(folderID)
	}
	if folder.Privacy != resource.PrivacyPublic {
		return nil, resource.ErrForbidden("folder " + folder.Name + " is not public")
	}
	return folder, nil
}

// CheckResourceType reports what kind of resource lives at path, probing
// file, link, then folder. Names are unique per parent, so at most one
// probe can succeed.
func (s *Service) CheckResourceType(ctx context.Context, path resource.UserPath) (resource.ResourceType, error) {
	if path.IsRoot() {
		return resource.TypeFolder, nil
	}

	parent, err := s.resolver.FolderFromPath(ctx, path.Parent())
	if err != nil {
		return "", err
	}

	file, err := s.store.GetFileByNameAndParent(ctx, path.Name(), parent.ID)
	if err != nil {
		return "", err
	}
	if file != nil {
		return resource.TypeFile, nil
	}

	link, err := s.store.GetLinkByNameAndParent(ctx, path.Name(), parent.ID)
	if err != nil {
		return "", err
	}
	if link != nil {
		return resource.TypeLink, nil
	}

	folder, err := s.store.GetFolderByNameAndParent(ctx, path.Name(), parent.ID)
	if err != nil {
		return "", err
	}
	if folder != nil {
		return resource.TypeFolder, nil
	}

	return "", resource.ErrNotFound(path.Name())
}

// CreateLinkToFile creates a link at path pointing at the given file. An
// importing owner holds at most one link per file, regardless of where that
// link lives.
func (s *Service) CreateLinkToFile(ctx context.Context, path resource.UserPath, file *resource.File) (*resource.Link, error) {
	if path.IsRoot() {
		return nil, resource.ErrInvalidPath(path.String())
	}

	existing, err := s.store.GetLinkByTargetFileAndOwner(ctx, file.ID, path.Owner().ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, resource.ErrAlreadyExists(file.Name)
	}

	parent, err := s.resolver.FolderFromPath(ctx, path.Parent())
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, path.Name(), parent.ID); err != nil {
		return nil, err
	}

	return s.store.SaveLink(ctx, &resource.Link{
		Name:         path.Name(),
		FolderID:     parent.ID,
		OwnerID:      path.Owner().ID,
		ResourceType: resource.TypeFile,
		TargetFileID: file.ID,
	})
}

// DeleteLink deletes the link at path. Inside a SHARING_USER folder this
// also revokes the owner's grant on the target file and removes the folder
// once its last link is gone.
func (s *Service) DeleteLink(ctx context.Context, path resource.UserPath) error {
	link, err := s.resolver.LinkFromPath(ctx, path)
	if err != nil {
		return err
	}
	return s.removeLink(ctx, link, true)
}

// removeLink deletes a link. When the parent is a SHARING_USER folder the
// link represents an import, so the corresponding grant is revoked and the
// target file's share list updated first. With cleanupParent=true an
// emptied SHARING_USER folder is deleted as well; callers already tearing
// the parent down pass false.
func (s *Service) removeLink(ctx context.Context, link *resource.Link, cleanupParent bool) error {
	parent, err := s.store.GetFolder(ctx, link.FolderID)
	if err != nil {
		return err
	}

	sharingParent := parent != nil && parent.Type == resource.FolderSharingUser
	if sharingParent && link.TargetFileID != "" {
		if err := s.revokeGrant(ctx, link.TargetFileID, link.OwnerID); err != nil {
			return err
		}
	}

	if err := s.store.DeleteLink(ctx, link.ID); err != nil {
		return err
	}

	if sharingParent && cleanupParent {
		remaining, err := s.store.ListLinks(ctx, parent.ID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := s.store.DeleteFolder(ctx, parent.ID); err != nil {
				return err
			}
			logger.Debug("Removed empty sharing folder %s", parent.Name)
		}
	}

	return nil
}

// revokeGrant removes a user's grant on a file and keeps the file's share
// list consistent with the remaining grant rows. Absent grants are ignored.
func (s *Service) revokeGrant(ctx context.Context, fileID, userID string) error {
	grant, err := s.store.GetGrant(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if grant == nil {
		return nil
	}

	if err := s.store.DeleteGrant(ctx, fileID, userID); err != nil {
		return err
	}

	file, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	grantee, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if file == nil || grantee == nil {
		return nil
	}

	kept := file.SharedTo[:0:0]
	for _, username := range file.SharedTo {
		if username != grantee.Username {
			kept = append(kept, username)
		}
	}
	file.SharedTo = kept
	_, err = s.store.SaveFile(ctx, file)
	return err
}
