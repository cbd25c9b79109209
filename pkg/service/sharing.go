package service

import (
	"context"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/resource"
)

// SharedFolderName is the fixed folder created for every account that holds
// imported resources. It cannot be deleted, and imports from a given owner
// live under a managed subfolder named after that owner.
const SharedFolderName = "Shared"

// UpdateFile applies a privacy transition to the file at path and
// reconciles grants and links against it:
//
//   - to PRIVATE: every grantee's link and grant is revoked; the share list
//     ends up empty.
//   - PUBLIC to PROTECTED: the new share list is the union of the current
//     one and the resolvable requested usernames; grantees absent from it
//     are revoked. PUBLIC access tracked no grant set, so leaving it must
//     reconcile against whoever actually imported the file.
//   - all other transitions: additive only, no revocation.
//
// Requested usernames that do not resolve to an account are silently
// dropped.
func (s *Service) UpdateFile(ctx context.Context, path resource.UserPath, newPrivacy resource.Privacy, requestedUsernames []string) (*resource.File, error) {
	file, err := s.resolver.FileFromPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.updateFilePrivacy(ctx, file, newPrivacy, requestedUsernames)
}

func (s *Service) updateFilePrivacy(ctx context.Context, file *resource.File, newPrivacy resource.Privacy, requestedUsernames []string) (*resource.File, error) {
	var newList []string

	switch {
	case newPrivacy == resource.PrivacyPrivate:
		if err := s.revokeAllGrants(ctx, file); err != nil {
			return nil, err
		}

	case file.Privacy == resource.PrivacyPublic && newPrivacy == resource.PrivacyProtected:
		resolved, err := s.resolveUsernames(ctx, requestedUsernames)
		if err != nil {
			return nil, err
		}
		newList = resource.UnionUsernames(file.SharedTo, resolved)
		if err := s.revokeGrantsOutside(ctx, file, newList); err != nil {
			return nil, err
		}

	default:
		resolved, err := s.resolveUsernames(ctx, requestedUsernames)
		if err != nil {
			return nil, err
		}
		newList = resource.UnionUsernames(file.SharedTo, resolved)
	}

	// Revocation rewrites the file's share list row by row, so re-read it
	// before persisting the transition.
	current, err := s.store.GetFile(ctx, file.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, resource.ErrNotFound(file.Name)
	}

	current.Privacy = newPrivacy
	current.SharedTo = newList
	updated, err := s.store.SaveFile(ctx, current)
	if err != nil {
		return nil, err
	}

	logger.Debug("File %s privacy set to %s (shared_to=%d)", updated.Name, newPrivacy, len(newList))
	return updated, nil
}

// revokeAllGrants removes every grant on the file together with each
// grantee's link to it.
func (s *Service) revokeAllGrants(ctx context.Context, file *resource.File) error {
	grants, err := s.store.ListGrantsByFile(ctx, file.ID)
	if err != nil {
		return err
	}
	for _, grant := range grants {
		if err := s.revokeImport(ctx, file.ID, grant.UserID); err != nil {
			return err
		}
	}
	return nil
}

// revokeGrantsOutside revokes every grantee whose username is not in keep.
func (s *Service) revokeGrantsOutside(ctx context.Context, file *resource.File, keep []string) error {
	keepSet := make(map[string]struct{}, len(keep))
	for _, username := range keep {
		keepSet[username] = struct{}{}
	}

	grants, err := s.store.ListGrantsByFile(ctx, file.ID)
	if err != nil {
		return err
	}
	for _, grant := range grants {
		grantee, err := s.store.GetUser(ctx, grant.UserID)
		if err != nil {
			return err
		}
		if grantee != nil {
			if _, ok := keepSet[grantee.Username]; ok {
				continue
			}
		}
		if err := s.revokeImport(ctx, file.ID, grant.UserID); err != nil {
			return err
		}
	}
	return nil
}

// revokeImport undoes one user's import of a file: the link goes first
// (removing an emptied sharing folder with it), then any grant left behind.
func (s *Service) revokeImport(ctx context.Context, fileID, userID string) error {
	link, err := s.store.GetLinkByTargetFileAndOwner(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if link != nil {
		// removeLink revokes the grant when the link sits in a
		// SHARING_USER folder.
		if err := s.removeLink(ctx, link, true); err != nil {
			return err
		}
	}
	return s.revokeGrant(ctx, fileID, userID)
}

// resolveUsernames maps usernames to existing accounts, dropping the ones
// that resolve to nothing.
func (s *Service) resolveUsernames(ctx context.Context, usernames []string) ([]string, error) {
	var resolved []string
	for _, username := range usernames {
		user, err := s.store.GetUserByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if user == nil {
			logger.Debug("Dropping unknown username %q from share request", username)
			continue
		}
		resolved = append(resolved, user.Username)
	}
	return resolved, nil
}

// PotentialFileImport records that a non-owner has read a shareable file:
// it grants the importer access if not already granted, lazily creates the
// importer's Shared/<owner-username> folder, and links the file there. The
// whole flow is idempotent; an already-present link is a no-op.
func (s *Service) PotentialFileImport(ctx context.Context, importer *resource.User, file *resource.File) error {
	if importer == nil || importer.ID == file.OwnerID {
		return nil
	}
	if file.Privacy == resource.PrivacyPrivate {
		return nil
	}

	grant, err := s.store.GetGrant(ctx, file.ID, importer.ID)
	if err != nil {
		return err
	}
	if grant == nil {
		// The share list is not touched here: a PUBLIC file tracks no
		// allow-list, and a PROTECTED file only admits readers already on
		// it. Reconciliation against the grant rows happens when the file
		// leaves PUBLIC.
		if err := s.store.SaveGrant(ctx, &resource.Grant{FileID: file.ID, UserID: importer.ID}); err != nil {
			return err
		}
	}

	owner, err := s.store.GetUser(ctx, file.OwnerID)
	if err != nil {
		return err
	}
	if owner == nil {
		return resource.ErrIntegrity("file " + file.ID + " has no known owner")
	}

	sharingFolder, err := s.ensureSharingFolder(ctx, importer, owner)
	if err != nil {
		return err
	}

	linkPath := resource.RootOf(importer).Join(SharedFolderName).Join(owner.Username).Join(file.Name)
	if _, err := s.CreateLinkToFile(ctx, linkPath, file); err != nil {
		if resource.IsAlreadyExists(err) {
			return nil
		}
		return err
	}

	logger.Debug("User %s imported file %s into %s", importer.Username, file.Name, sharingFolder.Name)
	return nil
}

// ensureSharingFolder returns the importer's Shared/<owner-username>
// folder, creating it when absent.
func (s *Service) ensureSharingFolder(ctx context.Context, importer, owner *resource.User) (*resource.Folder, error) {
	root, err := s.resolver.rootFolder(ctx, importer)
	if err != nil {
		return nil, err
	}

	shared, err := s.store.GetFolderByNameAndParent(ctx, SharedFolderName, root.ID)
	if err != nil {
		return nil, err
	}
	if shared == nil {
		return nil, resource.ErrIntegrity("Shared folder missing for user " + importer.Username)
	}

	sharing, err := s.store.GetFolderByNameAndParent(ctx, owner.Username, shared.ID)
	if err != nil {
		return nil, err
	}
	if sharing != nil {
		return sharing, nil
	}

	return s.store.SaveFolder(ctx, &resource.Folder{
		Name:     owner.Username,
		ParentID: shared.ID,
		OwnerID:  importer.ID,
		Privacy:  resource.PrivacyPrivate,
		Type:     resource.FolderSharingUser,
	})
}

// UpdateFolder sets a folder's privacy and propagates it to the files it
// contains, recursing into NORMAL subfolders when recursive is true. The
// root folder's privacy cannot be changed; managed Shared and sharing
// folders are left untouched.
func (s *Service) UpdateFolder(ctx context.Context, path resource.UserPath, privacy resource.Privacy, recursive bool) (*resource.Folder, error) {
	folder, err := s.resolver.FolderFromPath(ctx, path)
	if err != nil {
		return nil, err
	}

	if folder.IsRoot() {
		return nil, resource.ErrForbidden("root folder privacy cannot be changed")
	}
	if folder.Type != resource.FolderNormal {
		return folder, nil
	}

	if err := s.updateFolderTree(ctx, folder, privacy, recursive); err != nil {
		return nil, err
	}

	return s.store.GetFolder(ctx, folder.ID)
}

func (s *Service) updateFolderTree(ctx context.Context, folder *resource.Folder, privacy resource.Privacy, recursive bool) error {
	folder.Privacy = privacy
	if _, err := s.store.SaveFolder(ctx, folder); err != nil {
		return err
	}

	files, err := s.store.ListFiles(ctx, folder.ID)
	if err != nil {
		return err
	}
	for _, file := range files {
		if _, err := s.updateFilePrivacy(ctx, file, privacy, nil); err != nil {
			return err
		}
	}

	if !recursive {
		return nil
	}

	subfolders, err := s.store.ListSubfolders(ctx, folder.ID)
	if err != nil {
		return err
	}
	for _, sub := range subfolders {
		if sub.Type != resource.FolderNormal {
			continue
		}
		if err := s.updateFolderTree(ctx, sub, privacy, recursive); err != nil {
			return err
		}
	}
	return nil
}
