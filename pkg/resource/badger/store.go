// Package badger provides a persistent resource store backed by BadgerDB.
//
// This implementation is suitable for production deployments where the
// resource tree must survive restarts. All multi-key mutations (an entity
// plus its index entries) run inside a single Badger transaction, so the
// uniqueness and consistency guarantees the engine relies on hold across
// crashes. See keys.go for the key namespace schema.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/vaultfs/pkg/resource"
)

// BadgerStore implements resource.Store using BadgerDB for persistence.
type BadgerStore struct {
	db *badger.DB
}

// BadgerStoreConfig contains configuration for creating a Badger resource store.
type BadgerStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without any files on disk. Used in tests.
	InMemory bool `mapstructure:"in_memory"`
}

// NewBadgerStore opens (or creates) a Badger-backed resource store.
func NewBadgerStore(ctx context.Context, config BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.DBPath)
	opts = opts.WithLoggingLevel(badger.WARNING)
	if config.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database so other components (such as the lock
// store) can share it instead of opening a second Badger instance on the
// same path.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

// getValue reads a key inside a transaction, mapping "key not found" to a
// plain miss so callers can treat existence as a query result.
func getValue(txn *badger.Txn, key []byte) ([]byte, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// scanPrefix returns the values referenced by every index entry under prefix.
func scanPrefix(txn *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	var out [][]byte
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		value, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// Users

func (s *BadgerStore) SaveUser(_ context.Context, user *resource.User) (*resource.User, error) {
	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		// Drop stale identity indexes on username/email change.
		if raw, found, err := getValue(txn, userKey(stored.ID)); err != nil {
			return err
		} else if found {
			previous, err := decodeUser(raw)
			if err != nil {
				return err
			}
			if previous.Username != stored.Username {
				if err := txn.Delete(usernameKey(previous.Username)); err != nil {
					return err
				}
			}
			if previous.Email != stored.Email && previous.Email != "" {
				if err := txn.Delete(emailKey(previous.Email)); err != nil {
					return err
				}
			}
		}

		encoded, err := encodeUser(&stored)
		if err != nil {
			return err
		}
		if err := txn.Set(userKey(stored.ID), encoded); err != nil {
			return err
		}
		if err := txn.Set(usernameKey(stored.Username), []byte(stored.ID)); err != nil {
			return err
		}
		if stored.Email != "" {
			return txn.Set(emailKey(stored.Email), []byte(stored.ID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	out := stored
	return &out, nil
}

func (s *BadgerStore) GetUser(_ context.Context, id string) (*resource.User, error) {
	return s.getUserByKey(userKey(id))
}

func (s *BadgerStore) GetUserByUsername(ctx context.Context, username string) (*resource.User, error) {
	return s.getUserByIndex(ctx, usernameKey(username))
}

func (s *BadgerStore) GetUserByEmail(ctx context.Context, email string) (*resource.User, error) {
	return s.getUserByIndex(ctx, emailKey(email))
}

func (s *BadgerStore) getUserByKey(key []byte) (*resource.User, error) {
	var user *resource.User
	err := s.db.View(func(txn *badger.Txn) error {
		raw, found, err := getValue(txn, key)
		if err != nil || !found {
			return err
		}
		user, err = decodeUser(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *BadgerStore) getUserByIndex(_ context.Context, indexKey []byte) (*resource.User, error) {
	var user *resource.User
	err := s.db.View(func(txn *badger.Txn) error {
		id, found, err := getValue(txn, indexKey)
		if err != nil || !found {
			return err
		}
		raw, found, err := getValue(txn, userKey(string(id)))
		if err != nil || !found {
			return err
		}
		user, err = decodeUser(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Folders

func (s *BadgerStore) SaveFolder(_ context.Context, folder *resource.Folder) (*resource.Folder, error) {
	stored := *folder
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		// Drop the stale child-index entry on rename or move.
		if raw, found, err := getValue(txn, folderKey(stored.ID)); err != nil {
			return err
		} else if found {
			previous, err := decodeFolder(raw)
			if err != nil {
				return err
			}
			if previous.Name != stored.Name || previous.ParentID != stored.ParentID {
				if err := txn.Delete(folderChildKey(previous.ParentID, previous.Name)); err != nil {
					return err
				}
			}
		}

		encoded, err := encodeFolder(&stored)
		if err != nil {
			return err
		}
		if err := txn.Set(folderKey(stored.ID), encoded); err != nil {
			return err
		}
		return txn.Set(folderChildKey(stored.ParentID, stored.Name), []byte(stored.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save folder: %w", err)
	}

	out := stored
	return &out, nil
}

func (s *BadgerStore) GetFolder(_ context.Context, id string) (*resource.Folder, error) {
	var folder *resource.Folder
	err := s.db.View(func(txn *badger.Txn) error {
		raw, found, err := getValue(txn, folderKey(id))
		if err != nil || !found {
			return err
		}
		folder, err = decodeFolder(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return folder, nil
}

func (s *BadgerStore) GetFolderByNameAndParent(_ context.Context, name, parentID string) (*resource.Folder, error) {
	var folder *resource.Folder
	err := s.db.View(func(txn *badger.Txn) error {
		id, found, err := getValue(txn, folderChildKey(parentID, name))
		if err != nil || !found {
			return err
		}
		raw, found, err := getValue(txn, folderKey(string(id)))
		if err != nil || !found {
			return err
		}
		folder, err = decodeFolder(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get folder by name: %w", err)
	}
	return folder, nil
}

func (s *BadgerStore) ListSubfolders(_ context.Context, parentID string) ([]*resource.Folder, error) {
	if parentID == "" {
		return nil, nil
	}

	var out []*resource.Folder
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := scanPrefix(txn, folderChildScanPrefix(parentID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			raw, found, err := getValue(txn, folderKey(string(id)))
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			folder, err := decodeFolder(raw)
			if err != nil {
				return err
			}
			out = append(out, folder)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list subfolders: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) DeleteFolder(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		raw, found, err := getValue(txn, folderKey(id))
		if err != nil || !found {
			return err
		}
		folder, err := decodeFolder(raw)
		if err != nil {
			return err
		}
		if err := txn.Delete(folderChildKey(folder.ParentID, folder.Name)); err != nil {
			return err
		}
		return txn.Delete(folderKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return nil
}

// Files

func (s *BadgerStore) SaveFile(_ context.Context, file *resource.File) (*resource.File, error) {
	stored := *file
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.SharedTo = append([]string(nil), file.SharedTo...)

	err := s.db.Update(func(txn *badger.Txn) error {
		if raw, found, err := getValue(txn, fileKey(stored.ID)); err != nil {
			return err
		} else if found {
			previous, err := decodeFile(raw)
			if err != nil {
				return err
			}
			if previous.Name != stored.Name || previous.FolderID != stored.FolderID {
				if err := txn.Delete(fileChildKey(previous.FolderID, previous.Name)); err != nil {
					return err
				}
			}
		}

		encoded, err := encodeFile(&stored)
		if err != nil {
			return err
		}
		if err := txn.Set(fileKey(stored.ID), encoded); err != nil {
			return err
		}
		return txn.Set(fileChildKey(stored.FolderID, stored.Name), []byte(stored.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	out := stored
	out.SharedTo = append([]string(nil), stored.SharedTo...)
	return &out, nil
}

func (s *BadgerStore) GetFile(_ context.Context, id string) (*resource.File, error) {
	var file *resource.File
	err := s.db.View(func(txn *badger.Txn) error {
		raw, found, err := getValue(txn, fileKey(id))
		if err != nil || !found {
			return err
		}
		file, err = decodeFile(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

func (s *BadgerStore) GetFileByNameAndParent(_ context.Context, name, folderID string) (*resource.File, error) {
	var file *resource.File
	err := s.db.View(func(txn *badger.Txn) error {
		id, found, err := getValue(txn, fileChildKey(folderID, name))
		if err != nil || !found {
			return err
		}
		raw, found, err := getValue(txn, fileKey(string(id)))
		if err != nil || !found {
			return err
		}
		file, err = decodeFile(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file by name: %w", err)
	}
	return file, nil
}

func (s *BadgerStore) ListFiles(_ context.Context, folderID string) ([]*resource.File, error) {
	var out []*resource.File
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := scanPrefix(txn, fileChildScanPrefix(folderID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			raw, found, err := getValue(txn, fileKey(string(id)))
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			file, err := decodeFile(raw)
			if err != nil {
				return err
			}
			out = append(out, file)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) DeleteFile(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		raw, found, err := getValue(txn, fileKey(id))
		if err != nil || !found {
			return err
		}
		file, err := decodeFile(raw)
		if err != nil {
			return err
		}
		if err := txn.Delete(fileChildKey(file.FolderID, file.Name)); err != nil {
			return err
		}
		return txn.Delete(fileKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Links

func (s *BadgerStore) SaveLink(_ context.Context, link *resource.Link) (*resource.Link, error) {
	stored := *link
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if raw, found, err := getValue(txn, linkKey(stored.ID)); err != nil {
			return err
		} else if found {
			previous, err := decodeLink(raw)
			if err != nil {
				return err
			}
			if previous.Name != stored.Name || previous.FolderID != stored.FolderID {
				if err := txn.Delete(linkChildKey(previous.FolderID, previous.Name)); err != nil {
					return err
				}
			}
		}

		encoded, err := encodeLink(&stored)
		if err != nil {
			return err
		}
		if err := txn.Set(linkKey(stored.ID), encoded); err != nil {
			return err
		}
		if err := txn.Set(linkChildKey(stored.FolderID, stored.Name), []byte(stored.ID)); err != nil {
			return err
		}
		if stored.TargetFileID != "" {
			if err := txn.Set(linkTargetKey(stored.TargetFileID, stored.ID), []byte(stored.ID)); err != nil {
				return err
			}
			return txn.Set(linkOwnerKey(stored.TargetFileID, stored.OwnerID), []byte(stored.ID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save link: %w", err)
	}

	out := stored
	return &out, nil
}

func (s *BadgerStore) GetLink(_ context.Context, id string) (*resource.Link, error) {
	var link *resource.Link
	err := s.db.View(func(txn *badger.Txn) error {
		raw, found, err := getValue(txn, linkKey(id))
		if err != nil || !found {
			return err
		}
		link, err = decodeLink(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

func (s *BadgerStore) GetLinkByNameAndParent(_ context.Context, name, folderID string) (*resource.Link, error) {
	var link *resource.Link
	err := s.db.View(func(txn *badger.Txn) error {
		id, found, err := getValue(txn, linkChildKey(folderID, name))
		if err != nil || !found {
			return err
		}
		raw, found, err := getValue(txn, linkKey(string(id)))
		if err != nil || !found {
			return err
		}
		link, err = decodeLink(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get link by name: %w", err)
	}
	return link, nil
}

func (s *BadgerStore) ListLinks(_ context.Context, folderID string) ([]*resource.Link, error) {
	return s.listLinksByPrefix(linkChildScanPrefix(folderID))
}

func (s *BadgerStore) ListLinksByTargetFile(_ context.Context, fileID string) ([]*resource.Link, error) {
	return s.listLinksByPrefix(linkTargetScanPrefix(fileID))
}

func (s *BadgerStore) listLinksByPrefix(prefix []byte) ([]*resource.Link, error) {
	var out []*resource.Link
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := scanPrefix(txn, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			raw, found, err := getValue(txn, linkKey(string(id)))
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			link, err := decodeLink(raw)
			if err != nil {
				return err
			}
			out = append(out, link)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) GetLinkByTargetFileAndOwner(_ context.Context, fileID, ownerID string) (*resource.Link, error) {
	var link *resource.Link
	err := s.db.View(func(txn *badger.Txn) error {
		id, found, err := getValue(txn, linkOwnerKey(fileID, ownerID))
		if err != nil || !found {
			return err
		}
		raw, found, err := getValue(txn, linkKey(string(id)))
		if err != nil || !found {
			return err
		}
		link, err = decodeLink(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get link by target and owner: %w", err)
	}
	return link, nil
}

func (s *BadgerStore) DeleteLink(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		raw, found, err := getValue(txn, linkKey(id))
		if err != nil || !found {
			return err
		}
		link, err := decodeLink(raw)
		if err != nil {
			return err
		}
		if err := txn.Delete(linkChildKey(link.FolderID, link.Name)); err != nil {
			return err
		}
		if link.TargetFileID != "" {
			if err := txn.Delete(linkTargetKey(link.TargetFileID, link.ID)); err != nil {
				return err
			}
			if err := txn.Delete(linkOwnerKey(link.TargetFileID, link.OwnerID)); err != nil {
				return err
			}
		}
		return txn.Delete(linkKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

// Grants

func (s *BadgerStore) SaveGrant(_ context.Context, grant *resource.Grant) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		encoded, err := encodeGrant(grant)
		if err != nil {
			return err
		}
		return txn.Set(grantKey(grant.FileID, grant.UserID), encoded)
	})
	if err != nil {
		return fmt.Errorf("failed to save grant: %w", err)
	}
	return nil
}

func (s *BadgerStore) GetGrant(_ context.Context, fileID, userID string) (*resource.Grant, error) {
	var grant *resource.Grant
	err := s.db.View(func(txn *badger.Txn) error {
		raw, found, err := getValue(txn, grantKey(fileID, userID))
		if err != nil || !found {
			return err
		}
		grant, err = decodeGrant(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	return grant, nil
}

func (s *BadgerStore) ListGrantsByFile(_ context.Context, fileID string) ([]*resource.Grant, error) {
	var out []*resource.Grant
	err := s.db.View(func(txn *badger.Txn) error {
		raws, err := scanPrefix(txn, grantScanPrefix(fileID))
		if err != nil {
			return err
		}
		for _, raw := range raws {
			grant, err := decodeGrant(raw)
			if err != nil {
				return err
			}
			out = append(out, grant)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) DeleteGrant(_ context.Context, fileID, userID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(grantKey(fileID, userID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}
