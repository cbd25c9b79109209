// Package memory provides an in-memory implementation of the resource store.
//
// This implementation is suitable for tests and ephemeral deployments where
// persistence is not required. All state lives in maps guarded by a single
// read-write mutex; coarse-grained locking is simple and correct, and the
// store never hands out aliases to its internal entities (every read and
// write works on copies).
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/marmos91/vaultfs/pkg/resource"
)

// grantKey is the composite key of a grant row.
type grantKey struct {
	fileID string
	userID string
}

// MemoryStore implements resource.Store using in-memory maps.
type MemoryStore struct {
	// mu protects all fields. Queries take read locks, mutations write locks.
	mu sync.RWMutex

	users   map[string]*resource.User
	folders map[string]*resource.Folder
	files   map[string]*resource.File
	links   map[string]*resource.Link
	grants  map[grantKey]*resource.Grant
}

// NewMemoryStore creates an empty in-memory resource store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*resource.User),
		folders: make(map[string]*resource.Folder),
		files:   make(map[string]*resource.File),
		links:   make(map[string]*resource.Link),
		grants:  make(map[grantKey]*resource.Grant),
	}
}

// Close implements resource.Store. The memory store has nothing to release.
func (s *MemoryStore) Close() error {
	return nil
}

// Users

func (s *MemoryStore) SaveUser(_ context.Context, user *resource.User) (*resource.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*resource.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	out := *user
	return &out, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*resource.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			out := *user
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*resource.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, nil
}

// Folders

func (s *MemoryStore) SaveFolder(_ context.Context, folder *resource.Folder) (*resource.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *folder
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.folders[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *MemoryStore) GetFolder(_ context.Context, id string) (*resource.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folders[id]
	if !ok {
		return nil, nil
	}
	out := *folder
	return &out, nil
}

func (s *MemoryStore) GetFolderByNameAndParent(_ context.Context, name, parentID string) (*resource.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, folder := range s.folders {
		if folder.Name == name && folder.ParentID == parentID {
			out := *folder
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListSubfolders(_ context.Context, parentID string) ([]*resource.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Root folders carry an empty ParentID; listing them as siblings of each
	// other would cross owner boundaries.
	if parentID == "" {
		return nil, nil
	}

	var out []*resource.Folder
	for _, folder := range s.folders {
		if folder.ParentID == parentID {
			copied := *folder
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteFolder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.folders, id)
	return nil
}

// Files

func (s *MemoryStore) SaveFile(_ context.Context, file *resource.File) (*resource.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *file
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.SharedTo = append([]string(nil), file.SharedTo...)
	s.files[stored.ID] = &stored

	out := stored
	out.SharedTo = append([]string(nil), stored.SharedTo...)
	return &out, nil
}

func (s *MemoryStore) GetFile(_ context.Context, id string) (*resource.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[id]
	if !ok {
		return nil, nil
	}
	return copyFile(file), nil
}

func (s *MemoryStore) GetFileByNameAndParent(_ context.Context, name, folderID string) (*resource.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, file := range s.files {
		if file.Name == name && file.FolderID == folderID {
			return copyFile(file), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListFiles(_ context.Context, folderID string) ([]*resource.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.File
	for _, file := range s.files {
		if file.FolderID == folderID {
			out = append(out, copyFile(file))
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteFile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, id)
	return nil
}

// Links

func (s *MemoryStore) SaveLink(_ context.Context, link *resource.Link) (*resource.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *link
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.links[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *MemoryStore) GetLink(_ context.Context, id string) (*resource.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[id]
	if !ok {
		return nil, nil
	}
	out := *link
	return &out, nil
}

func (s *MemoryStore) GetLinkByNameAndParent(_ context.Context, name, folderID string) (*resource.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, link := range s.links {
		if link.Name == name && link.FolderID == folderID {
			out := *link
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListLinks(_ context.Context, folderID string) ([]*resource.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Link
	for _, link := range s.links {
		if link.FolderID == folderID {
			copied := *link
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListLinksByTargetFile(_ context.Context, fileID string) ([]*resource.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Link
	for _, link := range s.links {
		if link.TargetFileID == fileID {
			copied := *link
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetLinkByTargetFileAndOwner(_ context.Context, fileID, ownerID string) (*resource.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, link := range s.links {
		if link.TargetFileID == fileID && link.OwnerID == ownerID {
			out := *link
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) DeleteLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.links, id)
	return nil
}

// Grants

func (s *MemoryStore) SaveGrant(_ context.Context, grant *resource.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *grant
	s.grants[grantKey{fileID: grant.FileID, userID: grant.UserID}] = &stored
	return nil
}

func (s *MemoryStore) GetGrant(_ context.Context, fileID, userID string) (*resource.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.grants[grantKey{fileID: fileID, userID: userID}]
	if !ok {
		return nil, nil
	}
	out := *grant
	return &out, nil
}

func (s *MemoryStore) ListGrantsByFile(_ context.Context, fileID string) ([]*resource.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Grant
	for key, grant := range s.grants {
		if key.fileID == fileID {
			copied := *grant
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteGrant(_ context.Context, fileID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grants, grantKey{fileID: fileID, userID: userID})
	return nil
}

func copyFile(file *resource.File) *resource.File {
	out := *file
	out.SharedTo = append([]string(nil), file.SharedTo...)
	return &out
}
