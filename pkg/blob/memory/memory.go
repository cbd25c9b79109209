// Package memory provides an in-memory blob store.
//
// Content is held in process memory and lost on restart. Intended for tests
// and local development.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/marmos91/vaultfs/pkg/resource"
)

// MemoryBlobStore implements blob.Store using an in-memory map.
//
// Thread Safety:
// All operations are guarded by a single RWMutex. Readers receive a snapshot
// of the content at open time, so a concurrent overwrite does not corrupt an
// in-flight read.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs: make(map[string][]byte),
	}
}

func (s *MemoryBlobStore) Save(ctx context.Context, id string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()

	return int64(len(data)), nil
}

func (s *MemoryBlobStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, resource.ErrNotFound(id)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryBlobStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()

	return nil
}

func (s *MemoryBlobStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.blobs[id]
	s.mu.RUnlock()

	return ok, nil
}
