// Package service implements the resource hierarchy and sharing engine:
// path resolution over a per-user tree, hierarchical CRUD with naming and
// emptiness invariants, the privacy state machine with reference cleanup,
// and zip archive generation behind a distributed lock.
//
// All operations are scoped by the owner embedded in the resolved path.
// The only sanctioned cross-owner interaction is the link/grant sharing
// mechanism; no operation mutates another owner's rows directly.
package service

import (
	"github.com/marmos91/vaultfs/pkg/blob"
	"github.com/marmos91/vaultfs/pkg/resource"
)

// Service performs hierarchical CRUD and sharing operations over the
// resource tree. It owns the file blob lifecycle: metadata and content are
// written and deleted together.
//
// Thread Safety:
// Service methods are safe for concurrent use as long as the underlying
// stores are. Ordering between concurrent mutations of the same resource is
// delegated to the store's isolation guarantees.
type Service struct {
	store    resource.Store
	blobs    blob.Store
	resolver *Resolver
}

// NewService creates a service over the given stores.
func NewService(store resource.Store, blobs blob.Store) *Service {
	return &Service{
		store:    store,
		blobs:    blobs,
		resolver: NewResolver(store),
	}
}

// Resolver exposes the path resolver so callers can translate between
// entities and paths without going through a full operation.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}
