// Package blob defines the interface for file content storage.
//
// Resource metadata (names, hierarchy, privacy) lives in the resource store;
// the bytes of each file live in a blob store keyed by the file's ID. The two
// are wired together by the service layer, which records the metadata row
// first and rolls it back if the blob write fails.
package blob

import (
	"context"
	"io"
)

// Store provides access to file content keyed by file ID.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same ID are last-write-wins.
type Store interface {
	// Save stores the content read from r under the given file ID,
	// replacing any previous content. It returns the number of bytes
	// written.
	Save(ctx context.Context, id string, r io.Reader) (int64, error)

	// Open returns a reader for the content stored under id. The caller
	// must close the returned reader. Returns an error with code NotFound
	// when no content exists for id.
	Open(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete removes the content stored under id. Deleting content that
	// does not exist is not an error.
	Delete(ctx context.Context, id string) error

	// Exists reports whether content is stored under id.
	Exists(ctx context.Context, id string) (bool, error)
}
