// Package s3 provides a blob store backed by Amazon S3 or S3-compatible storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/vaultfs/pkg/resource"
)

// S3BlobStore implements blob.Store using Amazon S3 or S3-compatible storage.
//
// Key Design:
//   - The object key is the file ID, prefixed with an optional key prefix.
//   - Format: "<prefix>/<file-id>" (no leading "/").
//
// S3 Characteristics:
//   - High durability and availability
//   - Eventually consistent (depending on S3 configuration)
//   - Supports custom endpoints for S3-compatible storage (MinIO, Cubbit DS3)
//
// Thread Safety:
// Safe for concurrent use by multiple goroutines. Concurrent writes to the
// same file ID are last-write-wins under S3's consistency model.
type S3BlobStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3BlobStoreConfig contains configuration for the S3 blob store.
type S3BlobStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix applied to all object keys
	KeyPrefix string
}

// NewS3BlobStore creates a new S3-based blob store.
func NewS3BlobStore(ctx context.Context, cfg S3BlobStoreConfig) (*S3BlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 blob store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 blob store: bucket is required")
	}

	return &S3BlobStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// objectKey returns the S3 object key for a file ID.
func (s *S3BlobStore) objectKey(id string) string {
	if s.keyPrefix == "" {
		return id
	}
	return s.keyPrefix + "/" + id
}

func (s *S3BlobStore) Save(ctx context.Context, id string, r io.Reader) (int64, error) {
	// PutObject needs a seekable body for signing, so buffer the content.
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read blob content: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to put object %s: %w", id, err)
	}

	return int64(len(data)), nil
}

func (s *S3BlobStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, resource.ErrNotFound(id)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", id, err)
	}

	return out.Body, nil
}

func (s *S3BlobStore) Delete(ctx context.Context, id string) error {
	// S3 DeleteObject is idempotent; deleting a missing key succeeds.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", id, err)
	}
	return nil
}

func (s *S3BlobStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s: %w", id, err)
	}
	return true, nil
}
