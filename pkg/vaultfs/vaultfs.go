// Package vaultfs is the top-level entry point tying the stores, services
// and background worker together. Callers supply an already-authenticated
// identity with each operation; no authentication happens here.
package vaultfs

import (
	"context"
	"io"

	"github.com/marmos91/vaultfs/pkg/blob"
	"github.com/marmos91/vaultfs/pkg/kv"
	"github.com/marmos91/vaultfs/pkg/queue"
	"github.com/marmos91/vaultfs/pkg/resource"
	"github.com/marmos91/vaultfs/pkg/service"
)

// defaultQueueCapacity bounds how many background jobs can wait for the
// worker before enqueueing fails, unless the caller picks a capacity.
const defaultQueueCapacity = 64

// VaultFS bundles the account, resource, sharing and archive services over
// a single set of stores.
type VaultFS struct {
	store    resource.Store
	blobs    blob.Store
	locks    kv.Store
	service  *service.Service
	accounts *service.Accounts
	archiver *service.Archiver
	worker   *queue.Worker
	jobs     *queue.MemoryQueue
}

// New wires a VaultFS instance over the given stores. queueCapacity bounds
// the background job queue; zero or negative selects the default. The
// worker is created but not started; call Start before enqueueing archives.
func New(store resource.Store, blobs blob.Store, locks kv.Store, queueCapacity int) *VaultFS {
	if queueCapacity <= 0 {
		queueCapacity = defaultQueueCapacity
	}
	svc := service.NewService(store, blobs)
	jobs := queue.NewMemoryQueue(queueCapacity)
	archiver := service.NewArchiver(svc, locks, jobs)

	worker := queue.NewWorker(jobs)
	worker.Register(service.JobCreateArchive, archiver.HandleArchiveJob)

	return &VaultFS{
		store:    store,
		blobs:    blobs,
		locks:    locks,
		service:  svc,
		accounts: service.NewAccounts(store),
		archiver: archiver,
		worker:   worker,
		jobs:     jobs,
	}
}

// Start launches the background job worker.
func (v *VaultFS) Start(ctx context.Context) {
	v.worker.Start(ctx)
}

// Stop drains the job worker and closes the stores.
func (v *VaultFS) Stop(ctx context.Context) error {
	if err := v.worker.Stop(ctx); err != nil {
		return err
	}
	if err := v.locks.Close(); err != nil {
		return err
	}
	return v.store.Close()
}

// Service exposes the resource service for direct use.
func (v *VaultFS) Service() *service.Service {
	return v.service
}

// Accounts exposes the account service.
func (v *VaultFS) Accounts() *service.Accounts {
	return v.accounts
}

// Archiver exposes the archive service.
func (v *VaultFS) Archiver() *service.Archiver {
	return v.archiver
}

// Register creates a new account and provisions its namespace.
func (v *VaultFS) Register(ctx context.Context, username, email, password string) (*resource.User, error) {
	return v.accounts.Register(ctx, username, email, password)
}

// CreateFolder creates a normal folder at path.
func (v *VaultFS) CreateFolder(ctx context.Context, path resource.UserPath, privacy resource.Privacy) (*resource.Folder, error) {
	return v.service.CreateFolder(ctx, path, privacy, resource.FolderNormal)
}

// CreateFolderWithParents creates a folder, creating missing intermediate
// folders as PRIVATE.
func (v *VaultFS) CreateFolderWithParents(ctx context.Context, path resource.UserPath, privacy resource.Privacy) (*resource.Folder, error) {
	return v.service.CreateFolderWithParents(ctx, path, privacy)
}

// GetFolderContents lists the direct children of the folder at path.
func (v *VaultFS) GetFolderContents(ctx context.Context, path resource.UserPath) (*service.FolderContents, error) {
	return v.service.GetFolderContents(ctx, path)
}

// UpdateFolder sets a folder's privacy, propagating to contained files and
// optionally into subfolders.
func (v *VaultFS) UpdateFolder(ctx context.Context, path resource.UserPath, privacy resource.Privacy, recursive bool) (*resource.Folder, error) {
	return v.service.UpdateFolder(ctx, path, privacy, recursive)
}

// DeleteFolder deletes the folder at path.
func (v *VaultFS) DeleteFolder(ctx context.Context, path resource.UserPath, recursive bool) error {
	return v.service.DeleteFolder(ctx, path, recursive)
}

// UploadFile stores content at path in the owner's namespace.
func (v *VaultFS) UploadFile(ctx context.Context, path resource.UserPath, content io.Reader, size int64, force bool, privacy resource.Privacy) (*resource.File, error) {
	return v.service.CreateFile(ctx, path, content, size, force, privacy)
}

// DownloadFile opens the file at path on behalf of viewer. Access is
// checked against the file's privacy, and a successful cross-owner read of
// a shareable file imports it into the viewer's Shared folder.
func (v *VaultFS) DownloadFile(ctx context.Context, path resource.UserPath, viewer *resource.User) (*resource.File, io.ReadCloser, error) {
	file, rc, err := v.service.OpenFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	if err := service.VerifyFileAccess(file, viewer); err != nil {
		rc.Close()
		return nil, nil, err
	}

	if viewer != nil && viewer.ID != file.OwnerID {
		if err := v.service.PotentialFileImport(ctx, viewer, file); err != nil {
			rc.Close()
			return nil, nil, err
		}
	}

	return file, rc, nil
}

// UpdateFile applies a privacy transition to the file at path.
func (v *VaultFS) UpdateFile(ctx context.Context, path resource.UserPath, privacy resource.Privacy, sharedTo []string) (*resource.File, error) {
	return v.service.UpdateFile(ctx, path, privacy, sharedTo)
}

// DeleteFile deletes the file at path and every link pointing at it.
func (v *VaultFS) DeleteFile(ctx context.Context, path resource.UserPath) error {
	return v.service.DeleteFile(ctx, path)
}

// DeleteLink deletes the link at path.
func (v *VaultFS) DeleteLink(ctx context.Context, path resource.UserPath) error {
	return v.service.DeleteLink(ctx, path)
}

// CheckResourceType reports what kind of resource lives at path.
func (v *VaultFS) CheckResourceType(ctx context.Context, path resource.UserPath) (resource.ResourceType, error) {
	return v.service.CheckResourceType(ctx, path)
}

// GetVerifiedFile returns the file by ID if identity may access it.
func (v *VaultFS) GetVerifiedFile(ctx context.Context, fileID string, identity *resource.User) (*resource.File, error) {
	return v.service.GetVerifiedFile(ctx, fileID, identity)
}

// GetPublicFile returns the file by ID, insisting on PUBLIC privacy.
func (v *VaultFS) GetPublicFile(ctx context.Context, fileID string) (*resource.File, error) {
	return v.service.GetPublicFile(ctx, fileID)
}

// GetPublicFolder returns the folder by ID, insisting on PUBLIC privacy.
func (v *VaultFS) GetPublicFolder(ctx context.Context, folderID string) (*resource.Folder, error) {
	return v.service.GetPublicFolder(ctx, folderID)
}

// DownloadFolder synchronously zips the folder at path.
func (v *VaultFS) DownloadFolder(ctx context.Context, path resource.UserPath) ([]byte, int64, error) {
	return v.archiver.DownloadFolder(ctx, path)
}

// RequestArchive queues a background job that zips the folder at path and
// stores the result as <path>.zip. Fails with LockBusy when an archive for
// the same folder is already in flight.
func (v *VaultFS) RequestArchive(ctx context.Context, path resource.UserPath, force bool) error {
	return v.archiver.EnqueueArchive(ctx, path, force)
}
