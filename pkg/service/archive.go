package service

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/kv"
	"github.com/marmos91/vaultfs/pkg/queue"
	"github.com/marmos91/vaultfs/pkg/resource"
)

// JobCreateArchive is the queue job name for background archive creation.
const JobCreateArchive = "create_archive"

// archiveLockTTL bounds how long a crashed worker can keep a subtree
// locked; a live worker releases the lock as its final step.
const archiveLockTTL = time.Hour

// Archiver builds zip archives from folder subtrees. Asynchronous builds
// are guarded by a distributed lock so at most one archive job per
// (owner, folder path) pair is in flight cluster-wide.
type Archiver struct {
	service *Service
	locks   kv.Store
	jobs    queue.Queue
}

// NewArchiver creates an archiver over the given service, lock store and
// job queue.
func NewArchiver(service *Service, locks kv.Store, jobs queue.Queue) *Archiver {
	return &Archiver{
		service: service,
		locks:   locks,
		jobs:    jobs,
	}
}

func archiveLockKey(ownerID, path string) string {
	return "zip:" + ownerID + ":" + path
}

// AcquireLock takes the archive lock for the given owner and folder path.
// It fails with LockBusy when an archive for the pair is already in flight.
// The returned token identifies this acquisition.
func (a *Archiver) AcquireLock(ctx context.Context, ownerID, path string) (string, error) {
	key := archiveLockKey(ownerID, path)
	token := uuid.NewString()

	acquired, err := a.locks.SetIfAbsent(ctx, key, token, archiveLockTTL)
	if err != nil {
		return "", err
	}
	if !acquired {
		return "", resource.ErrLockBusy(key)
	}
	return token, nil
}

// ReleaseLock releases the archive lock for the given owner and folder
// path. Releasing an unheld lock is not an error.
func (a *Archiver) ReleaseLock(ctx context.Context, ownerID, path string) error {
	return a.locks.Delete(ctx, archiveLockKey(ownerID, path))
}

// BuildArchive zips a folder subtree depth-first, streaming each file's
// blob into an entry prefixed with the archived folder's own name. A folder
// with no files and no subfolders becomes an explicit directory entry, the
// archived folder included, so empty structure survives a round trip. The
// archive is buffered fully and returned with its total size.
func (a *Archiver) BuildArchive(ctx context.Context, folder *resource.Folder) ([]byte, int64, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	if err := a.archiveFolder(ctx, zw, folder, folder.Name+"/"); err != nil {
		zw.Close()
		return nil, 0, err
	}
	if err := zw.Close(); err != nil {
		return nil, 0, err
	}

	return buf.Bytes(), int64(buf.Len()), nil
}

func (a *Archiver) archiveFolder(ctx context.Context, zw *zip.Writer, folder *resource.Folder, dir string) error {
	files, err := a.service.store.ListFiles(ctx, folder.ID)
	if err != nil {
		return err
	}
	subfolders, err := a.service.store.ListSubfolders(ctx, folder.ID)
	if err != nil {
		return err
	}

	if len(files) == 0 && len(subfolders) == 0 {
		// A trailing slash makes this an explicit directory entry.
		_, err := zw.Create(dir)
		return err
	}

	for _, file := range files {
		entry, err := zw.Create(dir + file.Name)
		if err != nil {
			return err
		}
		rc, err := a.service.blobs.Open(ctx, file.ID)
		if err != nil {
			return err
		}
		if _, err := io.Copy(entry, rc); err != nil {
			rc.Close()
			return err
		}
		if err := rc.Close(); err != nil {
			return err
		}
	}

	for _, sub := range subfolders {
		if err := a.archiveFolder(ctx, zw, sub, dir+sub.Name+"/"); err != nil {
			return err
		}
	}
	return nil
}

// DownloadFolder synchronously zips the folder at path.
func (a *Archiver) DownloadFolder(ctx context.Context, path resource.UserPath) ([]byte, int64, error) {
	folder, err := a.service.resolver.FolderFromPath(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	return a.BuildArchive(ctx, folder)
}

// EnqueueArchive takes the archive lock for the folder at path and queues a
// background job that will build the zip and store it next to the folder.
// The call returns as soon as the job is queued. Job arguments carry only
// primitive identifiers; the worker re-resolves everything by ID.
func (a *Archiver) EnqueueArchive(ctx context.Context, path resource.UserPath, force bool) error {
	owner := path.Owner()

	// Validate the folder before taking the lock, so a bad path does not
	// hold the lock for a full TTL.
	if _, err := a.service.resolver.FolderFromPath(ctx, path); err != nil {
		return err
	}

	token, err := a.AcquireLock(ctx, owner.ID, path.String())
	if err != nil {
		return err
	}

	job := queue.Job{
		Name: JobCreateArchive,
		Args: map[string]string{
			"owner_id": owner.ID,
			"path":     path.String(),
			"force":    strconv.FormatBool(force),
			"token":    token,
		},
	}
	if err := a.jobs.Enqueue(ctx, job); err != nil {
		if relErr := a.ReleaseLock(ctx, owner.ID, path.String()); relErr != nil {
			logger.Warn("Failed to release archive lock after enqueue error: %v", relErr)
		}
		return err
	}

	logger.Info("Queued archive job for %s%s", owner.Username, path)
	return nil
}

// HandleArchiveJob is the worker-side handler for JobCreateArchive. It
// re-resolves the owner and folder from the job arguments, builds the
// archive and stores it as a new PRIVATE file named <path>.zip. The lock is
// released unconditionally as the final step, whether the build succeeded
// or not.
func (a *Archiver) HandleArchiveJob(ctx context.Context, job queue.Job) (err error) {
	ownerID := job.Args["owner_id"]
	rawPath := job.Args["path"]
	force := job.Args["force"] == "true"

	defer func() {
		if relErr := a.locks.Delete(ctx, archiveLockKey(ownerID, rawPath)); relErr != nil {
			logger.Warn("Failed to release archive lock %s: %v", archiveLockKey(ownerID, rawPath), relErr)
		}
	}()

	owner, err := a.service.store.GetUser(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner == nil {
		return resource.ErrNotFound(ownerID)
	}

	path, err := resource.NewUserPath(owner, rawPath)
	if err != nil {
		return err
	}

	folder, err := a.service.resolver.FolderFromPath(ctx, path)
	if err != nil {
		return err
	}

	data, size, err := a.BuildArchive(ctx, folder)
	if err != nil {
		return err
	}

	zipPath := path.Parent().Join(path.Name() + ".zip")
	if _, err := a.service.CreateFile(ctx, zipPath, bytes.NewReader(data), size, force, resource.PrivacyPrivate); err != nil {
		return err
	}

	logger.Info("Archive %s created (%d bytes)", zipPath, size)
	return nil
}
