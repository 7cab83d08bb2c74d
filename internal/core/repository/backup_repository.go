package repository

import (
	"context"
	"errors"

	"github.com/buddybox/buddybox/internal/core/domain"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("not found")

// DeleteResult reports which artifacts of a backup were actually removed.
type DeleteResult struct {
	MetadataRemoved bool `json:"metadata"`
	ArchiveRemoved  bool `json:"archive"`
}

type BackupRepository interface {
	// Put creates or replaces the record for job.ID.
	Put(ctx context.Context, job *domain.BackupJob) error
	Get(ctx context.Context, id string) (*domain.BackupJob, error)

	// List returns records that have an archive on disk, newest first, with
	// Size populated.
	List(ctx context.Context) ([]*domain.BackupJob, error)

	// ListAll returns every readable record regardless of archive presence.
	ListAll(ctx context.Context) ([]*domain.BackupJob, error)

	Delete(ctx context.Context, id string) (DeleteResult, error)

	ArchivePath(id string) string
	WorkDir(id string) string

	// LockPath is the file a running job holds an advisory lock on.
	LockPath(id string) string
}
