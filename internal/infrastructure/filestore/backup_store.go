package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
)

const (
	metadataExt   = ".json"
	archiveExt    = ".tar.gz"
	workDirPrefix = "temp_"
	lockExt       = ".lock"
	scheduleFile  = "schedule.json"
	backupDirPerm = 0o750
)

// BackupStore keeps one JSON document per backup job in the backup root,
// next to the job's archive.
type BackupStore struct {
	root   string
	logger zerolog.Logger
}

var _ repository.BackupRepository = (*BackupStore)(nil)

func NewBackupStore(root string, logger zerolog.Logger) (*BackupStore, error) {
	if err := os.MkdirAll(root, backupDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &BackupStore{
		root:   root,
		logger: logger.With().Str("component", "backup_store").Logger(),
	}, nil
}

func (s *BackupStore) Root() string {
	return s.root
}

func (s *BackupStore) ArchivePath(id string) string {
	return filepath.Join(s.root, id+archiveExt)
}

func (s *BackupStore) WorkDir(id string) string {
	return filepath.Join(s.root, workDirPrefix+id)
}

func (s *BackupStore) LockPath(id string) string {
	return filepath.Join(s.root, id+lockExt)
}

func (s *BackupStore) metadataPath(id string) string {
	return filepath.Join(s.root, id+metadataExt)
}

func (s *BackupStore) Put(_ context.Context, job *domain.BackupJob) error {
	if !validID(job.ID) {
		return fmt.Errorf("invalid backup id %q", job.ID)
	}

	record := job.Clone()
	record.Size = 0

	if err := writeJSONAtomic(s.metadataPath(job.ID), record); err != nil {
		return fmt.Errorf("failed to write metadata for %s: %w", job.ID, err)
	}
	return nil
}

func (s *BackupStore) Get(_ context.Context, id string) (*domain.BackupJob, error) {
	if !validID(id) {
		return nil, fmt.Errorf("backup %s: %w", id, repository.ErrNotFound)
	}

	var job domain.BackupJob
	if err := readJSON(s.metadataPath(id), &job); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("backup %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read metadata for %s: %w", id, err)
	}
	return &job, nil
}

func (s *BackupStore) List(ctx context.Context) ([]*domain.BackupJob, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]*domain.BackupJob, 0, len(all))
	for _, job := range all {
		info, err := os.Stat(s.ArchivePath(job.ID))
		if err != nil {
			continue
		}
		job.Size = info.Size()
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *BackupStore) ListAll(ctx context.Context) ([]*domain.BackupJob, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	jobs := make([]*domain.BackupJob, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		name := entry.Name()
		if entry.IsDir() || name == scheduleFile || !strings.HasSuffix(name, metadataExt) {
			continue
		}
		id := strings.TrimSuffix(name, metadataExt)
		if !validID(id) {
			continue
		}

		var job domain.BackupJob
		if err := readJSON(filepath.Join(s.root, name), &job); err != nil {
			// Vanished between ReadDir and read, or corrupt.
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable backup metadata")
			}
			continue
		}
		if job.ID != id {
			s.logger.Warn().Str("file", name).Str("id", job.ID).Msg("skipping metadata with mismatched id")
			continue
		}
		jobs = append(jobs, &job)
	}

	sortNewestFirst(jobs)
	return jobs, nil
}

func (s *BackupStore) Delete(_ context.Context, id string) (repository.DeleteResult, error) {
	var result repository.DeleteResult
	if !validID(id) {
		return result, fmt.Errorf("backup %s: %w", id, repository.ErrNotFound)
	}

	var errs []error
	if removed, err := removeIfExists(s.metadataPath(id)); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove metadata: %w", err))
	} else {
		result.MetadataRemoved = removed
	}
	if removed, err := removeIfExists(s.ArchivePath(id)); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove archive: %w", err))
	} else {
		result.ArchiveRemoved = removed
	}

	return result, errors.Join(errs...)
}

func removeIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// sortNewestFirst orders by creation time descending; ties are broken by id so
// repeated listings are identical.
func sortNewestFirst(jobs []*domain.BackupJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
}

// Backup ids double as file names, so only canonical UUIDs are accepted.
func validID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}
