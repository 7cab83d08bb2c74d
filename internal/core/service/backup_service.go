package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
)

const maxDescriptionLength = 200

// CreateBackupRequest describes a backup to start.
type CreateBackupRequest struct {
	Kind             domain.BackupKind
	Description      string
	IncludeDatabases *bool
	IncludeConfigs   *bool
	Databases        []string
	Services         []string
	Automated        bool
}

type BackupService struct {
	store      repository.BackupRepository
	runner     *JobRunner
	producers  ProducerFactory
	staleAfter time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func NewBackupService(
	store repository.BackupRepository,
	runner *JobRunner,
	producers ProducerFactory,
	staleAfter time.Duration,
	logger zerolog.Logger,
) *BackupService {
	return &BackupService{
		store:      store,
		runner:     runner,
		producers:  producers,
		staleAfter: staleAfter,
		logger:     logger.With().Str("component", "backup_service").Logger(),
		now:        time.Now,
	}
}

// Create validates req, persists the job as InProgress and starts it in the
// background. The returned record is the one a status read would see now.
func (s *BackupService) Create(ctx context.Context, req CreateBackupRequest) (*domain.BackupJob, error) {
	job, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.runner.Submit(job); err != nil {
		s.markFailed(ctx, job, err)
		return nil, NewServiceError(http.StatusServiceUnavailable, err.Error())
	}
	return job, nil
}

// Run is Create without the background hand-off: it returns once the job is
// terminal.
func (s *BackupService) Run(ctx context.Context, req CreateBackupRequest) (*domain.BackupJob, error) {
	job, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.runner.Execute(ctx, job), nil
}

func (s *BackupService) prepare(ctx context.Context, req CreateBackupRequest) (*domain.BackupJob, error) {
	opts, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	job := domain.NewBackupJob(req.Kind, req.Description, opts, req.Automated, s.now().UTC())
	if err := job.Start(); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save backup record: %w", err)
	}
	s.logger.Info().Str("backup_id", job.ID).Str("kind", string(job.Kind)).Msg("Backup queued")
	return job, nil
}

func (s *BackupService) validate(req CreateBackupRequest) (*domain.BackupOptions, error) {
	if validate.Var(req.Description, fmt.Sprintf("max=%d", maxDescriptionLength)) != nil {
		return nil, NewValidationError(fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	switch req.Kind {
	case domain.BackupKindFull:
		return &domain.BackupOptions{
			IncludeDatabases: req.IncludeDatabases,
			IncludeConfigs:   req.IncludeConfigs,
		}, nil

	case domain.BackupKindDatabase:
		if len(req.Databases) == 0 {
			return nil, NewValidationError("at least one database is required")
		}
		for _, name := range req.Databases {
			if !validDatabaseName(name) {
				return nil, NewValidationError(fmt.Sprintf("invalid database name: %q", name))
			}
		}
		return &domain.BackupOptions{Databases: append([]string(nil), req.Databases...)}, nil

	case domain.BackupKindConfig:
		if len(req.Services) == 0 {
			return nil, NewValidationError("at least one service is required")
		}
		for _, svc := range req.Services {
			if !s.producers.KnownService(svc) {
				return nil, NewValidationError(fmt.Sprintf("unknown service: %q", svc))
			}
		}
		return &domain.BackupOptions{Services: append([]string(nil), req.Services...)}, nil

	case domain.BackupKindDaily:
		return nil, nil

	default:
		return nil, NewValidationError(fmt.Sprintf("unknown backup type: %q", req.Kind))
	}
}

func (s *BackupService) markFailed(ctx context.Context, job *domain.BackupJob, cause error) {
	if job.Fail(s.now().UTC(), cause.Error()) != nil {
		return
	}
	if err := s.store.Put(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("backup_id", job.ID).Msg("Failed to record rejected backup")
	}
}

// Get returns the job record. A record left InProgress for longer than the
// stale threshold, by a job that neither this process runs nor another process
// holds the lock for, is reported, and persisted, as failed.
func (s *BackupService) Get(ctx context.Context, id string) (*domain.BackupJob, error) {
	running := s.runner.IsRunning(id)

	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.isStale(job, running) {
		if err := job.Fail(s.now().UTC(), "interrupted: no longer running"); err == nil {
			s.logger.Warn().Str("backup_id", id).Msg("Marking stale backup as failed")
			if err := s.store.Put(ctx, job); err != nil {
				s.logger.Error().Err(err).Str("backup_id", id).Msg("Failed to persist stale backup status")
			}
		}
	}
	return job, nil
}

func (s *BackupService) isStale(job *domain.BackupJob, running bool) bool {
	if s.staleAfter <= 0 || running || job.Status != domain.BackupStatusInProgress {
		return false
	}
	if s.now().Sub(job.CreatedAt) <= s.staleAfter {
		return false
	}
	return !s.lockedElsewhere(job.ID)
}

// lockedElsewhere reports whether another process, such as a foreground CLI
// backup, still holds the job's lock file.
func (s *BackupService) lockedElsewhere(id string) bool {
	path := s.store.LockPath(id)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		s.logger.Warn().Err(err).Str("backup_id", id).Msg("Failed to check backup job lock")
		return true
	}
	if !locked {
		_ = lock.Close()
		return true
	}
	// Left behind by a process that died mid-job.
	_ = os.Remove(path)
	_ = lock.Unlock()
	return false
}

// List returns the backups that have an archive, newest first.
func (s *BackupService) List(ctx context.Context) ([]*domain.BackupJob, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return jobs, nil
}

// Delete removes a backup's record and archive. Deleting an id with nothing
// on disk succeeds and reports that nothing was removed.
func (s *BackupService) Delete(ctx context.Context, id string) (repository.DeleteResult, error) {
	if s.runner.IsRunning(id) {
		return repository.DeleteResult{}, NewServiceError(http.StatusConflict, "backup is still running")
	}
	res, err := s.store.Delete(ctx, id)
	if err != nil {
		return res, err
	}
	s.logger.Info().Str("backup_id", id).
		Bool("metadata", res.MetadataRemoved).
		Bool("archive", res.ArchiveRemoved).
		Msg("Backup deleted")
	return res, nil
}

// ArchivePath returns the archive of a completed backup.
func (s *BackupService) ArchivePath(ctx context.Context, id string) (string, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != domain.BackupStatusCompleted {
		return "", fmt.Errorf("backup %s is %s: %w", id, job.Status, repository.ErrNotFound)
	}
	path := s.store.ArchivePath(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("archive for %s: %w", id, repository.ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}
	return path, nil
}

// Services lists the services whose configuration can be backed up.
func (s *BackupService) Services() []string {
	return s.producers.ServiceNames()
}

// Databases lists the databases a full backup would dump.
func (s *BackupService) Databases(ctx context.Context) ([]string, error) {
	return s.producers.ListDatabases(ctx)
}
