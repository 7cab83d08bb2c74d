package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
)

const dailyLockFile = ".daily.lock"

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a standard five-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	return cronParser.Parse(strings.TrimSpace(expr))
}

// DailyResult is the outcome of one daily automated run.
type DailyResult struct {
	Job     *domain.BackupJob
	Cleanup *CleanupResult
}

type ScheduleService struct {
	scheduleRepo  repository.ScheduleRepository
	backupService *BackupService
	cleanup       *CleanupService
	lockPath      string
	keepCount     int
	logger        zerolog.Logger

	listeners []func(domain.Schedule)
}

func NewScheduleService(
	scheduleRepo repository.ScheduleRepository,
	backupService *BackupService,
	cleanup *CleanupService,
	backupRoot string,
	keepCount int,
	logger zerolog.Logger,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo:  scheduleRepo,
		backupService: backupService,
		cleanup:       cleanup,
		lockPath:      filepath.Join(backupRoot, dailyLockFile),
		keepCount:     keepCount,
		logger:        logger.With().Str("component", "scheduler").Logger(),
	}
}

func (s *ScheduleService) GetSchedule(ctx context.Context) (domain.Schedule, error) {
	schedule, err := s.scheduleRepo.Get(ctx)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("failed to load schedule: %w", err)
	}
	return schedule, nil
}

// UpdateSchedule validates every cron expression before saving.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, schedule domain.Schedule) error {
	if err := validateSchedule(schedule); err != nil {
		return err
	}
	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	s.logger.Info().Bool("enabled", schedule.Enabled).Msg("Backup schedule updated")
	for _, fn := range s.listeners {
		fn(schedule)
	}
	return nil
}

// OnUpdate registers fn to be called with every saved schedule. Not safe to
// call concurrently with UpdateSchedule; register during startup.
func (s *ScheduleService) OnUpdate(fn func(domain.Schedule)) {
	s.listeners = append(s.listeners, fn)
}

func validateSchedule(schedule domain.Schedule) error {
	for kind, entry := range schedule.Entries() {
		if strings.TrimSpace(entry.Cron) == "" {
			return NewValidationError(fmt.Sprintf("%s schedule: cron expression is required", kind))
		}
		if _, err := ParseCron(entry.Cron); err != nil {
			return NewValidationError(fmt.Sprintf("%s schedule: invalid cron expression %q: %v", kind, entry.Cron, err))
		}
	}
	return nil
}

// RunDailyBackup performs the daily automated backup and, when it completed,
// applies retention. Only one daily run may be active per backup root, across
// processes; a concurrent call returns ErrDailyBackupRunning.
func (s *ScheduleService) RunDailyBackup(ctx context.Context) (*DailyResult, error) {
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire daily backup lock: %w", err)
	}
	if !locked {
		return nil, ErrDailyBackupRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to release daily backup lock")
		}
	}()

	s.logger.Info().Msg("Starting daily automated backup")
	job, err := s.backupService.Run(ctx, CreateBackupRequest{Kind: domain.BackupKindDaily, Automated: true})
	if err != nil {
		return nil, err
	}

	result := &DailyResult{Job: job}
	if job.Status != domain.BackupStatusCompleted {
		s.logger.Warn().Str("backup_id", job.ID).Str("error", job.Error).Msg("Daily backup failed, skipping retention")
		return result, nil
	}

	cleanup, err := s.cleanup.Cleanup(ctx, s.keepCount)
	if err != nil {
		// The backup itself succeeded; retention runs again tomorrow.
		s.logger.Error().Err(err).Msg("Retention after daily backup failed")
		return result, nil
	}
	result.Cleanup = cleanup
	return result, nil
}

// RunScheduled starts the automated backup behind one schedule entry. Database
// entries dump every enumerated database whose name the dump tools accept;
// config entries capture every known service.
func (s *ScheduleService) RunScheduled(ctx context.Context, kind domain.BackupKind) (*domain.BackupJob, error) {
	req := CreateBackupRequest{Kind: kind, Automated: true}
	switch kind {
	case domain.BackupKindFull:
	case domain.BackupKindDatabase:
		names, err := s.backupService.Databases(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate databases: %w", err)
		}
		for _, name := range names {
			if !domain.ValidDatabaseName(name) {
				s.logger.Warn().Str("database", name).Msg("Skipping database with unsupported name")
				continue
			}
			req.Databases = append(req.Databases, name)
		}
	case domain.BackupKindConfig:
		req.Services = s.backupService.Services()
	default:
		return nil, NewValidationError(fmt.Sprintf("backup type %q cannot be scheduled", kind))
	}
	return s.backupService.Create(ctx, req)
}
