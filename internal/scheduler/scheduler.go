// Package scheduler triggers automated backups on cron schedules: the daily
// automated backup on a fixed expression, and the kinds enabled in the
// stored schedule document.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/service"
)

// Jobs is what the scheduler triggers.
type Jobs interface {
	RunDailyBackup(ctx context.Context) (*service.DailyResult, error)
	RunScheduled(ctx context.Context, kind domain.BackupKind) (*domain.BackupJob, error)
	GetSchedule(ctx context.Context) (domain.Schedule, error)
}

type Scheduler struct {
	cron      *cron.Cron
	jobs      Jobs
	dailySpec string
	logger    zerolog.Logger

	mu      sync.Mutex
	entries []cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. An empty dailySpec disables the daily backup.
func New(jobs Jobs, dailySpec string, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "cron").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
			cron.WithLogger(cronLogger{logger}),
		),
		jobs:      jobs,
		dailySpec: dailySpec,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the daily entry and the stored schedule, then starts the
// cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.dailySpec != "" {
		if _, err := s.cron.AddFunc(s.dailySpec, s.runDaily); err != nil {
			return err
		}
		s.logger.Info().Str("cron", s.dailySpec).Msg("Daily backup scheduled")
	}

	schedule, err := s.jobs.GetSchedule(ctx)
	if err != nil {
		return err
	}
	s.Apply(schedule)

	s.cron.Start()
	return nil
}

// Apply replaces the entries derived from the schedule document.
func (s *Scheduler) Apply(schedule domain.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]

	if !schedule.Enabled {
		return
	}
	for kind, entry := range schedule.Entries() {
		if !entry.Enabled {
			continue
		}
		kind := kind
		id, err := s.cron.AddFunc(entry.Cron, func() { s.runScheduled(kind) })
		if err != nil {
			s.logger.Error().Err(err).Str("kind", string(kind)).Str("cron", entry.Cron).Msg("Skipping invalid schedule entry")
			continue
		}
		s.entries = append(s.entries, id)
		s.logger.Info().Str("kind", string(kind)).Str("cron", entry.Cron).Msg("Backup scheduled")
	}
}

// Stop stops triggering and waits for a running trigger to return. When ctx
// expires first, the running backup is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-stopped.Done()
		return ctx.Err()
	}
}

func (s *Scheduler) runDaily() {
	res, err := s.jobs.RunDailyBackup(s.ctx)
	switch {
	case errors.Is(err, service.ErrDailyBackupRunning):
		s.logger.Warn().Msg("Daily backup already running, skipping")
	case err != nil:
		s.logger.Error().Err(err).Msg("Daily backup could not start")
	default:
		event := s.logger.Info().Str("backup_id", res.Job.ID).Str("status", string(res.Job.Status))
		if res.Cleanup != nil {
			event = event.Int("deleted", len(res.Cleanup.Deleted))
		}
		event.Msg("Daily backup finished")
	}
}

func (s *Scheduler) runScheduled(kind domain.BackupKind) {
	job, err := s.jobs.RunScheduled(s.ctx, kind)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("Scheduled backup could not start")
		return
	}
	s.logger.Info().Str("kind", string(kind)).Str("backup_id", job.ID).Msg("Scheduled backup started")
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
