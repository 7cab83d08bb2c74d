package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/buddybox/buddybox/internal/adapter/archive"
	"github.com/buddybox/buddybox/internal/adapter/producer"
	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
	"github.com/buddybox/buddybox/internal/metrics"
)

// ProducerFactory builds the producers a job plan is made of.
type ProducerFactory interface {
	KnownService(name string) bool
	ServiceNames() []string
	ListDatabases(ctx context.Context) ([]string, error)

	Config(service string) producer.Producer
	AllConfigs() producer.Producer
	Database(name string) producer.Producer
	AllDatabases() producer.Producer
	AppData() producer.Producer
	AppConfig() producer.Producer
	Schemas() producer.Producer
	Logs() producer.Producer
}

// WorkDirManager creates and releases per-job working directories.
type WorkDirManager interface {
	CreateWorkDir(path string) error
	RemoveWorkDir(ctx context.Context, path string) error
}

// ArchiveFunc packs sourceDir into destPath.
type ArchiveFunc func(ctx context.Context, sourceDir, destPath string) error

const terminalWriteRetries = 2

// JobRunner drives a backup job from InProgress to a terminal state. Jobs
// submitted in the background run on a bounded pool tied to the runner's
// lifetime rather than to any request.
type JobRunner struct {
	store     repository.BackupRepository
	producers ProducerFactory
	workDirs  WorkDirManager
	archive   ArchiveFunc
	logger    zerolog.Logger

	slots   chan struct{}
	running *xsync.MapOf[string, time.Time]
	wg      sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc

	now       func() time.Time
	retryBase time.Duration
}

func NewJobRunner(
	store repository.BackupRepository,
	producers ProducerFactory,
	workDirs WorkDirManager,
	maxConcurrent int,
	logger zerolog.Logger,
) *JobRunner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobRunner{
		store:     store,
		producers: producers,
		workDirs:  workDirs,
		archive:   archive.Build,
		logger:    logger.With().Str("component", "job_runner").Logger(),
		slots:     make(chan struct{}, maxConcurrent),
		running:   xsync.NewMapOf[string, time.Time](),
		baseCtx:   ctx,
		cancel:    cancel,
		now:       time.Now,
		retryBase: 200 * time.Millisecond,
	}
}

// WithArchiver replaces the archive builder.
func (r *JobRunner) WithArchiver(fn ArchiveFunc) *JobRunner {
	r.archive = fn
	return r
}

// Submit runs job in the background and returns immediately. The job must
// already be persisted as InProgress.
func (r *JobRunner) Submit(job *domain.BackupJob) error {
	if err := r.baseCtx.Err(); err != nil {
		return errors.New("job runner is shutting down")
	}
	job = job.Clone()
	r.running.Store(job.ID, r.now())
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case r.slots <- struct{}{}:
		case <-r.baseCtx.Done():
			r.finish(job, r.now(), errors.New("interrupted: shutting down before start"))
			r.running.Delete(job.ID)
			return
		}
		defer func() { <-r.slots }()
		r.execute(r.baseCtx, job)
	}()
	return nil
}

// Execute runs job on the calling goroutine and returns its final record.
func (r *JobRunner) Execute(ctx context.Context, job *domain.BackupJob) *domain.BackupJob {
	job = job.Clone()
	r.running.Store(job.ID, r.now())
	r.execute(ctx, job)
	return job
}

// IsRunning reports whether this process is currently executing the job.
func (r *JobRunner) IsRunning(id string) bool {
	_, ok := r.running.Load(id)
	return ok
}

// Running returns the number of jobs in flight.
func (r *JobRunner) Running() int {
	return r.running.Size()
}

// Shutdown stops accepting jobs and waits for in-flight ones. When ctx
// expires first, running jobs are cancelled and recorded as failed.
func (r *JobRunner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.logger.Warn().Int("jobs", r.Running()).Msg("Shutdown deadline reached, cancelling running backups")
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *JobRunner) execute(ctx context.Context, job *domain.BackupJob) {
	defer r.running.Delete(job.ID)

	log := r.logger.With().Str("backup_id", job.ID).Str("kind", string(job.Kind)).Logger()
	defer r.lockJob(job.ID, log)()
	started := r.now()
	metrics.JobsInProgress.Inc()
	defer metrics.JobsInProgress.Dec()

	var jobErr error
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Backup job panicked")
			jobErr = fmt.Errorf("internal error: %v", rec)
		}
		r.finish(job, started, jobErr)
	}()

	jobErr = r.run(ctx, job, log)
}

// lockJob holds the job's lock file until the returned func is called, which
// tells other processes sharing the backup root that the job is still alive.
func (r *JobRunner) lockJob(id string, log zerolog.Logger) func() {
	lock := flock.New(r.store.LockPath(id))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		log.Warn().Err(err).Msg("Failed to lock backup job")
		_ = lock.Close()
		return func() {}
	}
	return func() {
		if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Msg("Failed to remove backup job lock")
		}
		if err := lock.Unlock(); err != nil {
			log.Warn().Err(err).Msg("Failed to release backup job lock")
		}
	}
}

func (r *JobRunner) run(ctx context.Context, job *domain.BackupJob, log zerolog.Logger) error {
	workDir := r.store.WorkDir(job.ID)
	if err := r.workDirs.CreateWorkDir(workDir); err != nil {
		return fmt.Errorf("failed to prepare working directory: %w", err)
	}
	defer func() {
		if err := r.workDirs.RemoveWorkDir(context.WithoutCancel(ctx), workDir); err != nil {
			log.Warn().Err(err).Str("path", workDir).Msg("Failed to remove working directory")
		}
	}()

	log.Info().Msg("Backup started")
	target := producer.Target{BackupID: job.ID, WorkDir: workDir}
	for _, p := range r.plan(job) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("interrupted: %w", err)
		}
		if err := p.Produce(ctx, target); err != nil {
			metrics.ProducerFailures.WithLabelValues(p.Name()).Inc()
			log.Warn().Err(err).Str("producer", p.Name()).Msg("Backup unit failed, continuing")
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}

	archivePath := r.store.ArchivePath(job.ID)
	if err := r.archive(ctx, workDir, archivePath); err != nil {
		return fmt.Errorf("failed to build archive: %w", err)
	}
	if info, err := os.Stat(archivePath); err == nil {
		metrics.ArchiveBytes.Observe(float64(info.Size()))
	}
	return nil
}

func (r *JobRunner) plan(job *domain.BackupJob) []producer.Producer {
	opts := job.Options
	var plan []producer.Producer
	switch job.Kind {
	case domain.BackupKindFull:
		if opts.WantsConfigs() {
			plan = append(plan, r.producers.AllConfigs())
		}
		if opts.WantsDatabases() {
			plan = append(plan, r.producers.AllDatabases())
		}
		plan = append(plan, r.producers.AppData())
	case domain.BackupKindDatabase:
		if opts != nil {
			for _, name := range opts.Databases {
				plan = append(plan, r.producers.Database(name))
			}
		}
	case domain.BackupKindConfig:
		if opts != nil {
			for _, svc := range opts.Services {
				plan = append(plan, r.producers.Config(svc))
			}
		}
	case domain.BackupKindDaily:
		plan = append(plan, r.producers.AppConfig(), r.producers.Schemas(), r.producers.Logs())
	}
	return plan
}

// finish applies the terminal transition and persists it. The write is
// retried because a lost terminal record leaves the job InProgress forever.
func (r *JobRunner) finish(job *domain.BackupJob, started time.Time, jobErr error) {
	log := r.logger.With().Str("backup_id", job.ID).Logger()
	now := r.now()

	var err error
	if jobErr != nil {
		err = job.Fail(now, jobErr.Error())
	} else {
		err = job.Complete(now)
	}
	if errors.Is(err, domain.ErrJobTerminal) {
		log.Warn().Str("status", string(job.Status)).Msg("Job already finished, keeping existing record")
		return
	}

	ctx := context.WithoutCancel(r.baseCtx)
	backoff := retry.WithMaxRetries(terminalWriteRetries, retry.NewExponential(r.retryBase))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.MetadataWriteRetries.Inc()
		}
		if err := r.store.Put(ctx, job); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("status", string(job.Status)).Msg("Failed to persist final backup status")
	}

	metrics.JobsTotal.WithLabelValues(string(job.Kind), string(job.Status)).Inc()
	metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(now.Sub(started).Seconds())

	if job.Status == domain.BackupStatusFailed {
		log.Error().Str("error", job.Error).Msg("Backup failed")
	} else {
		log.Info().Dur("duration", now.Sub(started)).Msg("Backup completed")
	}
}
