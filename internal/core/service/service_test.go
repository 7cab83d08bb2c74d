package service

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybox/buddybox/internal/adapter/producer"
	"github.com/buddybox/buddybox/internal/adapter/system"
	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/infrastructure/filestore"
)

// fakeProducer writes files into the working directory, or fails.
type fakeProducer struct {
	name    string
	files   map[string]string
	err     error
	panics  bool
	release <-chan struct{}
}

func (p *fakeProducer) Name() string { return p.name }

func (p *fakeProducer) Produce(ctx context.Context, target producer.Target) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.panics {
		panic("producer blew up")
	}
	for name, body := range p.files {
		path := filepath.Join(target.WorkDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(body), 0o640); err != nil {
			return err
		}
	}
	return p.err
}

// fakeFactory hands out fakeProducers keyed by name.
type fakeFactory struct {
	mu        sync.Mutex
	services  map[string]bool
	databases []string
	producers map[string]*fakeProducer
	built     []string
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		services:  map[string]bool{"nginx": true, "bind": true},
		producers: map[string]*fakeProducer{},
	}
}

func (f *fakeFactory) get(name string) producer.Producer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built = append(f.built, name)
	if p, ok := f.producers[name]; ok {
		return p
	}
	return &fakeProducer{name: name}
}

func (f *fakeFactory) KnownService(name string) bool { return f.services[name] }
func (f *fakeFactory) ServiceNames() []string        { return []string{"bind", "nginx"} }
func (f *fakeFactory) ListDatabases(context.Context) ([]string, error) {
	return f.databases, nil
}
func (f *fakeFactory) Config(svc string) producer.Producer { return f.get("config:" + svc) }
func (f *fakeFactory) AllConfigs() producer.Producer       { return f.get("configs") }
func (f *fakeFactory) Database(n string) producer.Producer { return f.get("database:" + n) }
func (f *fakeFactory) AllDatabases() producer.Producer     { return f.get("databases") }
func (f *fakeFactory) AppData() producer.Producer          { return f.get("application") }
func (f *fakeFactory) AppConfig() producer.Producer        { return f.get("app_config") }
func (f *fakeFactory) Schemas() producer.Producer          { return f.get("schemas") }
func (f *fakeFactory) Logs() producer.Producer             { return f.get("logs") }

type testEnv struct {
	store    *filestore.BackupStore
	factory  *fakeFactory
	runner   *JobRunner
	backups  *BackupService
	cleanup  *CleanupService
	schedule *ScheduleService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	store, err := filestore.NewBackupStore(root, zerolog.Nop())
	require.NoError(t, err)
	schedules, err := filestore.NewScheduleStore(root)
	require.NoError(t, err)

	factory := newFakeFactory()
	runner := NewJobRunner(store, factory, system.NewAdapter(), 2, zerolog.Nop())
	runner.retryBase = time.Millisecond
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })

	backups := NewBackupService(store, runner, factory, time.Hour, zerolog.Nop())
	cleanup := NewCleanupService(store, zerolog.Nop())
	return &testEnv{
		store:    store,
		factory:  factory,
		runner:   runner,
		backups:  backups,
		cleanup:  cleanup,
		schedule: NewScheduleService(schedules, backups, cleanup, root, 7, zerolog.Nop()),
	}
}

func archiveEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	entries := map[string]string{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = string(body)
	}
	return entries
}

func TestRunCompletesDespiteFailedUnit(t *testing.T) {
	env := setupTestEnv(t)
	env.factory.producers["config:nginx"] = &fakeProducer{name: "config:nginx", files: map[string]string{"configs/nginx/nginx.conf": "events {}"}}
	env.factory.producers["config:bind"] = &fakeProducer{name: "config:bind", err: errors.New("named.conf unreadable")}

	job, err := env.backups.Run(context.Background(), CreateBackupRequest{
		Kind:     domain.BackupKindConfig,
		Services: []string{"nginx", "bind"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusCompleted, job.Status)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.CompletedAt)

	stored, err := env.store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusCompleted, stored.Status)

	entries := archiveEntries(t, env.store.ArchivePath(job.ID))
	assert.Equal(t, "events {}", entries["configs/nginx/nginx.conf"])
	assert.NoDirExists(t, env.store.WorkDir(job.ID))
	assert.False(t, env.runner.IsRunning(job.ID))
}

func TestRunFullCompletesWhenConfigsFail(t *testing.T) {
	env := setupTestEnv(t)
	env.factory.producers["configs"] = &fakeProducer{name: "configs", err: errors.New("nginx: permission denied")}
	env.factory.producers["databases"] = &fakeProducer{name: "databases", files: map[string]string{
		"databases/crm.sql":  "CREATE TABLE leads();",
		"databases/shop.sql": "CREATE TABLE orders();",
	}}
	env.factory.producers["application"] = &fakeProducer{name: "application", files: map[string]string{
		"application/www/index.html": "<html>",
	}}

	job, err := env.backups.Run(context.Background(), CreateBackupRequest{Kind: domain.BackupKindFull})
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusCompleted, job.Status)
	assert.Empty(t, job.Error)
	assert.Equal(t, []string{"configs", "databases", "application"}, env.factory.built)

	entries := archiveEntries(t, env.store.ArchivePath(job.ID))
	assert.Equal(t, "CREATE TABLE leads();", entries["databases/crm.sql"])
	assert.Equal(t, "CREATE TABLE orders();", entries["databases/shop.sql"])
	assert.Equal(t, "<html>", entries["application/www/index.html"])
	for name := range entries {
		assert.NotContains(t, name, "configs/")
	}
}

func TestRunArchiveFailureFailsJob(t *testing.T) {
	env := setupTestEnv(t)
	env.runner.WithArchiver(func(context.Context, string, string) error {
		return errors.New("disk full")
	})

	job, err := env.backups.Run(context.Background(), CreateBackupRequest{Kind: domain.BackupKindFull})
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusFailed, job.Status)
	assert.Contains(t, job.Error, "disk full")
	assert.NotNil(t, job.CompletedAt)
	assert.NoDirExists(t, env.store.WorkDir(job.ID))
	assert.NoFileExists(t, env.store.ArchivePath(job.ID))

	list, err := env.backups.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunRecoversPanic(t *testing.T) {
	env := setupTestEnv(t)
	env.factory.producers["application"] = &fakeProducer{name: "application", panics: true}

	job, err := env.backups.Run(context.Background(), CreateBackupRequest{Kind: domain.BackupKindFull})
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusFailed, job.Status)
	assert.Contains(t, job.Error, "producer blew up")
	assert.NoDirExists(t, env.store.WorkDir(job.ID))
}

func TestPlanByKind(t *testing.T) {
	no := false
	tests := []struct {
		name string
		req  CreateBackupRequest
		want []string
	}{
		{"full", CreateBackupRequest{Kind: domain.BackupKindFull}, []string{"configs", "databases", "application"}},
		{"full without databases", CreateBackupRequest{Kind: domain.BackupKindFull, IncludeDatabases: &no}, []string{"configs", "application"}},
		{"full without configs", CreateBackupRequest{Kind: domain.BackupKindFull, IncludeConfigs: &no}, []string{"databases", "application"}},
		{"database", CreateBackupRequest{Kind: domain.BackupKindDatabase, Databases: []string{"shop", "crm"}}, []string{"database:shop", "database:crm"}},
		{"config", CreateBackupRequest{Kind: domain.BackupKindConfig, Services: []string{"bind"}}, []string{"config:bind"}},
		{"daily", CreateBackupRequest{Kind: domain.BackupKindDaily, Automated: true}, []string{"app_config", "schemas", "logs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			job, err := env.backups.Run(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, domain.BackupStatusCompleted, job.Status)
			assert.Equal(t, tt.want, env.factory.built)
		})
	}
}

func TestCreateRunsInBackground(t *testing.T) {
	env := setupTestEnv(t)
	release := make(chan struct{})
	env.factory.producers["application"] = &fakeProducer{
		name:    "application",
		files:   map[string]string{"application/data.txt": "x"},
		release: release,
	}

	ctx := context.Background()
	job, err := env.backups.Create(ctx, CreateBackupRequest{Kind: domain.BackupKindFull})
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusInProgress, job.Status)

	got, err := env.backups.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusInProgress, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.True(t, env.runner.IsRunning(job.ID))

	_, err = env.backups.Delete(ctx, job.ID)
	assert.Error(t, err)

	close(release)
	require.NoError(t, env.runner.Shutdown(ctx))

	got, err = env.backups.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	path, err := env.backups.ArchivePath(ctx, job.ID)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestShutdownDeadlineFailsRunningJob(t *testing.T) {
	env := setupTestEnv(t)
	env.factory.producers["application"] = &fakeProducer{name: "application", release: make(chan struct{})}

	ctx := context.Background()
	job, err := env.backups.Create(ctx, CreateBackupRequest{Kind: domain.BackupKindFull})
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, env.runner.Shutdown(shutdownCtx), context.DeadlineExceeded)

	got, err := env.store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusFailed, got.Status)
	assert.Contains(t, got.Error, "interrupted")

	_, err = env.backups.Create(ctx, CreateBackupRequest{Kind: domain.BackupKindFull})
	assert.Error(t, err)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateBackupRequest
	}{
		{"unknown service", CreateBackupRequest{Kind: domain.BackupKindConfig, Services: []string{"nginx", "sendmail"}}},
		{"no services", CreateBackupRequest{Kind: domain.BackupKindConfig}},
		{"no databases", CreateBackupRequest{Kind: domain.BackupKindDatabase, Databases: []string{}}},
		{"option-looking database", CreateBackupRequest{Kind: domain.BackupKindDatabase, Databases: []string{"--all-databases"}}},
		{"database with slash", CreateBackupRequest{Kind: domain.BackupKindDatabase, Databases: []string{"../etc"}}},
		{"unknown kind", CreateBackupRequest{Kind: "incremental"}},
		{"long description", CreateBackupRequest{Kind: domain.BackupKindFull, Description: string(make([]byte, 201))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			_, err := env.backups.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), err)

			all, err := env.store.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestGetMarksStaleJobFailed(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	old := domain.NewBackupJob(domain.BackupKindFull, "", nil, false, time.Now().Add(-2*time.Hour))
	require.NoError(t, old.Start())
	require.NoError(t, env.store.Put(ctx, old))

	recent := domain.NewBackupJob(domain.BackupKindFull, "", nil, false, time.Now())
	require.NoError(t, recent.Start())
	require.NoError(t, env.store.Put(ctx, recent))

	got, err := env.backups.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusFailed, got.Status)

	stored, err := env.store.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusFailed, stored.Status)

	got, err = env.backups.Get(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusInProgress, got.Status)
}

func TestGetKeepsJobLockedByAnotherProcess(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	job := domain.NewBackupJob(domain.BackupKindFull, "", nil, false, time.Now().Add(-2*time.Hour))
	require.NoError(t, job.Start())
	require.NoError(t, env.store.Put(ctx, job))

	// A foreground CLI backup holds the lock from its own process.
	cli := flock.New(env.store.LockPath(job.ID))
	locked, err := cli.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	got, err := env.backups.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusInProgress, got.Status)

	stored, err := env.store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusInProgress, stored.Status)

	// The process dies without cleaning up its lock file.
	require.NoError(t, cli.Unlock())

	got, err = env.backups.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusFailed, got.Status)
	assert.NoFileExists(t, env.store.LockPath(job.ID))
}

func TestRunnerHoldsJobLockWhileRunning(t *testing.T) {
	env := setupTestEnv(t)
	release := make(chan struct{})
	env.factory.producers["application"] = &fakeProducer{name: "application", release: release}

	ctx := context.Background()
	job, err := env.backups.Create(ctx, CreateBackupRequest{Kind: domain.BackupKindFull})
	require.NoError(t, err)

	lockPath := env.store.LockPath(job.ID)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(lockPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	other := flock.New(lockPath)
	locked, err := other.TryLock()
	require.NoError(t, err)
	assert.False(t, locked)
	require.NoError(t, other.Close())

	close(release)
	require.NoError(t, env.runner.Shutdown(ctx))

	got, err := env.backups.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusCompleted, got.Status)
	assert.NoFileExists(t, lockPath)
}

func TestFinishKeepsTerminalRecord(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	job := domain.NewBackupJob(domain.BackupKindFull, "", nil, false, time.Now())
	require.NoError(t, job.Start())
	require.NoError(t, job.Complete(time.Now()))
	require.NoError(t, env.store.Put(ctx, job))

	env.runner.finish(job, time.Now(), errors.New("late failure"))

	stored, err := env.store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusCompleted, stored.Status)
	assert.Empty(t, stored.Error)
}

func TestDeleteAndArchivePath(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	job, err := env.backups.Run(ctx, CreateBackupRequest{Kind: domain.BackupKindFull})
	require.NoError(t, err)

	res, err := env.backups.Delete(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, res.MetadataRemoved)
	assert.True(t, res.ArchiveRemoved)

	res, err = env.backups.Delete(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, res.MetadataRemoved)
	assert.False(t, res.ArchiveRemoved)

	_, err = env.backups.ArchivePath(ctx, job.ID)
	assert.Error(t, err)
}

func seedAutomated(t *testing.T, env *testEnv, n int, automated bool, base time.Time) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		job := domain.NewBackupJob(domain.BackupKindDaily, "", nil, automated, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, job.Start())
		require.NoError(t, job.Complete(job.CreatedAt.Add(time.Minute)))
		require.NoError(t, env.store.Put(context.Background(), job))
		require.NoError(t, os.WriteFile(env.store.ArchivePath(job.ID), []byte("tgz"), 0o640))
		ids = append(ids, job.ID)
	}
	return ids
}

func TestCleanupKeepsNewestAutomated(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-48 * time.Hour)

	automated := seedAutomated(t, env, 10, true, base)
	manual := seedAutomated(t, env, 3, false, base.Add(-time.Hour))

	res, err := env.cleanup.Cleanup(ctx, 7)
	require.NoError(t, err)
	assert.ElementsMatch(t, automated[:3], res.Deleted)
	assert.Empty(t, res.Failed)

	for _, id := range automated[:3] {
		_, err := env.store.Get(ctx, id)
		assert.Error(t, err)
		assert.NoFileExists(t, env.store.ArchivePath(id))
	}
	for _, id := range append(automated[3:], manual...) {
		_, err := env.store.Get(ctx, id)
		assert.NoError(t, err)
	}

	res, err = env.cleanup.Cleanup(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, res.Deleted)
}

func TestCleanupCountsScheduledEntryJobs(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	weekly, err := env.schedule.RunScheduled(ctx, domain.BackupKindFull)
	require.NoError(t, err)
	require.NoError(t, env.runner.Shutdown(ctx))
	require.True(t, weekly.Automated)

	dailies := seedAutomated(t, env, 7, true, time.Now().Add(time.Hour))

	res, err := env.cleanup.Cleanup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{weekly.ID}, res.Deleted)
	for _, id := range dailies {
		_, err := env.store.Get(ctx, id)
		assert.NoError(t, err)
	}
}

func TestCleanupRejectsNegativeKeep(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.cleanup.Cleanup(context.Background(), -1)
	assert.True(t, IsValidationError(err))
}

func TestRunDailyBackupAppliesRetention(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.factory.producers["logs"] = &fakeProducer{name: "logs", files: map[string]string{"logs/app.log": "ok"}}
	env.schedule.keepCount = 2

	old := seedAutomated(t, env, 3, true, time.Now().Add(-72*time.Hour))

	res, err := env.schedule.RunDailyBackup(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Job)
	assert.Equal(t, domain.BackupStatusCompleted, res.Job.Status)
	assert.True(t, res.Job.Automated)
	assert.Equal(t, domain.BackupKindDaily, res.Job.Kind)
	require.NotNil(t, res.Cleanup)
	assert.ElementsMatch(t, old[:2], res.Cleanup.Deleted)

	entries := archiveEntries(t, env.store.ArchivePath(res.Job.ID))
	assert.Equal(t, "ok", entries["logs/app.log"])
}

func TestRunDailyBackupSkipsRetentionOnFailure(t *testing.T) {
	env := setupTestEnv(t)
	env.runner.WithArchiver(func(context.Context, string, string) error { return errors.New("no space") })
	env.schedule.keepCount = 0
	seedAutomated(t, env, 2, true, time.Now().Add(-72*time.Hour))

	res, err := env.schedule.RunDailyBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusFailed, res.Job.Status)
	assert.Nil(t, res.Cleanup)

	all, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunDailyBackupLocked(t *testing.T) {
	env := setupTestEnv(t)
	release := make(chan struct{})
	env.factory.producers["app_config"] = &fakeProducer{name: "app_config", release: release}

	done := make(chan error, 1)
	go func() {
		_, err := env.schedule.RunDailyBackup(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return env.runner.Running() == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err := env.schedule.RunDailyBackup(context.Background())
	assert.ErrorIs(t, err, ErrDailyBackupRunning)

	close(release)
	require.NoError(t, <-done)
}

func TestUpdateScheduleValidatesCron(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	sched := domain.DefaultSchedule()
	sched.DBBackup.Cron = "every night"
	err := env.schedule.UpdateSchedule(ctx, sched)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	sched.DBBackup.Cron = "30 1 * * *"
	sched.Enabled = true
	require.NoError(t, env.schedule.UpdateSchedule(ctx, sched))

	got, err := env.schedule.GetSchedule(ctx)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, "30 1 * * *", got.DBBackup.Cron)
}

func TestRunScheduledDatabaseUsesEnumeration(t *testing.T) {
	env := setupTestEnv(t)
	env.factory.databases = []string{"crm"}

	job, err := env.schedule.RunScheduled(context.Background(), domain.BackupKindDatabase)
	require.NoError(t, err)
	assert.True(t, job.Automated)
	assert.Equal(t, []string{"crm"}, job.Options.Databases)
	require.NoError(t, env.runner.Shutdown(context.Background()))
}

func TestRunScheduledDatabaseSkipsUnsupportedNames(t *testing.T) {
	env := setupTestEnv(t)
	env.factory.databases = []string{"crm", "sales db", "ünïcode", "a;b", "shop"}

	job, err := env.schedule.RunScheduled(context.Background(), domain.BackupKindDatabase)
	require.NoError(t, err)
	assert.Equal(t, []string{"crm", "shop"}, job.Options.Databases)
	require.NoError(t, env.runner.Shutdown(context.Background()))

	stored, err := env.store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackupStatusCompleted, stored.Status)
}

func TestRoundTripWithRealConfigProducer(t *testing.T) {
	etc := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(etc, "nginx", "sites"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(etc, "nginx", "nginx.conf"), []byte("worker_processes 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(etc, "nginx", "sites", "default"), []byte("server {}"), 0o644))

	root := t.TempDir()
	store, err := filestore.NewBackupStore(root, zerolog.Nop())
	require.NoError(t, err)
	set := producer.NewSet(producer.Config{
		Services: map[string]string{"nginx": filepath.Join(etc, "nginx")},
	}, system.NewRunner(nil, time.Minute, zerolog.Nop()), zerolog.Nop())

	runner := NewJobRunner(store, set, system.NewAdapter(), 1, zerolog.Nop())
	backups := NewBackupService(store, runner, set, 0, zerolog.Nop())

	job, err := backups.Run(context.Background(), CreateBackupRequest{Kind: domain.BackupKindConfig, Services: []string{"nginx"}})
	require.NoError(t, err)
	require.Equal(t, domain.BackupStatusCompleted, job.Status)

	entries := archiveEntries(t, store.ArchivePath(job.ID))
	assert.Equal(t, "worker_processes 1;", entries["configs/nginx/nginx.conf"])
	assert.Equal(t, "server {}", entries["configs/nginx/sites/default"])
}
