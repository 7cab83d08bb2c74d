package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/adapter/producer"
	"github.com/buddybox/buddybox/internal/adapter/system"
	"github.com/buddybox/buddybox/internal/api/dto"
	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/service"
	"github.com/buddybox/buddybox/internal/infrastructure/filestore"
	"github.com/buddybox/buddybox/internal/infrastructure/sqlite"
)

// testEnv holds all test dependencies
type testEnv struct {
	db     *sqlite.DB
	router *gin.Engine
	store  *filestore.BackupStore
	runner *service.JobRunner
}

// setupTestEnv wires real services over a temporary backup root, an
// in-memory process database, and an nginx config directory. Database tools
// are replaced by "false" so dumps fail fast.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	store, err := filestore.NewBackupStore(root, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create backup store: %v", err)
	}
	schedules, err := filestore.NewScheduleStore(root)
	if err != nil {
		t.Fatalf("failed to create schedule store: %v", err)
	}

	etc := t.TempDir()
	if err := os.MkdirAll(filepath.Join(etc, "nginx"), 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(etc, "nginx", "nginx.conf"), []byte("events {}"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	processRepo := sqlite.NewProcessRepository(db)
	producers := producer.NewSet(producer.Config{
		Services:         map[string]string{"nginx": filepath.Join(etc, "nginx")},
		PGDumpCommand:    []string{"false"},
		PSQLCommand:      []string{"false"},
		MySQLDumpCommand: []string{"false"},
		MySQLCommand:     []string{"false"},
	}, system.NewRunner(processRepo, time.Minute, zerolog.Nop()), zerolog.Nop())

	runner := service.NewJobRunner(store, producers, system.NewAdapter(), 2, zerolog.Nop())
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })

	backupService := service.NewBackupService(store, runner, producers, 0, zerolog.Nop())
	cleanupService := service.NewCleanupService(store, zerolog.Nop())
	scheduleService := service.NewScheduleService(schedules, backupService, cleanupService, root, 7, zerolog.Nop())
	processService := service.NewProcessService(processRepo)

	backupHandler := NewBackupHandler(backupService)
	scheduleHandler := NewScheduleHandler(scheduleService)
	processHandler := NewProcessHandler(processService)
	cleanupHandler := NewCleanupHandler(cleanupService, 2)

	// Setup gin router in test mode
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Register routes without auth middleware
	router.GET("/backups", backupHandler.ListBackups)
	router.POST("/backups/full", backupHandler.CreateFullBackup)
	router.POST("/backups/database", backupHandler.CreateDatabaseBackup)
	router.POST("/backups/config", backupHandler.CreateConfigBackup)
	router.GET("/backups/status/:id", backupHandler.GetStatus)
	router.GET("/backups/download/:id", backupHandler.Download)
	router.DELETE("/backups/:id", backupHandler.DeleteBackup)
	router.GET("/backups/services", backupHandler.ListServices)
	router.GET("/backups/schedule", scheduleHandler.GetSchedule)
	router.PUT("/backups/schedule", scheduleHandler.UpdateSchedule)
	router.GET("/backups/processes/:id", processHandler.ListForBackup)
	router.GET("/backups/commands/:command_id", processHandler.GetByCommandID)
	router.POST("/backups/cleanup", cleanupHandler.Cleanup)

	return &testEnv{
		db:     db,
		router: router,
		store:  store,
		runner: runner,
	}
}

func (env *testEnv) now() time.Time {
	return time.Now().UTC()
}

// waitForJobs blocks until every submitted backup has finished.
func (env *testEnv) waitForJobs(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := env.runner.Shutdown(ctx); err != nil {
		t.Fatalf("backups did not finish: %v", err)
	}
}

// seedAutomated stores completed automated backups, oldest first.
func (env *testEnv) seedAutomated(t *testing.T, n int) []string {
	t.Helper()

	base := time.Date(2025, 11, 1, 2, 0, 0, 0, time.UTC)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		job := domain.NewBackupJob(domain.BackupKindDaily, "", nil, true, base.Add(time.Duration(i)*24*time.Hour))
		if err := job.Start(); err != nil {
			t.Fatal(err)
		}
		if err := job.Complete(job.CreatedAt.Add(time.Minute)); err != nil {
			t.Fatal(err)
		}
		if err := env.store.Put(context.Background(), job); err != nil {
			t.Fatalf("failed to seed backup: %v", err)
		}
		if err := os.WriteFile(env.store.ArchivePath(job.ID), []byte("archive"), 0o640); err != nil {
			t.Fatalf("failed to seed archive: %v", err)
		}
		ids = append(ids, job.ID)
	}
	return ids
}

// makeRequest performs a request with an optional JSON body
func (env *testEnv) makeRequest(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, path, nil)
	} else {
		req, err = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// parseResponse decodes the response body into v
func parseResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var resp T
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v\nBody: %s", err, w.Body.String())
	}
	return resp
}

// parseErrorResponse parses the response body into ErrorResponse
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	return parseResponse[dto.ErrorResponse](t, w)
}
