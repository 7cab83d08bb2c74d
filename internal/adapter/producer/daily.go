package producer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

const (
	appConfigDir = "config"
	schemasDir   = "database_schemas"
	logsDir      = "logs"

	recentLogWindow = 24 * time.Hour
)

// AppConfig copies the application's own configuration files to config/.
func (s *Set) AppConfig() Producer {
	paths := make([]string, 0, len(s.cfg.AppConfigFiles))
	for _, f := range s.cfg.AppConfigFiles {
		paths = append(paths, s.resolve(f))
	}
	return &copyPaths{name: "app_config", subdir: appConfigDir, paths: dedupe(paths), runner: s.runner}
}

func (s *Set) Schemas() Producer {
	return &schemas{set: s}
}

func (s *Set) Logs() Producer {
	return &recentLogs{set: s, window: recentLogWindow}
}

type schemaInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Databases []string  `json:"databases"`
	Failed    []string  `json:"failed,omitempty"`
}

// schemas dumps the schema (no data) of every PostgreSQL database and writes
// a schema_info.json manifest next to the dumps.
type schemas struct {
	set *Set
}

func (p *schemas) Name() string {
	return "schemas"
}

func (p *schemas) Produce(ctx context.Context, target Target) error {
	dir := filepath.Join(target.WorkDir, schemasDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	info := schemaInfo{Timestamp: time.Now().UTC(), Databases: []string{}}

	var errs []error
	names, err := p.set.postgres.ListDatabases(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to enumerate databases: %w", err))
	}
	for _, name := range names {
		argv := withArgs(p.set.cfg.PGDumpCommand, "--schema-only", name)
		if err := dumpTo(ctx, p.set.runner, target, "schema:"+name, argv, filepath.Join(dir, name+".sql")); err != nil {
			info.Failed = append(info.Failed, name)
			errs = append(errs, fmt.Errorf("failed to dump schema of %s: %w", name, err))
			continue
		}
		info.Databases = append(info.Databases, name)
	}

	if err := writeJSON(filepath.Join(dir, "schema_info.json"), info); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type logSummary struct {
	Timestamp  time.Time `json:"timestamp"`
	BackupID   string    `json:"backupId"`
	WindowFrom time.Time `json:"windowFrom"`
	Files      []string  `json:"files"`
}

// recentLogs copies log files modified within the window to logs/ and
// writes logs/backup_summary.json.
type recentLogs struct {
	set    *Set
	window time.Duration
}

func (p *recentLogs) Name() string {
	return "logs"
}

func (p *recentLogs) Produce(ctx context.Context, target Target) error {
	dst := filepath.Join(target.WorkDir, logsDir)
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	now := time.Now().UTC()
	summary := logSummary{
		Timestamp:  now,
		BackupID:   target.BackupID,
		WindowFrom: now.Add(-p.window),
		Files:      []string{},
	}

	var errs []error
	src := p.set.resolve(p.set.cfg.LogsDir)
	if src != "" {
		entries, err := os.ReadDir(src)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", src, err))
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().Before(summary.WindowFrom) {
				continue
			}
			if err := copyInto(ctx, p.set.runner, target, p.Name(), filepath.Join(src, entry.Name()), dst, entry.Name()); err != nil {
				errs = append(errs, err)
				continue
			}
			summary.Files = append(summary.Files, entry.Name())
		}
	}

	if err := writeJSON(filepath.Join(dst, "backup_summary.json"), summary); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
