// Package producer implements the units of content a backup job collects:
// service configuration, database dumps, application data, and the pieces of
// the daily automated backup. Every external tool is invoked through an
// argument vector.
package producer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/adapter/system"
)

// Target is where a producer writes its output.
type Target struct {
	BackupID string
	WorkDir  string
}

// Producer writes one unit of backup content into a working directory.
// An error means the unit is missing or incomplete; the caller decides
// whether that is fatal.
type Producer interface {
	Name() string
	Produce(ctx context.Context, target Target) error
}

// CommandRunner runs one external command.
type CommandRunner interface {
	Run(ctx context.Context, cmd system.Command) error
}

// ErrUnknownService is returned for a service with no configured config path.
var ErrUnknownService = errors.New("unknown service")

type Config struct {
	// Services maps a service name to the directory holding its configuration.
	Services map[string]string

	// AppPaths are copied by the application-data producer.
	AppPaths []string
	// AppDir is the application's installation directory; relative
	// AppConfigFiles and LogsDir are resolved against it.
	AppDir         string
	AppConfigFiles []string
	LogsDir        string

	PGDumpCommand    []string
	PSQLCommand      []string
	MySQLDumpCommand []string
	MySQLCommand     []string
	PostgresDSN      string
}

// Set builds producers from one shared configuration.
type Set struct {
	cfg      Config
	runner   CommandRunner
	postgres DatabaseLister
	mysql    DatabaseLister
	logger   zerolog.Logger
}

func NewSet(cfg Config, runner CommandRunner, logger zerolog.Logger) *Set {
	logger = logger.With().Str("component", "producer").Logger()

	var pg DatabaseLister
	if cfg.PostgresDSN != "" {
		pg = NewPostgresLister(cfg.PostgresDSN)
	} else {
		pg = NewCommandLister(runner, withArgs(cfg.PSQLCommand, "-At", "-c", postgresListQuery), postgresSystemDatabases)
	}

	return &Set{
		cfg:      cfg,
		runner:   runner,
		postgres: pg,
		mysql:    NewCommandLister(runner, withArgs(cfg.MySQLCommand, "-N", "-B", "-e", "SHOW DATABASES"), mysqlSystemDatabases),
		logger:   logger,
	}
}

// WithListers replaces the database enumerators.
func (s *Set) WithListers(postgres, mysql DatabaseLister) *Set {
	s.postgres = postgres
	s.mysql = mysql
	return s
}

func (s *Set) KnownService(name string) bool {
	_, ok := s.cfg.Services[name]
	return ok
}

// ServiceNames returns the known services in sorted order.
func (s *Set) ServiceNames() []string {
	names := make([]string, 0, len(s.cfg.Services))
	for name := range s.cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Set) Config(service string) Producer {
	return &serviceConfig{
		service: service,
		path:    s.cfg.Services[service],
		known:   s.KnownService(service),
		runner:  s.runner,
	}
}

func (s *Set) AllConfigs() Producer {
	return &allConfigs{set: s}
}

func (s *Set) Database(name string) Producer {
	return &database{name: name, set: s}
}

func (s *Set) AllDatabases() Producer {
	return &allDatabases{set: s}
}

func (s *Set) AppData() Producer {
	paths := make([]string, 0, len(s.cfg.AppPaths)+1)
	if s.cfg.AppDir != "" {
		paths = append(paths, s.cfg.AppDir)
	}
	paths = append(paths, s.cfg.AppPaths...)
	return &copyPaths{name: "application", subdir: "application", paths: dedupe(paths), runner: s.runner}
}

// ListDatabases returns every PostgreSQL and MySQL database that would be
// dumped by a full backup.
func (s *Set) ListDatabases(ctx context.Context) ([]string, error) {
	pg, pgErr := s.postgres.ListDatabases(ctx)
	my, myErr := s.mysql.ListDatabases(ctx)
	if pgErr != nil && myErr != nil {
		return nil, errors.Join(pgErr, myErr)
	}
	return dedupe(append(pg, my...)), nil
}

// copyInto runs "cp -a src dst/<basename>" after making sure dst exists.
func copyInto(ctx context.Context, runner CommandRunner, target Target, producer, src, dstDir, name string) error {
	if err := os.MkdirAll(dstDir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dstDir, err)
	}
	return runner.Run(ctx, system.Command{
		Argv:     []string{"cp", "-a", "--", src, filepath.Join(dstDir, name)},
		BackupID: target.BackupID,
		Producer: producer,
	})
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func withArgs(base []string, args ...string) []string {
	out := make([]string, 0, len(base)+len(args))
	out = append(out, base...)
	return append(out, args...)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func (s *Set) resolve(path string) string {
	if filepath.IsAbs(path) || s.cfg.AppDir == "" {
		return path
	}
	return filepath.Join(s.cfg.AppDir, path)
}
