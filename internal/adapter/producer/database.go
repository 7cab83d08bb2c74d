package producer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buddybox/buddybox/internal/adapter/system"
)

const databasesDir = "databases"

// database dumps one database to databases/<name>.sql, trying PostgreSQL
// first and MySQL second.
type database struct {
	name string
	set  *Set
}

func (p *database) Name() string {
	return "database:" + p.name
}

func (p *database) Produce(ctx context.Context, target Target) error {
	dir := filepath.Join(target.WorkDir, databasesDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	out := filepath.Join(dir, p.name+".sql")

	pgErr := dumpTo(ctx, p.set.runner, target, p.Name(), withArgs(p.set.cfg.PGDumpCommand, p.name), out)
	if pgErr == nil {
		return nil
	}
	p.set.logger.Debug().Err(pgErr).Str("database", p.name).Msg("postgres dump failed, trying mysql")

	myErr := dumpTo(ctx, p.set.runner, target, p.Name(), withArgs(p.set.cfg.MySQLDumpCommand, p.name), out)
	if myErr == nil {
		return nil
	}
	return fmt.Errorf("failed to dump database %s: %w", p.name, errors.Join(pgErr, myErr))
}

// dumpTo runs argv with stdout redirected to path. A failed dump leaves no file.
func dumpTo(ctx context.Context, runner CommandRunner, target Target, producer string, argv []string, path string) (err error) {
	if len(argv) == 0 {
		return errors.New("dump command not configured")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	return runner.Run(ctx, system.Command{
		Argv:     argv,
		BackupID: target.BackupID,
		Producer: producer,
		Stdout:   f,
	})
}

// allDatabases dumps every non-system database of both engines, each with its
// own engine's tool.
type allDatabases struct {
	set *Set
}

func (p *allDatabases) Name() string {
	return "databases"
}

func (p *allDatabases) Produce(ctx context.Context, target Target) error {
	dir := filepath.Join(target.WorkDir, databasesDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	engines := []struct {
		engine string
		lister DatabaseLister
		dump   []string
	}{
		{"postgresql", p.set.postgres, p.set.cfg.PGDumpCommand},
		{"mysql", p.set.mysql, p.set.cfg.MySQLDumpCommand},
	}

	var errs []error
	listed := 0
	for _, e := range engines {
		names, err := e.lister.ListDatabases(ctx)
		if err != nil {
			p.set.logger.Debug().Err(err).Str("engine", e.engine).Msg("database enumeration failed")
			continue
		}
		listed++

		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := filepath.Join(dir, name+".sql")
			producer := "database:" + name
			if err := dumpTo(ctx, p.set.runner, target, producer, withArgs(e.dump, name), out); err != nil {
				errs = append(errs, fmt.Errorf("failed to dump %s database %s: %w", e.engine, name, err))
			}
		}
	}

	if listed == 0 {
		errs = append(errs, errors.New("no database server could be enumerated"))
	}
	return errors.Join(errs...)
}
