package producer

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/buddybox/buddybox/internal/adapter/system"
	"github.com/buddybox/buddybox/internal/core/domain"
)

const postgresListQuery = "SELECT datname FROM pg_database WHERE NOT datistemplate ORDER BY datname"

var (
	postgresSystemDatabases = []string{"postgres", "template0", "template1"}
	mysqlSystemDatabases    = []string{"information_schema", "performance_schema", "mysql", "sys"}
)

// DatabaseLister enumerates the user databases of one engine.
type DatabaseLister interface {
	ListDatabases(ctx context.Context) ([]string, error)
}

// PostgresLister queries pg_database over a direct connection.
type PostgresLister struct {
	dsn string
}

func NewPostgresLister(dsn string) *PostgresLister {
	return &PostgresLister{dsn: dsn}
}

func (l *PostgresLister) ListDatabases(ctx context.Context) ([]string, error) {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	rows, err := conn.Query(ctx, postgresListQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list postgres databases: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read postgres databases: %w", err)
	}
	return filterNames(names, postgresSystemDatabases), nil
}

// CommandLister runs a client tool that prints one database name per line.
type CommandLister struct {
	runner  CommandRunner
	argv    []string
	exclude []string
}

func NewCommandLister(runner CommandRunner, argv []string, exclude []string) *CommandLister {
	return &CommandLister{runner: runner, argv: argv, exclude: exclude}
}

func (l *CommandLister) ListDatabases(ctx context.Context) ([]string, error) {
	var out bytes.Buffer
	err := l.runner.Run(ctx, system.Command{
		Argv:     l.argv,
		Producer: "enumerate",
		Stdout:   &out,
	})
	if err != nil {
		return nil, err
	}
	return parseNames(out.String(), l.exclude), nil
}

func parseNames(output string, exclude []string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return filterNames(names, exclude)
}

func filterNames(names, exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !skip[n] && domain.ValidDatabaseName(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return dedupe(out)
}
