package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
)

const processColumns = `id, command_id, backup_id, producer, command, pid, status, error, return_code, start_time, end_time`

type processRepository struct {
	db *DB
}

func NewProcessRepository(db *DB) repository.ProcessRepository {
	return &processRepository{db: db}
}

func (r *processRepository) Create(ctx context.Context, process *domain.Process) error {
	query := `
		INSERT INTO process (command_id, backup_id, producer, command, pid, status, error, return_code, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var endTime sql.NullTime
	if process.EndTime != nil {
		endTime = sql.NullTime{Valid: true, Time: *process.EndTime}
	}

	result, err := r.db.ExecContext(ctx, query,
		process.CommandID,
		process.BackupID,
		process.Producer,
		process.Command,
		NullInt(process.PID),
		process.Status,
		NullString(process.Error),
		NullInt(process.ReturnCode),
		process.StartTime,
		endTime,
	)
	if err != nil {
		return fmt.Errorf("failed to create process: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	process.ID = id

	return nil
}

func (r *processRepository) Update(ctx context.Context, process *domain.Process) error {
	query := `
		UPDATE process
		SET pid = ?, status = ?, error = ?, return_code = ?, end_time = ?
		WHERE id = ?
	`

	var endTime sql.NullTime
	if process.EndTime != nil {
		endTime = sql.NullTime{Valid: true, Time: *process.EndTime}
	}

	result, err := r.db.ExecContext(ctx, query,
		NullInt(process.PID),
		process.Status,
		NullString(process.Error),
		NullInt(process.ReturnCode),
		endTime,
		process.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update process: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("process %d: %w", process.ID, repository.ErrNotFound)
	}

	return nil
}

func (r *processRepository) FindByCommandID(ctx context.Context, commandID string) (*domain.Process, error) {
	var process domain.Process
	err := r.db.GetContext(ctx, &process, `SELECT `+processColumns+` FROM process WHERE command_id = ?`, commandID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("process %s: %w", commandID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find process: %w", err)
	}
	return &process, nil
}

func (r *processRepository) List(ctx context.Context, filter repository.ProcessFilter) ([]*domain.Process, error) {
	where, args := processWhere(filter)
	query := `SELECT ` + processColumns + ` FROM process` + where + ` ORDER BY start_time DESC, id DESC`

	if filter.PerPage > 0 {
		query += " LIMIT ?"
		args = append(args, filter.PerPage)
		if filter.Page > 1 {
			query += " OFFSET ?"
			args = append(args, (filter.Page-1)*filter.PerPage)
		}
	}

	processes := []*domain.Process{}
	if err := r.db.SelectContext(ctx, &processes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	return processes, nil
}

func (r *processRepository) Count(ctx context.Context, filter repository.ProcessFilter) (int, error) {
	where, args := processWhere(filter)

	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM process`+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count processes: %w", err)
	}
	return count, nil
}

func processWhere(filter repository.ProcessFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.BackupID != nil {
		clauses = append(clauses, "backup_id = ?")
		args = append(args, *filter.BackupID)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Producer != nil {
		clauses = append(clauses, "producer = ?")
		args = append(args, *filter.Producer)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
