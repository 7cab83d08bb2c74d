package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProcessStatus string

const (
	ProcessStatusRunning ProcessStatus = "running"
	ProcessStatusSuccess ProcessStatus = "success"
	ProcessStatusFailed  ProcessStatus = "failed"
)

// Process records one external command run on behalf of a backup job.
type Process struct {
	ID         int64         `db:"id"`
	CommandID  string        `db:"command_id"`
	BackupID   string        `db:"backup_id"`
	Producer   string        `db:"producer"`
	Command    string        `db:"command"`
	PID        *int          `db:"pid"`
	Status     ProcessStatus `db:"status"`
	Error      *string       `db:"error"`
	ReturnCode *int          `db:"return_code"`
	StartTime  time.Time     `db:"start_time"`
	EndTime    *time.Time    `db:"end_time"`
}

func NewProcess(backupID, producer string, argv []string) *Process {
	return &Process{
		CommandID: uuid.New().String(),
		BackupID:  backupID,
		Producer:  producer,
		Command:   strings.Join(argv, " "),
		Status:    ProcessStatusRunning,
		StartTime: time.Now(),
	}
}

func (p *Process) SetPID(pid int) {
	p.PID = &pid
}

// Complete records the exit of the command. A non-zero return code marks the
// process failed.
func (p *Process) Complete(returnCode int, errorOutput string) {
	now := time.Now()
	p.EndTime = &now
	p.ReturnCode = &returnCode
	if errorOutput != "" {
		p.Error = &errorOutput
	}
	if returnCode == 0 {
		p.Status = ProcessStatusSuccess
	} else {
		p.Status = ProcessStatusFailed
	}
}

func (p *Process) Fail(errorOutput string) {
	now := time.Now()
	p.EndTime = &now
	p.Status = ProcessStatusFailed
	if errorOutput != "" {
		p.Error = &errorOutput
	}
}

func (p *Process) IsComplete() bool {
	return p.Status == ProcessStatusSuccess || p.Status == ProcessStatusFailed
}
