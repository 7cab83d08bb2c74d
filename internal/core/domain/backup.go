package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BackupKind string

const (
	BackupKindFull     BackupKind = "full"
	BackupKindDatabase BackupKind = "database"
	BackupKindConfig   BackupKind = "config"
	BackupKindDaily    BackupKind = "daily_auto"
)

type BackupStatus string

const (
	BackupStatusPending    BackupStatus = "pending"
	BackupStatusInProgress BackupStatus = "in_progress"
	BackupStatusCompleted  BackupStatus = "completed"
	BackupStatusFailed     BackupStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s BackupStatus) IsTerminal() bool {
	return s == BackupStatusCompleted || s == BackupStatusFailed
}

// ErrJobTerminal is returned when a transition is attempted on a finished job.
var ErrJobTerminal = errors.New("backup job already finished")

// BackupOptions carries the kind-specific parameters of a job.
type BackupOptions struct {
	IncludeDatabases *bool    `json:"includeDatabases,omitempty"`
	IncludeConfigs   *bool    `json:"includeConfigs,omitempty"`
	Databases        []string `json:"databases,omitempty"`
	Services         []string `json:"services,omitempty"`
}

// WantsDatabases defaults to true when the option was not given.
func (o *BackupOptions) WantsDatabases() bool {
	return o == nil || o.IncludeDatabases == nil || *o.IncludeDatabases
}

func (o *BackupOptions) WantsConfigs() bool {
	return o == nil || o.IncludeConfigs == nil || *o.IncludeConfigs
}

// BackupJob is the durable record of one backup attempt. Its JSON form is the
// on-disk metadata document.
type BackupJob struct {
	ID          string         `json:"id"`
	Kind        BackupKind     `json:"type"`
	Description string         `json:"description"`
	Status      BackupStatus   `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Error       string         `json:"error,omitempty"`
	Options     *BackupOptions `json:"options,omitempty"`
	Automated   bool           `json:"automated,omitempty"`

	// Size of the archive in bytes, filled in when listing.
	Size int64 `json:"size,omitempty"`
}

func NewBackupJob(kind BackupKind, description string, options *BackupOptions, automated bool, now time.Time) *BackupJob {
	if description == "" {
		description = DefaultDescription(kind, now)
	}
	return &BackupJob{
		ID:          uuid.New().String(),
		Kind:        kind,
		Description: description,
		Status:      BackupStatusPending,
		CreatedAt:   now,
		Options:     options,
		Automated:   automated,
	}
}

func DefaultDescription(kind BackupKind, now time.Time) string {
	switch kind {
	case BackupKindFull:
		return "Full system backup"
	case BackupKindDatabase:
		return "Database backup"
	case BackupKindConfig:
		return "Configuration backup"
	case BackupKindDaily:
		return "Automated daily backup - " + now.Format("2006-01-02")
	default:
		return string(kind) + " backup"
	}
}

func (j *BackupJob) Start() error {
	if j.Status != BackupStatusPending {
		return fmt.Errorf("cannot start job %s in status %s", j.ID, j.Status)
	}
	j.Status = BackupStatusInProgress
	return nil
}

func (j *BackupJob) Complete(at time.Time) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	j.Status = BackupStatusCompleted
	j.CompletedAt = &at
	j.Error = ""
	return nil
}

func (j *BackupJob) Fail(at time.Time, reason string) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	j.Status = BackupStatusFailed
	j.CompletedAt = &at
	j.Error = reason
	return nil
}

// Clone returns a deep copy, so callers can hand records across goroutines.
func (j *BackupJob) Clone() *BackupJob {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Options != nil {
		o := *j.Options
		o.Databases = append([]string(nil), j.Options.Databases...)
		o.Services = append([]string(nil), j.Options.Services...)
		if j.Options.IncludeDatabases != nil {
			v := *j.Options.IncludeDatabases
			o.IncludeDatabases = &v
		}
		if j.Options.IncludeConfigs != nil {
			v := *j.Options.IncludeConfigs
			o.IncludeConfigs = &v
		}
		c.Options = &o
	}
	return &c
}
