package dto

import (
	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
)

// CreateFullBackupRequest starts a full system backup. Both includes
// default to true.
type CreateFullBackupRequest struct {
	Description      string `json:"description" binding:"max=200"`
	IncludeDatabases *bool  `json:"includeDatabases"`
	IncludeConfigs   *bool  `json:"includeConfigs"`
}

type CreateDatabaseBackupRequest struct {
	Databases   []string `json:"databases" binding:"required,min=1,dive,required"`
	Description string   `json:"description" binding:"max=200"`
}

type CreateConfigBackupRequest struct {
	Services    []string `json:"services" binding:"required,min=1,dive,required"`
	Description string   `json:"description" binding:"max=200"`
}

// CreateBackupResponse is returned with 202 Accepted once the job is queued.
type CreateBackupResponse struct {
	Success  bool   `json:"success"`
	BackupID string `json:"backupId"`
	Message  string `json:"message"`
}

type BackupListResponse struct {
	Success bool                `json:"success"`
	Backups []*domain.BackupJob `json:"backups"`
}

type BackupStatusResponse struct {
	Success bool              `json:"success"`
	Status  *domain.BackupJob `json:"status"`
}

type DeleteBackupResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Removed repository.DeleteResult `json:"removed"`
}

type ServiceListResponse struct {
	Success  bool     `json:"success"`
	Services []string `json:"services"`
}

type DatabaseListResponse struct {
	Success   bool     `json:"success"`
	Databases []string `json:"databases"`
}
