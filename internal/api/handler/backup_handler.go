package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buddybox/buddybox/internal/api/dto"
	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/service"
)

type BackupHandler struct {
	backupService *service.BackupService
}

func NewBackupHandler(backupService *service.BackupService) *BackupHandler {
	return &BackupHandler{
		backupService: backupService,
	}
}

// CreateFullBackup handles POST /backups/full
func (h *BackupHandler) CreateFullBackup(c *gin.Context) {
	var req dto.CreateFullBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.create(c, service.CreateBackupRequest{
		Kind:             domain.BackupKindFull,
		Description:      req.Description,
		IncludeDatabases: req.IncludeDatabases,
		IncludeConfigs:   req.IncludeConfigs,
	}, "Full backup started")
}

// CreateDatabaseBackup handles POST /backups/database
func (h *BackupHandler) CreateDatabaseBackup(c *gin.Context) {
	var req dto.CreateDatabaseBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.create(c, service.CreateBackupRequest{
		Kind:        domain.BackupKindDatabase,
		Description: req.Description,
		Databases:   req.Databases,
	}, "Database backup started")
}

// CreateConfigBackup handles POST /backups/config
func (h *BackupHandler) CreateConfigBackup(c *gin.Context) {
	var req dto.CreateConfigBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.create(c, service.CreateBackupRequest{
		Kind:        domain.BackupKindConfig,
		Description: req.Description,
		Services:    req.Services,
	}, "Configuration backup started")
}

func (h *BackupHandler) create(c *gin.Context, req service.CreateBackupRequest, message string) {
	job, err := h.backupService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.CreateBackupResponse{
		Success:  true,
		BackupID: job.ID,
		Message:  message,
	})
}

// ListBackups handles GET /backups
func (h *BackupHandler) ListBackups(c *gin.Context) {
	backups, err := h.backupService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if backups == nil {
		backups = []*domain.BackupJob{}
	}

	c.JSON(http.StatusOK, dto.BackupListResponse{Success: true, Backups: backups})
}

// GetStatus handles GET /backups/status/:id
func (h *BackupHandler) GetStatus(c *gin.Context) {
	job, err := h.backupService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BackupStatusResponse{Success: true, Status: job})
}

// Download handles GET /backups/download/:id
func (h *BackupHandler) Download(c *gin.Context) {
	id := c.Param("id")
	path, err := h.backupService.ArchivePath(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.FileAttachment(path, fmt.Sprintf("backup-%s.tar.gz", id))
}

// DeleteBackup handles DELETE /backups/:id
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	res, err := h.backupService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Backup deleted successfully"
	if !res.MetadataRemoved && !res.ArchiveRemoved {
		message = "Backup did not exist"
	}
	c.JSON(http.StatusOK, dto.DeleteBackupResponse{Success: true, Message: message, Removed: res})
}

// ListServices handles GET /backups/services
func (h *BackupHandler) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ServiceListResponse{Success: true, Services: h.backupService.Services()})
}

// ListDatabases handles GET /backups/databases
func (h *BackupHandler) ListDatabases(c *gin.Context) {
	names, err := h.backupService.Databases(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, dto.DatabaseListResponse{Success: true, Databases: names})
}
