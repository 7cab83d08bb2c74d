package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buddybox/buddybox/internal/api/dto"
	"github.com/buddybox/buddybox/internal/core/service"
)

type CleanupHandler struct {
	cleanupService   *service.CleanupService
	defaultKeepCount int
}

func NewCleanupHandler(cleanupService *service.CleanupService, defaultKeepCount int) *CleanupHandler {
	return &CleanupHandler{
		cleanupService:   cleanupService,
		defaultKeepCount: defaultKeepCount,
	}
}

// Cleanup handles POST /backups/cleanup
func (h *CleanupHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err)
			return
		}
	}

	keep := h.defaultKeepCount
	if req.KeepCount != nil {
		keep = *req.KeepCount
	}

	result, err := h.cleanupService.Cleanup(c.Request.Context(), keep)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CleanupResponse{
		Success: true,
		Deleted: result.Deleted,
		Failed:  result.Failed,
	})
}
