package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buddybox/buddybox/internal/api/dto"
	"github.com/buddybox/buddybox/internal/core/repository"
	"github.com/buddybox/buddybox/internal/core/service"
)

// respondError maps a service error to its HTTP status.
func respondError(c *gin.Context, err error) {
	var svcErr *service.ServiceError
	switch {
	case errors.As(err, &svcErr):
		c.JSON(svcErr.Code, dto.NewErrorResponse(svcErr.Code, svcErr.Message))
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "Backup not found"))
	case errors.Is(err, service.ErrDailyBackupRunning):
		c.JSON(http.StatusConflict, dto.NewErrorResponse(http.StatusConflict, err.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, err.Error()))
}
