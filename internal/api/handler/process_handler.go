package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buddybox/buddybox/internal/api/dto"
	"github.com/buddybox/buddybox/internal/api/util"
	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
	"github.com/buddybox/buddybox/internal/core/service"
)

var processFilterFields = []string{"status", "producer"}

type ProcessHandler struct {
	processService *service.ProcessService
}

func NewProcessHandler(processService *service.ProcessService) *ProcessHandler {
	return &ProcessHandler{
		processService: processService,
	}
}

// ListForBackup handles GET /backups/processes/:id
// Query parameters: page, per_page, query (e.g. "status|failed")
func (h *ProcessHandler) ListForBackup(c *gin.Context) {
	listFilter, err := util.ParseListFilter(c, processFilterFields)
	if err != nil {
		badRequest(c, err)
		return
	}
	page, perPage := listFilter.Page, listFilter.PerPage

	filter := repository.ProcessFilter{Page: page, PerPage: perPage}
	if v, ok := listFilter.Value("status"); ok {
		status := domain.ProcessStatus(v)
		filter.Status = &status
	}
	if v, ok := listFilter.Value("producer"); ok {
		filter.Producer = &v
	}

	processes, count, err := h.processService.ListForBackup(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response := dto.ProcessListResponse{
		Success:   true,
		Processes: make([]dto.ProcessResponse, len(processes)),
		Pagination: dto.PaginationInfo{
			Total:      count,
			Page:       page,
			PerPage:    perPage,
			TotalPages: (count + perPage - 1) / perPage,
		},
	}
	for i, p := range processes {
		response.Processes[i] = dto.NewProcessResponse(p)
	}

	c.JSON(http.StatusOK, response)
}

// GetByCommandID handles GET /backups/commands/:command_id
func (h *ProcessHandler) GetByCommandID(c *gin.Context) {
	commandID := c.Param("command_id")

	process, err := h.processService.GetProcessByCommandID(c.Request.Context(), commandID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, fmt.Sprintf("Process not found: %s", commandID)))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewProcessResponse(process))
}
