package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buddybox/buddybox/internal/api/dto"
	"github.com/buddybox/buddybox/internal/core/service"
)

type ScheduleHandler struct {
	scheduleService *service.ScheduleService
}

func NewScheduleHandler(scheduleService *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
	}
}

// GetSchedule handles GET /backups/schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.scheduleService.GetSchedule(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ScheduleResponse{Success: true, Schedule: schedule})
}

// UpdateSchedule handles PUT /backups/schedule
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.scheduleService.UpdateSchedule(c.Request.Context(), *req.Schedule); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Success: true, Message: "Backup schedule updated successfully"})
}
