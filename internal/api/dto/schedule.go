package dto

import "github.com/buddybox/buddybox/internal/core/domain"

// UpdateScheduleRequest replaces the whole schedule document.
type UpdateScheduleRequest struct {
	Schedule *domain.Schedule `json:"schedule" binding:"required"`
}

type ScheduleResponse struct {
	Success  bool            `json:"success"`
	Schedule domain.Schedule `json:"schedule"`
}
