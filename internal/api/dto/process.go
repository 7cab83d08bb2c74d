package dto

import (
	"time"

	"github.com/buddybox/buddybox/internal/core/domain"
)

// ProcessResponse represents one external command run for a backup
type ProcessResponse struct {
	ID         int64      `json:"id"`
	CommandID  string     `json:"command_id"`
	Producer   string     `json:"producer"`
	Command    string     `json:"command"`
	PID        *int       `json:"pid,omitempty"`
	Status     string     `json:"status"`
	Error      *string    `json:"error,omitempty"`
	ReturnCode *int       `json:"return_code,omitempty"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
}

type ProcessListResponse struct {
	Success    bool              `json:"success"`
	Processes  []ProcessResponse `json:"processes"`
	Pagination PaginationInfo    `json:"pagination"`
}

func NewProcessResponse(p *domain.Process) ProcessResponse {
	return ProcessResponse{
		ID:         p.ID,
		CommandID:  p.CommandID,
		Producer:   p.Producer,
		Command:    p.Command,
		PID:        p.PID,
		Status:     string(p.Status),
		Error:      p.Error,
		ReturnCode: p.ReturnCode,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
	}
}
