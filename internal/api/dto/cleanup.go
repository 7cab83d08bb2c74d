package dto

// CleanupRequest runs the retention policy. KeepCount defaults to the
// configured daily_keep_count.
type CleanupRequest struct {
	KeepCount *int `json:"keepCount" binding:"omitempty,min=0"`
}

type CleanupResponse struct {
	Success bool              `json:"success"`
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}
