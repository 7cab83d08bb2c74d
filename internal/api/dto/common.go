package dto

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
}

func NewErrorResponse(code int, message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: message, Code: code}
}

// MessageResponse acknowledges a request that returns no data.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PaginationInfo struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}
