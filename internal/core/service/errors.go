package service

import (
	"errors"
	"net/http"
)

// ServiceError carries the HTTP status a failure should be reported with.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func NewServiceError(code int, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

func NewValidationError(message string) *ServiceError {
	return NewServiceError(http.StatusBadRequest, message)
}

// ErrDailyBackupRunning is returned when another daily backup holds the lock.
var ErrDailyBackupRunning = errors.New("daily backup already running")

// IsValidationError reports whether err is a client input error.
func IsValidationError(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Code == http.StatusBadRequest
}
