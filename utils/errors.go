package utils

import (
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceErrorWithStatus creates a service error with specific HTTP status
func NewServiceErrorWithStatus(code, message string, statusCode int) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewServiceErrorWithCause creates a service error that wraps another error
func NewServiceErrorWithCause(code, message string, cause error) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// IsServiceError checks if an error is a service error
func IsServiceError(err error) bool {
	_, ok := err.(ServiceError)
	return ok
}

// GetServiceError extracts a ServiceError from an error
func GetServiceError(err error) (ServiceError, bool) {
	if serviceErr, ok := err.(ServiceError); ok {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// Common service error constructors
func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       ErrCodeAuthRequired,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) error {
	return ServiceError{
		Code:       ErrCodePermissionDenied,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewBadRequestError(message string) error {
	return ServiceError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConflictError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// Business logic specific errors
func NewSessionNotFoundError() error {
	return NewNotFoundError("Emergency session")
}

func NewUserNotFoundError() error {
	return NewNotFoundError("User")
}

func NewHazardNotFoundError() error {
	return NewNotFoundError("Hazard report")
}

func NewActiveSessionExistsError() error {
	return NewConflictError(ErrCodeSessionActive, "An emergency session is already active for this user")
}

func NewRecordingActiveError() error {
	return NewConflictError(ErrCodeRecordingActive, "An audio recording is already in progress")
}

func NewNoActiveRecordingError() error {
	return NewConflictError(ErrCodeNoRecording, "No audio recording is in progress")
}

func NewInvalidTransitionError(from, to string) error {
	return ServiceError{
		Code:       ErrCodeInvalidTransition,
		Message:    fmt.Sprintf("Cannot transition session from %s to %s", from, to),
		StatusCode: http.StatusConflict,
	}
}

func NewStorageError(message string, cause error) error {
	return ServiceError{
		Code:       ErrCodeStorage,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewUploadError(message string, cause error) error {
	return ServiceError{
		Code:       ErrCodeUploadFailed,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
	}
}

func NewLocationServiceError(message string) error {
	return NewServiceError(ErrCodeLocationService, message)
}

func NewNotificationServiceError(message string) error {
	return NewServiceError(ErrCodeNotificationService, message)
}

// Error handling helpers
func WrapError(err error, code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StatusCode: http.StatusInternalServerError,
	}
}

func WrapDatabaseError(err error, operation string) error {
	return NewDatabaseError(operation, err)
}

// Error code constants
const (
	ErrCodeAuthRequired        = "AUTH_REQUIRED"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeSessionActive       = "SESSION_ALREADY_ACTIVE"
	ErrCodeRecordingActive     = "RECORDING_ACTIVE"
	ErrCodeNoRecording         = "NO_ACTIVE_RECORDING"
	ErrCodeInvalidTransition   = "INVALID_STATUS_TRANSITION"
	ErrCodeStorage             = "STORAGE_ERROR"
	ErrCodeUploadFailed        = "UPLOAD_FAILED"
	ErrCodeDatabase            = "DATABASE_ERROR"
	ErrCodeLocationService     = "LOCATION_SERVICE_ERROR"
	ErrCodeNotificationService = "NOTIFICATION_SERVICE_ERROR"
)

// Common error instances
var (
	ErrServiceUnavailable = NewServiceError("SERVICE_UNAVAILABLE", "Service is temporarily unavailable")
	ErrInvalidRequest     = NewBadRequestError("Invalid request")
	ErrAccessDenied       = NewForbiddenError("Access denied")
)
