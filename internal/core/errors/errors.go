package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("action forbidden for this user")
	ErrUnauthorized       = errors.New("unauthorized")

	// Ticket lifecycle
	ErrInvalidTransition = errors.New("action not allowed from the current ticket status")
	ErrStaleState        = errors.New("ticket was modified concurrently, reload and retry")

	// Referenced entities
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrTechnicianNotFound   = errors.New("technician not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Required transition inputs
	ErrMissingRequiredField = errors.New("required field is missing")
	ErrTechnicianRequired   = fmt.Errorf("%w: technician_id", ErrMissingRequiredField)
	ErrReasonRequired       = fmt.Errorf("%w: reason", ErrMissingRequiredField)
	ErrSummaryRequired      = fmt.Errorf("%w: resolution summary", ErrMissingRequiredField)

	// Ticket creation validation
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title exceeds maximum length of 255 characters")
	ErrDescriptionTooLong = errors.New("description exceeds maximum length of 5000 characters")
	ErrInvalidPriority    = errors.New("invalid ticket priority")
	ErrInvalidCategory    = errors.New("invalid ticket category")
	ErrInvalidStatus      = errors.New("invalid ticket status")
	ErrCreatorRequired    = errors.New("creator ID is required")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 422,
		Details:    details,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
