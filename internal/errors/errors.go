package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInvalidDate      = "INVALID_DATE"
	ErrCodePastDate         = "PAST_DATE"
	ErrCodeCapacityExceeded = "CAPACITY_EXCEEDED"
	ErrCodeNoAvailableDay   = "NO_AVAILABLE_DAY"
	ErrCodeSchedulingFailed = "SCHEDULING_FAILED"
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
	ErrCodeQuotaExhausted   = "QUOTA_EXHAUSTED"
	ErrCodeNoTriesRemaining = "NO_TRIES_REMAINING"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "CAPACITY_EXCEEDED")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeForbidden,
		Message: message,
		Status:  403,
	}
}

// NewInvalidDateError reports a malformed calendar day.
func NewInvalidDateError(value string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidDate,
		Message: fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", value),
		Status:  400,
		Err:     err,
	}
}

// NewPastDateError reports an explicit schedule request before today.
func NewPastDateError(day, today string) *AppError {
	return &AppError{
		Code:    ErrCodePastDate,
		Message: fmt.Sprintf("cannot schedule on %s: date is before today (%s)", day, today),
		Status:  400,
	}
}

// NewCapacityExceededError reports a day bucket that is already full.
func NewCapacityExceededError(day string, max int) *AppError {
	return &AppError{
		Code:    ErrCodeCapacityExceeded,
		Message: fmt.Sprintf("puzzle for %s already has %d pairs", day, max),
		Status:  409,
	}
}

func NewNoAvailableDayError(from string, scanned int) *AppError {
	return &AppError{
		Code:    ErrCodeNoAvailableDay,
		Message: fmt.Sprintf("no day with spare capacity within %d days of %s", scanned, from),
		Status:  409,
	}
}

func NewSchedulingFailedError(attempts int, err error) *AppError {
	return &AppError{
		Code:    ErrCodeSchedulingFailed,
		Message: fmt.Sprintf("could not place pair after %d attempts", attempts),
		Status:  409,
		Err:     err,
	}
}

func NewSessionNotFoundError(userID string) *AppError {
	return &AppError{
		Code:    ErrCodeSessionNotFound,
		Message: fmt.Sprintf("player session not found: %s", userID),
		Status:  404,
	}
}

// NewGenerationFailedError wraps a failure of the external creative pipeline.
func NewGenerationFailedError(step string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeGenerationFailed,
		Message: fmt.Sprintf("%s step failed", step),
		Status:  502,
		Err:     err,
	}
}

// NewQuotaExhaustedError is the retryable "try again later" condition.
func NewQuotaExhaustedError() *AppError {
	return &AppError{
		Code:    ErrCodeQuotaExhausted,
		Message: "image generation quota reached, try again later",
		Status:  429,
	}
}

func NewNoTriesRemainingError() *AppError {
	return &AppError{
		Code:    ErrCodeNoTriesRemaining,
		Message: "no tries remaining today",
		Status:  409,
	}
}
