package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound      = new(ErrCodeNotFound, "resource not found")
	ErrValidation    = new(ErrCodeValidation, "validation error")
	ErrConfiguration = new(ErrCodeConfiguration, "configuration error")
	ErrDataGap       = new(ErrCodeDataGap, "data gap")
	ErrSystem        = new(ErrCodeSystemError, "system error")
)

const (
	ErrCodeNotFound      = "not_found"
	ErrCodeValidation    = "validation_error"
	ErrCodeConfiguration = "configuration_error"
	ErrCodeDataGap       = "data_gap"
	ErrCodeSystemError   = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error. Validation errors
// are fatal for a single invoice but must not crash the caller.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConfiguration checks if an error is a configuration error. Configuration
// errors (unrecognized package type, malformed tier table) abort the
// calculation rather than guess.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsDataGap checks if an error is a data gap. Data gaps are recoverable:
// callers fall back to a coarser calculation and continue.
func IsDataGap(err error) bool {
	return errors.Is(err, ErrDataGap)
}
