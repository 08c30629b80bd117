package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeCycleDetected = "CYCLE_DETECTED"
	ErrCodeStore         = "STORE_ERROR"
	ErrCodeOffline       = "OFFLINE"
	ErrCodeInternal      = "INTERNAL"
)

// TriageError is the structured error type shared by the engine, the stores
// and both transports.
type TriageError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *TriageError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *TriageError) Unwrap() error {
	return e.Cause
}

// NewError creates a new TriageError.
func NewError(code, message string) *TriageError {
	return &TriageError{Code: code, Message: message}
}

// NewErrorf creates a new TriageError with a formatted message.
func NewErrorf(code, format string, args ...any) *TriageError {
	return &TriageError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *TriageError) WithCause(err error) *TriageError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *TriageError) WithDetails(details map[string]any) *TriageError {
	e.Details = details
	return e
}

// IsTransient reports whether the error class is retried by the pending
// queue rather than surfaced as a terminal failure.
func (e *TriageError) IsTransient() bool {
	switch e.Code {
	case ErrCodeStore, ErrCodeOffline:
		return true
	default:
		return false
	}
}

// NotFoundf is shorthand for a NOT_FOUND error.
func NotFoundf(format string, args ...any) *TriageError {
	return NewErrorf(ErrCodeNotFound, format, args...)
}

// Invalidf is shorthand for a VALIDATION_ERROR.
func Invalidf(format string, args ...any) *TriageError {
	return NewErrorf(ErrCodeValidation, format, args...)
}

// CodeOf returns the TriageError code carried by err, or "" if err is nil
// and INTERNAL for any untyped error.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var te *TriageError
	if errors.As(err, &te) {
		return te.Code
	}
	return ErrCodeInternal
}

// IsNotFound reports whether err is a NOT_FOUND TriageError.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsValidation reports whether err rejects caller input, including cycles.
func IsValidation(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeValidation || code == ErrCodeCycleDetected
}

// IsTransient reports whether err is a storage or connectivity failure.
func IsTransient(err error) bool {
	var te *TriageError
	if errors.As(err, &te) {
		return te.IsTransient()
	}
	return false
}
