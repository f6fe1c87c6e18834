package errors

import (
	"errors"
	"fmt"
)

// Failure codes exposed to RPC callers
const (
	CodeNotFound    = "NOT_FOUND"
	CodeValidation  = "VALIDATION_FAILED"
	CodePersistence = "PERSISTENCE_FAILED"
	CodeLogic       = "LOGIC_FAILED"
	CodeInternal    = "INTERNAL"
)

// AppError represents an application error with a stable code
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewError creates a new application error
func NewError(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates an error for a missing entity
func NewNotFoundError(message string) *AppError {
	return NewError(CodeNotFound, message)
}

// NewValidationError creates an error for malformed or missing input
func NewValidationError(message string) *AppError {
	return NewError(CodeValidation, message)
}

// NewPersistenceError creates an error for a failed storage operation,
// keeping the underlying cause in Details
func NewPersistenceError(message string, cause error) *AppError {
	err := NewError(CodePersistence, message)
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewLogicError creates an error for an operation that cannot proceed
// (e.g. an empty search term)
func NewLogicError(message string) *AppError {
	return NewError(CodeLogic, message)
}

// CodeOf extracts the failure code from an error chain.
// Unrecognized errors report CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsNotFound reports whether the error chain carries a NOT_FOUND failure
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// MessageOf returns the human-readable message for an error chain
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
