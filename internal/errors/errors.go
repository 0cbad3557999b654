// Package errors provides error types and handling for topicbind.
// It includes custom error types with error codes for programmatic handling.
package errors

import (
	"errors"
	"fmt"
)

// AppError represents an application error with an associated error code.
type AppError struct {
	// Code is an error code string for programmatic handling
	Code string
	// Op is the remote operation that was attempted, if any (e.g. "sns:Subscribe")
	Op string
	// Message is a user-friendly error message
	Message string
	// Cause is the underlying error (for error wrapping)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to work with AppError.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code != "" && e.Code == t.Code
	}
	return false
}

// Predefined error codes.
const (
	ErrCodeRemoteOperation = "REMOTE_OPERATION_FAILED"
	ErrCodeInvalidBinding  = "INVALID_BINDING"
	ErrCodeManifest        = "MANIFEST_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
)

// ErrRemoteOperation creates an error for a failed remote API call. The op
// should name the service operation that was attempted (e.g. "sns:Subscribe")
// and the message should carry the parameters that identify the call.
func ErrRemoteOperation(op, message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeRemoteOperation,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// ErrInvalidBinding creates an error for a malformed topic binding.
func ErrInvalidBinding(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidBinding,
		Message: message,
		Cause:   cause,
	}
}

// ErrManifest creates an error for a manifest that could not be loaded.
func ErrManifest(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeManifest,
		Message: message,
		Cause:   cause,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
		Cause:   cause,
	}
}

// ErrInvalidConfig creates a configuration validation error.
func ErrInvalidConfig(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidConfig,
		Message: message,
		Cause:   cause,
	}
}

// GetErrorCode extracts the error code from an error.
// Returns empty string if the error is not an AppError.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetErrorMessage extracts a user-friendly message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GetErrorDetails extracts detailed error information including the underlying cause.
// Returns the underlying error message if available, otherwise returns the main error message.
func GetErrorDetails(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return appErr.Cause.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
