// Package errors provides typed error definitions for docstack.
// This package consolidates error handling and provides structured error types
// that can be used for better error classification and handling.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique identifier for different error types
type ErrorCode string

const (
	// Configuration errors
	ErrConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigParse      ErrorCode = "CONFIG_PARSE"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Container runtime errors
	ErrRuntimeUnavailable ErrorCode = "RUNTIME_UNAVAILABLE"
	ErrServiceNotFound    ErrorCode = "SERVICE_NOT_FOUND"
	ErrComposeFileInvalid ErrorCode = "COMPOSE_FILE_INVALID"
	ErrExecFailed         ErrorCode = "EXEC_FAILED"

	// Stack lifecycle errors
	ErrStackStartFailed ErrorCode = "STACK_START_FAILED"
	ErrStackStopFailed  ErrorCode = "STACK_STOP_FAILED"

	// Backup/restore errors
	ErrBackupFailed     ErrorCode = "BACKUP_FAILED"
	ErrRestoreFailed    ErrorCode = "RESTORE_FAILED"
	ErrManifestNotFound ErrorCode = "MANIFEST_NOT_FOUND"
	ErrDumpEmpty        ErrorCode = "DUMP_EMPTY"

	// State database errors
	ErrDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	ErrDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"

	// Alerting errors
	ErrAlertSinkFailed ErrorCode = "ALERT_SINK_FAILED"

	// Internal errors
	ErrInternal  ErrorCode = "INTERNAL_ERROR"
	ErrTimeout   ErrorCode = "TIMEOUT"
	ErrCancelled ErrorCode = "CANCELLED"
)

// DocstackError represents a structured error with additional context
type DocstackError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *DocstackError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *DocstackError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *DocstackError) WithContext(key string, value interface{}) *DocstackError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause error
func (e *DocstackError) WithCause(cause error) *DocstackError {
	e.Cause = cause
	return e
}

// New creates a new DocstackError
func New(code ErrorCode, message string) *DocstackError {
	return &DocstackError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new DocstackError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DocstackError {
	return &DocstackError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a code and message
func Wrap(err error, code ErrorCode, message string) *DocstackError {
	return &DocstackError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// CodeOf returns the error code of err, or ErrInternal for untyped errors.
func CodeOf(err error) ErrorCode {
	var de *DocstackError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
