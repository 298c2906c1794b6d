// Package errors provides structured error types for patrolgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// Every package exposes its failure modes as sentinel *Error values
// (bitmap.ErrOutOfBounds, guard.ErrCoverageImpossible, ...). Call sites wrap
// them with fmt.Errorf("...: %w", sentinel), so both the standard library
// errors.Is(err, sentinel) and the code-based [Is] match.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "partitions must be >= 1, got %d", n)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read map %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidMap    Code = "INVALID_MAP"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidOption Code = "INVALID_OPTION"

	// Domain failures
	ErrCodeOutOfBounds        Code = "OUT_OF_BOUNDS"
	ErrCodeCacheCorruption    Code = "CACHE_CORRUPTION"
	ErrCodeCoverageImpossible Code = "COVERAGE_IMPOSSIBLE"
	ErrCodePartitioningFailed Code = "PARTITIONING_FAILED"
	ErrCodeDisconnected       Code = "DISCONNECTED_DISTANCE"
	ErrCodeTooManyVertices    Code = "TOO_MANY_VERTICES"
	ErrCodeInvalidGraph       Code = "INVALID_GRAPH"
	ErrCodeWeightEvaluation   Code = "WEIGHT_EVALUATION"
	ErrCodeFileNotFound       Code = "FILE_NOT_FOUND"
	ErrCodeCacheUnavailable   Code = "CACHE_UNAVAILABLE"
	ErrCodeIO                 Code = "IO_ERROR"
	ErrCodeCancelled          Code = "CANCELLED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any *Error in err's chain carries the given code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
