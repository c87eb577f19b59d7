// Package errors provides structured error types for pencilgraph.
//
// Errors carry a machine-readable [Code] so that the CLI, the HTTP surface
// and library callers can branch on the category of a failure without
// string matching, while still wrapping the underlying cause.
//
// # Error Codes
//
// Codes follow a coarse naming convention:
//   - INVALID_*: rejected input (names, patterns, documents)
//   - NOT_FOUND / *_NOT_FOUND: missing nodes, sockets, curves, files
//   - structural codes (DUPLICATE_NAME, INCOMPATIBLE_LINK, SCHEMA_MISMATCH)
//   - engine codes (ENGINE_UNAVAILABLE, ENGINE_FAILED, TIMEOUT)
//   - INTERNAL_ERROR for anything unexpected
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPattern, "bad override pattern %q", p)
//	if errors.Is(err, errors.ErrCodeInvalidPattern) {
//	    // reject the entry
//	}
//
//	err = errors.Wrap(errors.ErrCodeInvalidDocument, cause, "decode %s", path)
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
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidName     Code = "INVALID_NAME"
	ErrCodeInvalidPattern  Code = "INVALID_PATTERN"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeNodeNotFound   Code = "NODE_NOT_FOUND"
	ErrCodeSocketNotFound Code = "SOCKET_NOT_FOUND"
	ErrCodeGraphNotFound  Code = "GRAPH_NOT_FOUND"
	ErrCodeFileNotFound   Code = "FILE_NOT_FOUND"

	// Structural errors
	ErrCodeDuplicateName    Code = "DUPLICATE_NAME"
	ErrCodeIncompatibleLink Code = "INCOMPATIBLE_LINK"
	ErrCodeSchemaMismatch   Code = "SCHEMA_MISMATCH"

	// Engine boundary errors
	ErrCodeEngineUnavailable Code = "ENGINE_UNAVAILABLE"
	ErrCodeEngineFailed      Code = "ENGINE_FAILED"
	ErrCodeTimeout           Code = "TIMEOUT"

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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or *StatusError.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the chain holds neither an *Error nor a
// *StatusError.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// StatusError reports a non-success status returned by the external
// renderer. It is produced at the engine boundary and surfaced to users
// as a single summary line.
type StatusError struct {
	Status string // engine status name, e.g. "timeout"
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return "render failed: " + e.Status
}

// Code returns the error code for this error type.
func (e *StatusError) Code() Code {
	if e.Status == "timeout" {
		return ErrCodeTimeout
	}
	return ErrCodeEngineFailed
}
