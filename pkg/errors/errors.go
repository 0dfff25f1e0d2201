// Package errors provides structured error types for podkit.
//
// Every failure that crosses a package boundary carries a [Code] so the
// resolver can decide whether it is fatal for the run, fatal for one
// top-level pod, or only a warning:
//
//   - MANIFEST_PARSE, INVALID_CONFIG, DESCRIPTOR_WRITE: abort the run
//   - METADATA_LOOKUP, FETCH, UNSUPPORTED_ARCHIVE, DEPTH_EXCEEDED: abort one
//     top-level pod's subtree
//   - NO_ARTIFACT: warning, the pod contributes no build rule
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPackage, "invalid pod name: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidPackage) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFetch, origErr, "download %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Run-level failures
	ErrCodeManifestParse   Code = "MANIFEST_PARSE"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeDescriptorWrite Code = "DESCRIPTOR_WRITE"

	// Per-pod failures
	ErrCodeMetadataLookup     Code = "METADATA_LOOKUP"
	ErrCodeFetch              Code = "FETCH"
	ErrCodeUnsupportedArchive Code = "UNSUPPORTED_ARCHIVE"
	ErrCodeDepthExceeded      Code = "DEPTH_EXCEEDED"
	ErrCodeInvalidSpec        Code = "INVALID_SPEC"

	// Warnings
	ErrCodeNoArtifact Code = "NO_ARTIFACT"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Transport errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeNetwork  Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// It unwraps the error chain looking for an *Error with a matching code.
// Nested *Error values are checked too, so a FETCH error wrapping an
// UNSUPPORTED_ARCHIVE error matches both codes.
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
// For *Error types, returns the message without the code prefix, followed by
// the cause's own user message.
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

// Fatal reports whether err must abort the whole run rather than a single
// top-level pod.
func Fatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeManifestParse, ErrCodeInvalidConfig, ErrCodeDescriptorWrite:
		return true
	}
	return false
}
