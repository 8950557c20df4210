// Package errors provides structured error types for stagefan.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes for stagefan operations.
const (
	// Config errors
	CodeConfigMissingField = "CONFIG_001" // Missing required field
	CodeConfigInvalidValue = "CONFIG_002" // Invalid value type

	// Pipeline definition errors
	CodePipelineNotFound   = "PIPE_001" // Definition file not found
	CodePipelineParseError = "PIPE_002" // Definition file does not decode

	// Stage input errors
	CodeStageMultipleParallel  = "STAGE_001" // More than one parallel key declared
	CodeStageParallelUndefined = "STAGE_002" // Parallel key has no value in metadata

	// Branch errors
	CodeBranchFailed      = "BRANCH_001" // Branch callback failed
	CodeBranchPanicked    = "BRANCH_002" // Branch callback panicked
	CodeAggregationFailed = "AGG_001"    // Aggregation hook failed

	// Store errors
	CodeRunNotFound = "STORE_001" // Run record not found
	CodeStoreFailed = "STORE_002" // Backend failure

	// IO errors
	CodeIOFileNotFound = "IO_001" // File not found
	CodeIOReadError    = "IO_004" // Read error
	CodeIOWriteError   = "IO_005" // Write error
)

// Error is the structured error type for stagefan operations.
type Error struct {
	Code    string         `json:"code"`              // Error code (e.g., "STAGE_001")
	Message string         `json:"message"`           // Human-readable message
	Details map[string]any `json:"details,omitempty"` // Context (job, key, path, etc.)
	Cause   error          `json:"-"`                 // Wrapped error (not serialized)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// MarshalJSON implements json.Marshaler with cause error message.
func (e *Error) MarshalJSON() ([]byte, error) {
	type alias Error
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new Error.
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with an Error.
func Wrap(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted Error.
func Wrapf(code string, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// --- Config Errors ---

// ConfigMissingField creates an error for missing config field.
func ConfigMissingField(field string) *Error {
	return Newf(CodeConfigMissingField, "missing required config field: %s", field).
		WithDetail("field", field)
}

// ConfigInvalidValue creates an error for invalid config value.
func ConfigInvalidValue(field string, value any, reason string) *Error {
	return Newf(CodeConfigInvalidValue, "invalid config value for %s: %s", field, reason).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

// --- Pipeline Errors ---

// PipelineNotFound creates an error for a missing pipeline definition.
func PipelineNotFound(path string) *Error {
	return Newf(CodePipelineNotFound, "pipeline definition not found: %s", path).
		WithDetail("path", path)
}

// PipelineParseError creates an error for an undecodable pipeline definition.
func PipelineParseError(path string, err error) *Error {
	return Wrap(CodePipelineParseError, "failed to parse pipeline definition", err).
		WithDetail("path", path)
}

// --- Stage Errors ---

// StageMultipleParallel creates an error for a configuration declaring more
// than one parallel key.
func StageMultipleParallel(keys []string) *Error {
	return Newf(CodeStageMultipleParallel, "only one parallel key is supported, got %d: %v", len(keys), keys).
		WithDetail("keys", keys)
}

// StageParallelUndefined creates an error for a parallel key with no metadata entry.
func StageParallelUndefined(key string) *Error {
	return Newf(CodeStageParallelUndefined, "parallel key %q has no default value", key).
		WithDetail("key", key)
}

// --- Branch Errors ---

// BranchFailed creates an error for a failed branch callback.
func BranchFailed(job string, err error) *Error {
	return Wrapf(CodeBranchFailed, err, "branch %s failed", job).
		WithDetail("job", job)
}

// BranchPanicked creates an error for a branch callback that panicked.
func BranchPanicked(job string, recovered any) *Error {
	return Newf(CodeBranchPanicked, "branch %s panicked: %v", job, recovered).
		WithDetail("job", job)
}

// AggregationFailed creates an error for a failing aggregation hook.
func AggregationFailed(runID string, err error) *Error {
	return Wrap(CodeAggregationFailed, "aggregation hook failed", err).
		WithDetail("run_id", runID)
}

// --- Store Errors ---

// RunNotFound creates an error for a missing run record.
func RunNotFound(runID string) *Error {
	return Newf(CodeRunNotFound, "run not found: %s", runID).
		WithDetail("run_id", runID)
}

// StoreFailed creates an error for a backend failure.
func StoreFailed(op string, err error) *Error {
	return Wrapf(CodeStoreFailed, err, "store %s failed", op).
		WithDetail("op", op)
}

// --- IO Errors ---

// IOFileNotFound creates an error for missing file.
func IOFileNotFound(path string) *Error {
	return Newf(CodeIOFileNotFound, "file not found: %s", path).
		WithDetail("path", path)
}

// IOReadError creates an error for read failures.
func IOReadError(path string, err error) *Error {
	return Wrap(CodeIOReadError, "failed to read file", err).
		WithDetail("path", path)
}

// IOWriteError creates an error for write failures.
func IOWriteError(path string, err error) *Error {
	return Wrap(CodeIOWriteError, "failed to write file", err).
		WithDetail("path", path)
}

// HasCode checks if an error is an Error with the given code.
// It handles wrapped errors by unwrapping to find an Error.
func HasCode(err error, code string) bool {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code == code
	}
	return false
}

// Code returns the error code if err is an Error, empty string otherwise.
func Code(err error) string {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code
	}
	return ""
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }
