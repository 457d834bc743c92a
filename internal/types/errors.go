package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for pipeline errors.
type ErrorCode string

// Database error codes
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED     ErrorCode = "DB_QUERY_FAILED"
)

// Job error codes
const (
	JOB_NOT_FOUND       ErrorCode = "JOB_NOT_FOUND"
	JOB_INVALID_PAYLOAD ErrorCode = "JOB_INVALID_PAYLOAD"
	JOB_NOT_PROCESSING  ErrorCode = "JOB_NOT_PROCESSING"
)

// Graph store error codes
const (
	GRAPH_CONNECTION_FAILED ErrorCode = "GRAPH_CONNECTION_FAILED"
	GRAPH_NOT_CONNECTED     ErrorCode = "GRAPH_NOT_CONNECTED"
	GRAPH_WRITE_FAILED      ErrorCode = "GRAPH_WRITE_FAILED"
	GRAPH_READ_FAILED       ErrorCode = "GRAPH_READ_FAILED"
)

// Proposer error codes
const (
	LLM_INVOKE_FAILED ErrorCode = "LLM_INVOKE_FAILED"
	LLM_BAD_OUTPUT    ErrorCode = "LLM_BAD_OUTPUT"
	LLM_TOOL_FAILED   ErrorCode = "LLM_TOOL_FAILED"
)

// Goal negotiation error codes
const (
	GOAL_EMPTY        ErrorCode = "GOAL_EMPTY"
	GOAL_STORE_FAILED ErrorCode = "GOAL_STORE_FAILED"
)

// Config error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_KEY_NOT_FOUND     ErrorCode = "CONFIG_KEY_NOT_FOUND"
)

// PipelineError is a structured error with a code, message, and optional
// cause. It supports error wrapping so call sites can use errors.Is and
// errors.As against the code.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause".
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping chains.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so sentinel comparisons work across wrapping.
func (e *PipelineError) Is(target error) bool {
	var pe *PipelineError
	if errors.As(target, &pe) {
		return e.Code == pe.Code
	}
	return false
}

// NewError creates a PipelineError without a cause.
func NewError(code ErrorCode, message string) *PipelineError {
	return &PipelineError{Code: code, Message: message}
}

// WrapError creates a PipelineError wrapping an underlying cause.
func WrapError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Cause: cause}
}

// HasCode reports whether err carries the given error code anywhere in
// its chain.
func HasCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	for errors.As(err, &pe) {
		if pe.Code == code {
			return true
		}
		err = pe.Cause
		if err == nil {
			return false
		}
	}
	return false
}
