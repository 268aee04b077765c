// Package engine provides the plan-execution core: a coordinator that drives
// an ordered sequence of typed browser actions against an environment backend,
// retrying recoverable failures with exponential backoff, bounding concurrent
// handler invocations process-wide, and producing a per-step execution ledger
// plus cumulative lifetime statistics.
package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error for retry logic.
type ErrorClass string

const (
	// ErrorClassValidation indicates a malformed action or unknown action
	// type. Never retried: it fails the step immediately without touching
	// the environment.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassEnvironment indicates the backend raised during the
	// interaction. Retryable under the retry policy.
	ErrorClassEnvironment ErrorClass = "environment"

	// ErrorClassTimeout indicates the handler did not complete within its
	// time budget. Retryable.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassExhausted indicates the configured maximum attempts were
	// all consumed without success.
	ErrorClassExhausted ErrorClass = "exhausted"

	// ErrorClassOrchestration indicates a failure in the coordinator's own
	// control flow, caught at the ExecutePlan boundary and surfaced in the
	// summary rather than raised to the caller.
	ErrorClassOrchestration ErrorClass = "orchestration"
)

// EngineError represents a classified error with step context.
type EngineError struct {
	// Class is the error classification for retry logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// ActionType is the capability tag of the failing action, if known.
	ActionType ActionType `json:"action_type,omitempty"`

	// Step is the zero-based plan index of the failing action, -1 if unknown.
	Step int `json:"step"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.ActionType != "" {
		return fmt.Sprintf("[%s] %s (action=%s, step=%d): %s",
			e.Class, e.Message, e.ActionType, e.Step, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassValidation, Message: message, Step: -1, Err: err}
}

// NewEnvironmentError creates a new environment error.
func NewEnvironmentError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassEnvironment, Message: message, Step: -1, Err: err}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassTimeout, Message: message, Step: -1, Err: err}
}

// NewExhaustedError creates a new retries-exhausted error.
func NewExhaustedError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassExhausted, Message: message, Step: -1, Err: err}
}

// NewOrchestrationError creates a new orchestration error.
func NewOrchestrationError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassOrchestration, Message: message, Step: -1, Err: err}
}

// WithAction adds action context to an error.
func (e *EngineError) WithAction(t ActionType, step int) *EngineError {
	e.ActionType = t
	e.Step = step
	return e
}

// IsValidation returns true if the error is classified as a validation failure.
func IsValidation(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassValidation
	}
	return false
}

// IsTimeout returns true if the error is classified as a timeout.
func IsTimeout(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassTimeout
	}
	return false
}

// IsRetryable returns true if the error can be retried. Environment and
// timeout failures are retryable; validation failures are not.
func IsRetryable(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassEnvironment || e.Class == ErrorClassTimeout
	}
	// A raw error from a handler is treated as an environment failure.
	return err != nil
}

// ErrNotInitialized is returned by ExecutePlan before Initialize succeeds or
// after Shutdown.
var ErrNotInitialized = errors.New("coordinator not initialized")

// ErrUnknownAction is the sentinel returned by the registry for an
// unregistered capability tag.
var ErrUnknownAction = errors.New("unknown action type")
