package engine

import (
	"context"
	"time"
)

// EventType identifies an execution lifecycle event.
type EventType string

const (
	EventTypeExecutionStarted   EventType = "execution_started"
	EventTypeExecutionCompleted EventType = "execution_completed"
	EventTypeExecutionFailed    EventType = "execution_failed"
	EventTypeActionStarted      EventType = "action_started"
	EventTypeActionRetrying     EventType = "action_retrying"
	EventTypeActionCompleted    EventType = "action_completed"
	EventTypeActionFailed       EventType = "action_failed"
	EventTypeActionSkipped      EventType = "action_skipped"
)

// Event is a single execution lifecycle event.
type Event struct {
	// ExecutionID identifies the plan execution the event belongs to.
	ExecutionID string `json:"execution_id"`

	// Step is the zero-based plan index, -1 for execution-level events.
	Step int `json:"step"`

	// ActionType is the capability tag of the step, empty for
	// execution-level events.
	ActionType ActionType `json:"action_type,omitempty"`

	// Type is the event type.
	Type EventType `json:"type"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Severity is one of debug, info, warn, error.
	Severity string `json:"severity"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher publishes execution lifecycle events. Publish failures are
// logged and swallowed: telemetry never fails an execution.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder persists the execution ledger. Persistence failures are logged
// and swallowed for the same reason.
type Recorder interface {
	// SaveExecution persists the summary of a finished plan execution.
	SaveExecution(ctx context.Context, summary *ExecutionSummary) error

	// SaveResult persists one step's terminal result.
	SaveResult(ctx context.Context, executionID string, step int, result *ExecutionResult) error
}

// Metrics receives execution measurements. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// ObserveAction records one terminal action result with its total
	// duration across attempts.
	ObserveAction(actionType ActionType, status ActionStatus, duration time.Duration)

	// ObserveExecution records one finished plan execution.
	ObserveExecution(success bool, duration time.Duration)

	// AddRetry counts one retry attempt for the given capability tag.
	AddRetry(actionType ActionType)
}
