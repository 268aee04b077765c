package engine

import (
	"time"
)

// Action is one declarative unit of work in a plan, tagged by capability type.
type Action struct {
	// Type is the capability tag selecting the handler.
	Type ActionType `json:"type"`

	// Target is interpreted by the handler: a URL for navigate, a CSS
	// selector for click/input_text/extract_data, a duration or selector
	// for wait, a pixel amount for scroll, code for execute_script.
	Target string `json:"target,omitempty"`

	// Value is an optional payload: text for input_text, attribute for
	// extract_data, direction for scroll.
	Value string `json:"value,omitempty"`

	// Description is a human-readable label for the step.
	Description string `json:"description,omitempty"`

	// Conditions are advisory precondition annotations from the planner.
	// The engine does not evaluate them.
	Conditions []string `json:"conditions,omitempty"`

	// RetryOnFail controls the abort policy: when true, exhausting retries
	// on this action is non-fatal and the plan continues; when false, the
	// plan aborts and the remaining actions are skipped.
	RetryOnFail bool `json:"retry_on_fail"`

	// Timeout is the per-attempt time budget in milliseconds. Zero means
	// the coordinator default applies.
	Timeout int `json:"timeout,omitempty"`
}

// TimeoutDuration returns the action timeout as a duration, or zero when unset.
func (a Action) TimeoutDuration() time.Duration {
	if a.Timeout <= 0 {
		return 0
	}
	return time.Duration(a.Timeout) * time.Millisecond
}

// Plan is an ordered, immutable sequence of actions produced by the planner.
// Order is significant and fixed at submission.
type Plan struct {
	// Task is the originating natural-language task description.
	Task string `json:"task"`

	// Actions are the steps to execute, in order.
	Actions []Action `json:"actions"`

	// ExpectedOutcome describes what the planner expects the plan to achieve.
	ExpectedOutcome string `json:"expected_outcome,omitempty"`

	// Assumptions are the planner's assumptions about the page. Not enforced.
	Assumptions []string `json:"assumptions,omitempty"`

	// Constraints are free-form annotations from the planner. Not enforced.
	Constraints []string `json:"constraints,omitempty"`
}

// ExecutionResult is the terminal outcome record for one attempted action.
type ExecutionResult struct {
	// ActionID is the stable per-step identifier ("step_0", "step_1", ...).
	ActionID string `json:"action_id"`

	// Status is the terminal status of the action.
	Status ActionStatus `json:"status"`

	// Data is the handler-returned payload on success.
	Data map[string]any `json:"data,omitempty"`

	// Error is the failure message, if any.
	Error string `json:"error,omitempty"`

	// Duration is the wall time of the attempt that produced this result,
	// not the accumulated time across retries.
	Duration time.Duration `json:"duration"`

	// RetryCount is the index of the attempt that produced this result:
	// a first-try success has RetryCount 0. Never exceeds the configured
	// maximum retries.
	RetryCount int `json:"retry_count"`
}

// ExecutionSummary is the aggregate outcome of executing one plan.
type ExecutionSummary struct {
	// ExecutionID uniquely identifies this ExecutePlan call.
	ExecutionID string `json:"execution_id"`

	// Success is true iff every recorded result completed.
	Success bool `json:"success"`

	// TotalActions is the number of actions that were attempted.
	TotalActions int `json:"total_actions"`

	// SuccessfulActions is the number of completed results.
	SuccessfulActions int `json:"successful_actions"`

	// FailedActions is the number of failed results.
	FailedActions int `json:"failed_actions"`

	// Duration is the wall time for the whole plan.
	Duration time.Duration `json:"duration"`

	// Results are the per-step terminal outcomes, in plan order. Strictly
	// shorter than the plan only when a critical failure aborted it early.
	Results []ExecutionResult `json:"results"`

	// Skipped are audit markers for actions never attempted after a
	// critical failure aborted the plan.
	Skipped []ExecutionResult `json:"skipped,omitempty"`

	// Error is set when orchestration itself failed (not a handler failure).
	Error string `json:"error,omitempty"`

	// Task is the originating task description.
	Task string `json:"task"`
}

// StatusReport is a read-only snapshot of the coordinator state.
type StatusReport struct {
	// Ready indicates Initialize has completed and Shutdown has not.
	Ready bool `json:"ready"`

	// Active indicates a plan execution is currently in flight.
	Active bool `json:"active"`

	// Stats is a copy of the lifetime counters.
	Stats StatsSnapshot `json:"stats"`

	// MaxParallel is the configured concurrency gate bound.
	MaxParallel int `json:"max_parallel"`

	// AvailableActions lists the registered capability tags.
	AvailableActions []ActionType `json:"available_actions"`
}
