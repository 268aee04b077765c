package engine

import (
	"encoding/json"
	"fmt"
)

// ActionType represents the capability tag of an action.
type ActionType string

const (
	// ActionNavigate loads a URL in the browser.
	ActionNavigate ActionType = "navigate"

	// ActionClick finds an element by selector and clicks it.
	ActionClick ActionType = "click"

	// ActionInputText finds an input by selector and types text into it.
	ActionInputText ActionType = "input_text"

	// ActionExtractData reads text, html, value or an attribute from an element.
	ActionExtractData ActionType = "extract_data"

	// ActionWait pauses for a duration or until a selector appears.
	ActionWait ActionType = "wait"

	// ActionScroll scrolls the page in a direction by an amount of pixels.
	ActionScroll ActionType = "scroll"

	// ActionExecuteScript evaluates JavaScript on the current page.
	ActionExecuteScript ActionType = "execute_script"
)

// Validate checks if the action type is one of the known capabilities.
func (t ActionType) Validate() error {
	switch t {
	case ActionNavigate, ActionClick, ActionInputText, ActionExtractData,
		ActionWait, ActionScroll, ActionExecuteScript:
		return nil
	default:
		return fmt.Errorf("invalid action type: %s", t)
	}
}

// ActionStatus represents the execution status of a single action.
type ActionStatus string

const (
	// StatusPending indicates the action has not started yet.
	StatusPending ActionStatus = "pending"

	// StatusRunning indicates the action is currently executing.
	StatusRunning ActionStatus = "running"

	// StatusCompleted indicates the action finished successfully.
	StatusCompleted ActionStatus = "completed"

	// StatusFailed indicates the action failed terminally.
	StatusFailed ActionStatus = "failed"

	// StatusRetrying indicates the action failed and is waiting for another attempt.
	StatusRetrying ActionStatus = "retrying"

	// StatusSkipped indicates the action was never attempted because the plan
	// aborted on an earlier critical failure.
	StatusSkipped ActionStatus = "skipped"

	// StatusTimeout indicates the action exceeded its time budget.
	StatusTimeout ActionStatus = "timeout"
)

// IsTerminal returns true if the status represents a final state.
func (s ActionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Validate checks if the action status is valid.
func (s ActionStatus) Validate() error {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed,
		StatusRetrying, StatusSkipped, StatusTimeout:
		return nil
	default:
		return fmt.Errorf("invalid action status: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s ActionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *ActionStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ActionStatus(str)
	return s.Validate()
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (t ActionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (t *ActionType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*t = ActionType(str)
	return t.Validate()
}
