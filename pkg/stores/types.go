package stores

import (
	"context"
	"database/sql"
	"time"
)

// Execution is the persisted summary row for one plan execution.
type Execution struct {
	ID                string    `json:"id"`
	Task              string    `json:"task"`
	Success           bool      `json:"success"`
	TotalActions      int       `json:"total_actions"`
	SuccessfulActions int       `json:"successful_actions"`
	FailedActions     int       `json:"failed_actions"`
	SkippedActions    int       `json:"skipped_actions"`
	DurationMS        int64     `json:"duration_ms"`
	Error             *string   `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ActionResult is one persisted ledger row.
type ActionResult struct {
	ID          int64     `json:"id"`
	ExecutionID string    `json:"execution_id"`
	Step        int       `json:"step"`
	ActionID    string    `json:"action_id"`
	ActionType  string    `json:"action_type"`
	Status      string    `json:"status"`
	Data        *string   `json:"data,omitempty"` // JSON blob
	Error       *string   `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	RetryCount  int       `json:"retry_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event is an append-only log row.
type Event struct {
	ID          int64     `json:"id"`
	ExecutionID *string   `json:"execution_id,omitempty"`
	Step        *int      `json:"step,omitempty"`
	ActionType  *string   `json:"action_type,omitempty"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// TokenUsage is one persisted model call.
type TokenUsage struct {
	ID               int64     `json:"id"`
	Model            string    `json:"model"`
	Operation        string    `json:"operation"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Timestamp        time.Time `json:"timestamp"`
}

// TokenTotals aggregates token consumption over a period.
type TokenTotals struct {
	Requests         int `json:"requests"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Store defines the interface for the persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Execution operations
	EnsureExecution(ctx context.Context, id, task string) error
	CreateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, limit, offset int) ([]*Execution, error)
	DeleteExecution(ctx context.Context, id string) error

	// Action result operations
	CreateActionResult(ctx context.Context, result *ActionResult) error
	ListActionResults(ctx context.Context, executionID string) ([]*ActionResult, error)

	// Event log operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, executionID *string, severity *string, limit, offset int) ([]*Event, error)

	// Token accounting operations
	CreateTokenUsage(ctx context.Context, usage *TokenUsage) error
	GetTokenTotals(ctx context.Context, since time.Time) (*TokenTotals, error)

	// Health
	HealthCheck(ctx context.Context) error
}
