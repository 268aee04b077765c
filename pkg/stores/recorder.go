package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
	"github.com/FuckingPengvin/browse-helper/pkg/tokens"
)

// Recorder adapts a Store to the engine's ledger persistence interface. It
// also mirrors engine events into the append-only event log, so a single
// instance can serve as both the coordinator's Recorder and one of the event
// bus subscribers.
type Recorder struct {
	store Store
}

// NewRecorder wraps a store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// SaveExecution persists the summary of a finished plan execution.
func (r *Recorder) SaveExecution(ctx context.Context, summary *engine.ExecutionSummary) error {
	row := &Execution{
		ID:                summary.ExecutionID,
		Task:              summary.Task,
		Success:           summary.Success,
		TotalActions:      summary.TotalActions,
		SuccessfulActions: summary.SuccessfulActions,
		FailedActions:     summary.FailedActions,
		SkippedActions:    len(summary.Skipped),
		DurationMS:        summary.Duration.Milliseconds(),
		CreatedAt:         time.Now(),
	}
	if summary.Error != "" {
		row.Error = &summary.Error
	}
	return r.store.CreateExecution(ctx, row)
}

// SaveResult persists one step's terminal result. The execution stub row is
// created on first use so the ledger's foreign key holds before the summary
// is final.
func (r *Recorder) SaveResult(ctx context.Context, executionID string, step int, result *engine.ExecutionResult) error {
	if err := r.store.EnsureExecution(ctx, executionID, ""); err != nil {
		return err
	}
	row := &ActionResult{
		ExecutionID: executionID,
		Step:        step,
		ActionID:    result.ActionID,
		Status:      string(result.Status),
		DurationMS:  result.Duration.Milliseconds(),
		RetryCount:  result.RetryCount,
		CreatedAt:   time.Now(),
	}
	if result.Error != "" {
		row.Error = &result.Error
	}
	if len(result.Data) > 0 {
		if data, err := json.Marshal(result.Data); err == nil {
			s := string(data)
			row.Data = &s
			if action, ok := result.Data["action"].(string); ok {
				row.ActionType = action
			}
		}
	}
	return r.store.CreateActionResult(ctx, row)
}

// SaveTokenUsage persists one model call's token consumption.
func (r *Recorder) SaveTokenUsage(ctx context.Context, usage tokens.Usage) error {
	return r.store.CreateTokenUsage(ctx, &TokenUsage{
		Model:            usage.Model,
		Operation:        usage.Operation,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Timestamp:        usage.Timestamp,
	})
}

// EventSink returns a subscriber that appends engine events to the store's
// event log.
func (r *Recorder) EventSink(ctx context.Context) func(engine.Event) {
	return func(ev engine.Event) {
		row := &Event{
			Type:      string(ev.Type),
			Severity:  ev.Severity,
			Message:   ev.Message,
			Timestamp: ev.Timestamp,
		}
		if ev.ExecutionID != "" {
			id := ev.ExecutionID
			row.ExecutionID = &id
		}
		if ev.Step >= 0 {
			step := ev.Step
			row.Step = &step
		}
		if ev.ActionType != "" {
			at := string(ev.ActionType)
			row.ActionType = &at
		}
		// Persistence failures are non-fatal for event delivery.
		_ = r.store.AppendEvent(ctx, row)
	}
}
