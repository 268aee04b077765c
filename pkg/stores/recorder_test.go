package stores

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
	"github.com/FuckingPengvin/browse-helper/pkg/tokens"
)

func TestRecorderSaveResult(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	result := &engine.ExecutionResult{
		ActionID: "step_0",
		Status:   engine.StatusCompleted,
		Data: map[string]any{
			"action":     "navigate",
			"actual_url": "https://example.com/",
		},
		Duration:   1200 * time.Millisecond,
		RetryCount: 1,
	}
	// No summary row exists yet; SaveResult must create the stub itself.
	if err := rec.SaveResult(ctx, "exec_66666666", 0, result); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	rows, err := store.ListActionResults(ctx, "exec_66666666")
	if err != nil {
		t.Fatalf("ListActionResults failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.ActionType != "navigate" {
		t.Errorf("Expected action type from payload, got %q", row.ActionType)
	}
	if row.Data == nil || !strings.Contains(*row.Data, "example.com") {
		t.Errorf("Expected payload JSON, got %v", row.Data)
	}
	if row.DurationMS != 1200 || row.RetryCount != 1 {
		t.Errorf("Unexpected row %+v", row)
	}
}

func TestRecorderSaveExecution(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	summary := &engine.ExecutionSummary{
		ExecutionID:       "exec_77777777",
		Task:              "scrape the page",
		Success:           false,
		TotalActions:      2,
		SuccessfulActions: 1,
		FailedActions:     1,
		Duration:          3 * time.Second,
		Skipped:           []engine.ExecutionResult{{ActionID: "step_2"}},
		Error:             "critical action failed at step 1: boom",
	}
	if err := rec.SaveExecution(ctx, summary); err != nil {
		t.Fatalf("SaveExecution failed: %v", err)
	}

	row, err := store.GetExecution(ctx, "exec_77777777")
	if err != nil {
		t.Fatalf("GetExecution failed: %v", err)
	}
	if row.Success || row.FailedActions != 1 || row.SkippedActions != 1 {
		t.Errorf("Unexpected row %+v", row)
	}
	if row.Error == nil || !strings.Contains(*row.Error, "boom") {
		t.Errorf("Expected error to persist, got %v", row.Error)
	}
	if row.DurationMS != 3000 {
		t.Errorf("Expected 3000ms, got %d", row.DurationMS)
	}
}

func TestRecorderSaveTokenUsage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	err := rec.SaveTokenUsage(ctx, tokens.Usage{
		Timestamp:        time.Now(),
		PromptTokens:     120,
		CompletionTokens: 40,
		Model:            "glm4",
		Operation:        "planning",
	})
	if err != nil {
		t.Fatalf("SaveTokenUsage failed: %v", err)
	}

	totals, err := store.GetTokenTotals(ctx, time.Time{})
	if err != nil {
		t.Fatalf("GetTokenTotals failed: %v", err)
	}
	if totals.Requests != 1 || totals.PromptTokens != 120 || totals.CompletionTokens != 40 {
		t.Errorf("Unexpected totals %+v", totals)
	}
}

func TestRecorderEventSink(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)
	sink := rec.EventSink(ctx)

	sink(engine.Event{
		ExecutionID: "exec_88888888",
		Step:        1,
		ActionType:  engine.ActionClick,
		Type:        engine.EventTypeActionRetrying,
		Message:     "attempt 2 of 4",
		Severity:    "warn",
		Timestamp:   time.Now(),
	})
	// Execution-level events carry step -1, stored as NULL.
	sink(engine.Event{
		ExecutionID: "exec_88888888",
		Step:        -1,
		Type:        engine.EventTypeExecutionCompleted,
		Severity:    "info",
		Timestamp:   time.Now(),
	})

	id := "exec_88888888"
	events, err := store.GetEvents(ctx, &id, nil, 100, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	var sawStep, sawNoStep bool
	for _, e := range events {
		if e.Step != nil {
			sawStep = true
			if *e.Step != 1 {
				t.Errorf("Unexpected step %d", *e.Step)
			}
		} else {
			sawNoStep = true
		}
	}
	if !sawStep || !sawNoStep {
		t.Error("Expected one step-level and one execution-level event")
	}
}
