package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Mock backend for testing
type mockBackend struct {
	mu        sync.Mutex
	available bool
	loaded    bool
	failures  map[string]int
	calls     []string
	delay     time.Duration

	inFlight    int32
	maxInFlight int32

	panicOn string

	url          string
	title        string
	extracted    string
	waitFound    bool
	scriptResult string
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		available: true,
		loaded:    true,
		failures:  make(map[string]int),
		url:       "https://example.com/",
		title:     "Example Domain",
		extracted: "hello",
		waitFound: true,
	}
}

// step records the call, tracks overlap, and consumes one queued failure.
func (m *mockBackend) step(ctx context.Context, name string) error {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	shouldFail := m.failures[name] > 0
	if shouldFail {
		m.failures[name]--
	}
	shouldPanic := m.panicOn == name
	m.mu.Unlock()

	if shouldPanic {
		panic("backend blew up in " + name)
	}

	cur := atomic.AddInt32(&m.inFlight, 1)
	for {
		max := atomic.LoadInt32(&m.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&m.maxInFlight, max, cur) {
			break
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			atomic.AddInt32(&m.inFlight, -1)
			return ctx.Err()
		}
	}
	atomic.AddInt32(&m.inFlight, -1)

	if shouldFail {
		return fmt.Errorf("induced %s failure", name)
	}
	return nil
}

func (m *mockBackend) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *mockBackend) IsAvailable(ctx context.Context) bool { return m.available }
func (m *mockBackend) IsPageLoaded(ctx context.Context) bool { return m.loaded }

func (m *mockBackend) Navigate(ctx context.Context, url string) error {
	return m.step(ctx, "navigate")
}

func (m *mockBackend) CurrentURL(ctx context.Context) (string, error) {
	return m.url, nil
}

func (m *mockBackend) Title(ctx context.Context) (string, error) {
	return m.title, nil
}

func (m *mockBackend) Click(ctx context.Context, selector string) error {
	return m.step(ctx, "click")
}

func (m *mockBackend) InputText(ctx context.Context, selector, text string) error {
	return m.step(ctx, "input_text")
}

func (m *mockBackend) ExtractData(ctx context.Context, selector, attribute string) (string, error) {
	if err := m.step(ctx, "extract_data"); err != nil {
		return "", err
	}
	return m.extracted, nil
}

func (m *mockBackend) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if err := m.step(ctx, "wait_for_selector"); err != nil {
		return false, err
	}
	return m.waitFound, nil
}

func (m *mockBackend) Scroll(ctx context.Context, direction string, amount int) error {
	return m.step(ctx, "scroll")
}

func (m *mockBackend) EvaluateScript(ctx context.Context, script string) (string, error) {
	if err := m.step(ctx, "evaluate_script"); err != nil {
		return "", err
	}
	return m.scriptResult, nil
}

// recordingSleeper returns immediately and remembers every requested delay.
type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return nil
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration{}, s.sleeps...)
}

// Mock event publisher for testing
type mockPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockPublisher) Publish(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) byType(t EventType) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Mock recorder for testing
type mockRecorder struct {
	mu         sync.Mutex
	executions []*ExecutionSummary
	results    map[string][]ExecutionResult
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{results: make(map[string][]ExecutionResult)}
}

func (m *mockRecorder) SaveExecution(ctx context.Context, summary *ExecutionSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, summary)
	return nil
}

func (m *mockRecorder) SaveResult(ctx context.Context, executionID string, step int, result *ExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[executionID] = append(m.results[executionID], *result)
	return nil
}

func newTestCoordinator(t *testing.T, backend Backend, opts CoordinatorOptions) (*Coordinator, *recordingSleeper) {
	t.Helper()
	sleeper := &recordingSleeper{}
	if opts.Sleeper == nil {
		opts.Sleeper = sleeper
	}
	if opts.StepPacing == 0 {
		opts.StepPacing = -1
	}
	c := NewCoordinator(backend, opts)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return c, sleeper
}

func clickPlan(n int) *Plan {
	plan := &Plan{Task: "click things"}
	for i := 0; i < n; i++ {
		plan.Actions = append(plan.Actions, Action{
			Type:        ActionClick,
			Target:      fmt.Sprintf("#button-%d", i),
			RetryOnFail: true,
		})
	}
	return plan
}

func TestExecutePlanAllSucceed(t *testing.T) {
	backend := newMockBackend()
	recorder := newMockRecorder()
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{Recorder: recorder})

	summary := c.ExecutePlan(context.Background(), clickPlan(3))

	if !summary.Success {
		t.Errorf("Expected success, got error=%q", summary.Error)
	}
	if summary.TotalActions != 3 || summary.SuccessfulActions != 3 || summary.FailedActions != 0 {
		t.Errorf("Unexpected counts: total=%d ok=%d failed=%d",
			summary.TotalActions, summary.SuccessfulActions, summary.FailedActions)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(summary.Results))
	}
	for i, r := range summary.Results {
		if r.ActionID != fmt.Sprintf("step_%d", i) {
			t.Errorf("Result %d: unexpected action id %q", i, r.ActionID)
		}
		if r.Status != StatusCompleted {
			t.Errorf("Result %d: expected completed, got %s", i, r.Status)
		}
		if r.RetryCount != 0 {
			t.Errorf("Result %d: expected no retries, got %d", i, r.RetryCount)
		}
	}
	if !strings.HasPrefix(summary.ExecutionID, "exec_") {
		t.Errorf("Unexpected execution id %q", summary.ExecutionID)
	}
	if len(recorder.results[summary.ExecutionID]) != 3 {
		t.Errorf("Expected 3 persisted results, got %d", len(recorder.results[summary.ExecutionID]))
	}
	if len(recorder.executions) != 1 {
		t.Errorf("Expected 1 persisted summary, got %d", len(recorder.executions))
	}
}

func TestExecutePlanRetriesThenSucceeds(t *testing.T) {
	backend := newMockBackend()
	backend.failures["click"] = 2
	c, sleeper := newTestCoordinator(t, backend, CoordinatorOptions{
		Retry: RetryPolicy{MaxRetries: 3, BaseDelay: time.Second},
	})

	summary := c.ExecutePlan(context.Background(), clickPlan(1))

	if !summary.Success {
		t.Fatalf("Expected success, got error=%q", summary.Error)
	}
	if got := backend.callCount("click"); got != 3 {
		t.Errorf("Expected 3 click attempts, got %d", got)
	}
	if summary.Results[0].RetryCount != 2 {
		t.Errorf("Expected retry_count 2, got %d", summary.Results[0].RetryCount)
	}

	// Exponential backoff: 1s after the first failure, 2s after the second.
	want := []time.Duration{time.Second, 2 * time.Second}
	got := sleeper.recorded()
	if len(got) != len(want) {
		t.Fatalf("Expected %d backoff sleeps, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Backoff %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	stats := c.Stats()
	if stats.TotalRetries != 2 {
		t.Errorf("Expected 2 recorded retries, got %d", stats.TotalRetries)
	}
}

func TestExecutePlanDurationCoversLastAttemptOnly(t *testing.T) {
	backend := newMockBackend()
	backend.failures["click"] = 1
	backend.delay = 60 * time.Millisecond
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{
		Retry: RetryPolicy{MaxRetries: 3, BaseDelay: time.Second},
	})

	summary := c.ExecutePlan(context.Background(), clickPlan(1))

	if !summary.Success {
		t.Fatalf("Expected success, got error=%q", summary.Error)
	}
	if got := backend.callCount("click"); got != 2 {
		t.Fatalf("Expected 2 click attempts, got %d", got)
	}

	// The backoff sleeper is a no-op here, so two counted attempts would
	// read as ~120ms. The duration must cover only the succeeding one.
	d := summary.Results[0].Duration
	if d < 45*time.Millisecond {
		t.Errorf("Duration %s shorter than one attempt", d)
	}
	if d >= 110*time.Millisecond {
		t.Errorf("Duration %s spans more than the final attempt", d)
	}
}

func TestExecutePlanExhaustsRetries(t *testing.T) {
	backend := newMockBackend()
	backend.failures["click"] = 100
	publisher := &mockPublisher{}
	c, sleeper := newTestCoordinator(t, backend, CoordinatorOptions{
		Retry:  RetryPolicy{MaxRetries: 3, BaseDelay: time.Second},
		Events: publisher,
	})

	summary := c.ExecutePlan(context.Background(), clickPlan(1))

	if summary.Success {
		t.Fatal("Expected failure")
	}
	if got := backend.callCount("click"); got != 4 {
		t.Errorf("Expected 4 attempts (1 + 3 retries), got %d", got)
	}
	result := summary.Results[0]
	if result.Status != StatusFailed {
		t.Errorf("Expected failed, got %s", result.Status)
	}
	if result.RetryCount != 3 {
		t.Errorf("Expected retry_count 3, got %d", result.RetryCount)
	}
	if !strings.Contains(result.Error, "exhausted") {
		t.Errorf("Expected exhausted classification, got %q", result.Error)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	got := sleeper.recorded()
	if len(got) != len(want) {
		t.Fatalf("Expected sleeps %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Backoff %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if n := len(publisher.byType(EventTypeActionRetrying)); n != 3 {
		t.Errorf("Expected 3 retrying events, got %d", n)
	}
}

func TestExecutePlanContinuesAfterTolerableFailure(t *testing.T) {
	backend := newMockBackend()
	backend.failures["input_text"] = 100
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{
		Retry: RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
	})

	plan := &Plan{
		Task: "fill a form",
		Actions: []Action{
			{Type: ActionClick, Target: "#open", RetryOnFail: true},
			{Type: ActionInputText, Target: "#name", Value: "x", RetryOnFail: true},
			{Type: ActionClick, Target: "#submit", RetryOnFail: true},
		},
	}
	summary := c.ExecutePlan(context.Background(), plan)

	if summary.Success {
		t.Error("Expected overall failure with one failed action")
	}
	if summary.Error != "" {
		t.Errorf("Expected no orchestration error, got %q", summary.Error)
	}
	if len(summary.Results) != 3 || len(summary.Skipped) != 0 {
		t.Fatalf("Expected 3 results and no skips, got %d and %d",
			len(summary.Results), len(summary.Skipped))
	}
	if summary.SuccessfulActions != 2 || summary.FailedActions != 1 {
		t.Errorf("Unexpected counts: ok=%d failed=%d",
			summary.SuccessfulActions, summary.FailedActions)
	}
}

func TestExecutePlanAbortsOnCriticalFailure(t *testing.T) {
	backend := newMockBackend()
	backend.failures["navigate"] = 100
	publisher := &mockPublisher{}
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{
		Retry:  RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
		Events: publisher,
	})

	plan := &Plan{
		Task: "read the page",
		Actions: []Action{
			{Type: ActionNavigate, Target: "https://example.com", RetryOnFail: false},
			{Type: ActionExtractData, Target: "h1", RetryOnFail: true},
			{Type: ActionScroll, RetryOnFail: true},
		},
	}
	summary := c.ExecutePlan(context.Background(), plan)

	if summary.Success {
		t.Fatal("Expected failure")
	}
	if !strings.Contains(summary.Error, "critical action failed at step 0") {
		t.Errorf("Expected critical failure error, got %q", summary.Error)
	}
	if len(summary.Results) != 1 {
		t.Errorf("Expected 1 result before the abort, got %d", len(summary.Results))
	}
	if len(summary.Skipped) != 2 {
		t.Fatalf("Expected 2 skipped markers, got %d", len(summary.Skipped))
	}
	for i, marker := range summary.Skipped {
		if marker.Status != StatusSkipped {
			t.Errorf("Skipped %d: expected skipped status, got %s", i, marker.Status)
		}
		if marker.ActionID != fmt.Sprintf("step_%d", i+1) {
			t.Errorf("Skipped %d: unexpected id %q", i, marker.ActionID)
		}
	}
	// The never-attempted steps must not be counted as attempted.
	if summary.TotalActions != 1 {
		t.Errorf("Expected total_actions 1, got %d", summary.TotalActions)
	}
	if backend.callCount("extract_data") != 0 || backend.callCount("scroll") != 0 {
		t.Error("Skipped actions must not touch the backend")
	}
	if n := len(publisher.byType(EventTypeActionSkipped)); n != 2 {
		t.Errorf("Expected 2 skipped events, got %d", n)
	}
}

func TestExecutePlanUnknownActionFailsImmediately(t *testing.T) {
	backend := newMockBackend()
	c, sleeper := newTestCoordinator(t, backend, CoordinatorOptions{})

	plan := &Plan{
		Task: "do the impossible",
		Actions: []Action{
			{Type: ActionType("teleport"), RetryOnFail: true},
			{Type: ActionClick, Target: "#ok", RetryOnFail: true},
		},
	}
	summary := c.ExecutePlan(context.Background(), plan)

	result := summary.Results[0]
	if result.Status != StatusFailed {
		t.Errorf("Expected failed, got %s", result.Status)
	}
	if result.RetryCount != 0 {
		t.Errorf("Unknown actions must not be retried, got retry_count %d", result.RetryCount)
	}
	if !strings.Contains(result.Error, "unknown action type") {
		t.Errorf("Unexpected error %q", result.Error)
	}
	if len(backend.calls) != 1 || backend.calls[0] != "click" {
		t.Errorf("Unknown action must not touch the backend, calls=%v", backend.calls)
	}
	if len(sleeper.recorded()) != 0 {
		t.Errorf("Unknown action must not back off, sleeps=%v", sleeper.recorded())
	}
	// A tolerated unknown action still lets the rest of the plan run.
	if summary.Results[1].Status != StatusCompleted {
		t.Errorf("Expected step 1 to complete, got %s", summary.Results[1].Status)
	}
}

func TestExecutePlanValidationErrorNotRetried(t *testing.T) {
	backend := newMockBackend()
	c, sleeper := newTestCoordinator(t, backend, CoordinatorOptions{
		Retry: RetryPolicy{MaxRetries: 3, BaseDelay: time.Second},
	})

	plan := &Plan{
		Task: "type nothing",
		Actions: []Action{
			{Type: ActionInputText, Target: "#name", RetryOnFail: true},
		},
	}
	summary := c.ExecutePlan(context.Background(), plan)

	result := summary.Results[0]
	if result.Status != StatusFailed {
		t.Errorf("Expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "validation") {
		t.Errorf("Expected validation classification, got %q", result.Error)
	}
	if len(sleeper.recorded()) != 0 {
		t.Errorf("Validation failure must not back off, sleeps=%v", sleeper.recorded())
	}
	if backend.callCount("input_text") != 0 {
		t.Error("Validation failure must not touch the backend")
	}
}

func TestExecutePlanNotInitialized(t *testing.T) {
	c := NewCoordinator(newMockBackend(), CoordinatorOptions{})

	summary := c.ExecutePlan(context.Background(), clickPlan(1))
	if summary == nil {
		t.Fatal("Expected non-nil summary")
	}
	if summary.Error != ErrNotInitialized.Error() {
		t.Errorf("Expected not-initialized error, got %q", summary.Error)
	}
	if len(summary.Results) != 0 {
		t.Errorf("Expected no results, got %d", len(summary.Results))
	}
}

func TestExecutePlanAfterShutdown(t *testing.T) {
	c, _ := newTestCoordinator(t, newMockBackend(), CoordinatorOptions{})
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	summary := c.ExecutePlan(context.Background(), clickPlan(1))
	if summary.Error != ErrNotInitialized.Error() {
		t.Errorf("Expected not-initialized error, got %q", summary.Error)
	}
}

func TestExecutePlanNilAndEmpty(t *testing.T) {
	c, _ := newTestCoordinator(t, newMockBackend(), CoordinatorOptions{})

	for _, plan := range []*Plan{nil, {Task: "noop"}} {
		summary := c.ExecutePlan(context.Background(), plan)
		if summary == nil {
			t.Fatal("Expected non-nil summary")
		}
		if summary.Success {
			t.Error("Expected failure for empty plan")
		}
		if summary.Error == "" {
			t.Error("Expected an orchestration error for empty plan")
		}
	}
}

func TestExecutePlanCancelledContext(t *testing.T) {
	c, _ := newTestCoordinator(t, newMockBackend(), CoordinatorOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary := c.ExecutePlan(ctx, clickPlan(3))

	if summary.Success {
		t.Fatal("Expected failure")
	}
	if !strings.Contains(summary.Error, "cancelled") {
		t.Errorf("Expected cancellation error, got %q", summary.Error)
	}
	if len(summary.Results) != 0 {
		t.Errorf("Expected no attempted actions, got %d", len(summary.Results))
	}
	if len(summary.Skipped) != 3 {
		t.Errorf("Expected 3 skipped markers, got %d", len(summary.Skipped))
	}
}

func TestExecutePlanRecoversPanic(t *testing.T) {
	backend := newMockBackend()
	backend.panicOn = "click"
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{})

	summary := c.ExecutePlan(context.Background(), clickPlan(1))

	if summary.Success {
		t.Fatal("Expected failure")
	}
	if !strings.Contains(summary.Error, "panic during execution") {
		t.Errorf("Expected recovered panic in summary, got %q", summary.Error)
	}
}

func TestExecutePlanGateBoundsOverlap(t *testing.T) {
	backend := newMockBackend()
	backend.delay = 20 * time.Millisecond
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{MaxParallel: 1})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary := c.ExecutePlan(context.Background(), clickPlan(2))
			if !summary.Success {
				t.Errorf("Expected success, got error=%q", summary.Error)
			}
		}()
	}
	wg.Wait()

	if max := atomic.LoadInt32(&backend.maxInFlight); max != 1 {
		t.Errorf("Expected at most 1 concurrent handler, observed %d", max)
	}
	if got := backend.callCount("click"); got != 6 {
		t.Errorf("Expected 6 clicks across plans, got %d", got)
	}
}

func TestExecutePlanActionTimeout(t *testing.T) {
	backend := newMockBackend()
	backend.delay = 200 * time.Millisecond
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{
		Retry: RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
	})

	plan := &Plan{
		Task: "slow click",
		Actions: []Action{
			{Type: ActionClick, Target: "#slow", RetryOnFail: true, Timeout: 50},
		},
	}
	summary := c.ExecutePlan(context.Background(), plan)

	result := summary.Results[0]
	if result.Status != StatusFailed {
		t.Fatalf("Expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "timeout") {
		t.Errorf("Expected timeout classification, got %q", result.Error)
	}
	// Timeouts are recoverable, so both attempts run.
	if got := backend.callCount("click"); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestExecutePlanStepPacing(t *testing.T) {
	backend := newMockBackend()
	c, sleeper := newTestCoordinator(t, backend, CoordinatorOptions{
		StepPacing: 250 * time.Millisecond,
	})

	summary := c.ExecutePlan(context.Background(), clickPlan(3))
	if !summary.Success {
		t.Fatalf("Expected success, got error=%q", summary.Error)
	}

	// Pacing between steps only: two gaps for three actions.
	want := []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}
	got := sleeper.recorded()
	if len(got) != len(want) {
		t.Fatalf("Expected sleeps %v, got %v", want, got)
	}
}

func TestExecutePlanEventSequence(t *testing.T) {
	backend := newMockBackend()
	publisher := &mockPublisher{}
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{Events: publisher})

	summary := c.ExecutePlan(context.Background(), clickPlan(2))
	if !summary.Success {
		t.Fatalf("Expected success, got error=%q", summary.Error)
	}

	events := publisher.events
	if len(events) == 0 {
		t.Fatal("Expected events")
	}
	if events[0].Type != EventTypeExecutionStarted {
		t.Errorf("Expected execution_started first, got %s", events[0].Type)
	}
	if events[len(events)-1].Type != EventTypeExecutionCompleted {
		t.Errorf("Expected execution_completed last, got %s", events[len(events)-1].Type)
	}
	if n := len(publisher.byType(EventTypeActionCompleted)); n != 2 {
		t.Errorf("Expected 2 action_completed events, got %d", n)
	}
	for _, e := range events {
		if e.ExecutionID != summary.ExecutionID {
			t.Errorf("Event %s carries wrong execution id %q", e.Type, e.ExecutionID)
		}
	}
}

func TestCoordinatorStatsAccumulate(t *testing.T) {
	backend := newMockBackend()
	backend.failures["click"] = 1
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{
		Retry: RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond},
	})

	c.ExecutePlan(context.Background(), clickPlan(2))
	c.ExecutePlan(context.Background(), clickPlan(1))

	stats := c.Stats()
	if stats.ActionsExecuted != 3 {
		t.Errorf("Expected 3 executed actions, got %d", stats.ActionsExecuted)
	}
	if stats.ActionsFailed != 0 {
		t.Errorf("Expected 0 failed actions, got %d", stats.ActionsFailed)
	}
	if stats.TotalRetries != 1 {
		t.Errorf("Expected 1 retry, got %d", stats.TotalRetries)
	}
}

func TestCoordinatorStatus(t *testing.T) {
	backend := newMockBackend()
	c := NewCoordinator(backend, CoordinatorOptions{MaxParallel: 4})

	report := c.Status()
	if report.Ready {
		t.Error("Expected not ready before Initialize")
	}
	if report.MaxParallel != 4 {
		t.Errorf("Expected max_parallel 4, got %d", report.MaxParallel)
	}
	if len(report.AvailableActions) != 7 {
		t.Errorf("Expected 7 capability tags, got %v", report.AvailableActions)
	}

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !c.Status().Ready {
		t.Error("Expected ready after Initialize")
	}
}

func TestInitializeUnavailableBackend(t *testing.T) {
	backend := newMockBackend()
	backend.available = false
	c := NewCoordinator(backend, CoordinatorOptions{})

	if err := c.Initialize(context.Background()); err == nil {
		t.Fatal("Expected initialization to fail")
	}
}

func TestValidateEnvironment(t *testing.T) {
	backend := newMockBackend()
	c, _ := newTestCoordinator(t, backend, CoordinatorOptions{})

	if err := c.ValidateEnvironment(context.Background()); err != nil {
		t.Errorf("Expected healthy environment, got %v", err)
	}

	backend.loaded = false
	if err := c.ValidateEnvironment(context.Background()); err == nil {
		t.Error("Expected error with no page loaded")
	}

	backend.available = false
	err := c.ValidateEnvironment(context.Background())
	if err == nil {
		t.Fatal("Expected error with unavailable backend")
	}
	if !strings.Contains(err.Error(), "not available") {
		t.Errorf("Unexpected error %v", err)
	}
}
