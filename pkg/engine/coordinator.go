package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultStepPacing is the settle delay between consecutive plan steps.
const defaultStepPacing = 500 * time.Millisecond

// Coordinator drives plans against a backend. One coordinator owns one
// backend; plans submitted concurrently share the retry policy, the
// concurrency gate, and the lifetime statistics.
type Coordinator struct {
	backend  Backend
	registry *Registry
	gate     *Gate
	policy   RetryPolicy
	sleeper  Sleeper
	pacing   time.Duration
	timeout  time.Duration
	stats    *Stats

	recorder Recorder
	events   EventPublisher
	metrics  Metrics
	logger   zerolog.Logger

	mu          sync.Mutex
	initialized bool
	active      int
}

// CoordinatorOptions configures a Coordinator. The zero value selects the
// defaults: two parallel handlers, three retries with one second base delay,
// half a second pacing between steps, and no persistence or telemetry sinks.
type CoordinatorOptions struct {
	// MaxParallel bounds concurrent handler invocations across all plans.
	MaxParallel int

	// Retry is the retry policy applied to every recoverable failure.
	Retry RetryPolicy

	// StepPacing is the settle delay between consecutive steps. Negative
	// disables pacing; zero selects the default.
	StepPacing time.Duration

	// ActionTimeout is the per-attempt time budget applied to actions
	// that carry none of their own. Zero means no default budget.
	ActionTimeout time.Duration

	// Sleeper performs backoff, pacing, and duration waits. Nil selects
	// the wall clock.
	Sleeper Sleeper

	// Recorder persists the execution ledger. Optional.
	Recorder Recorder

	// Events receives execution lifecycle events. Optional.
	Events EventPublisher

	// Metrics receives execution measurements. Optional.
	Metrics Metrics

	// Logger is the structured logger. The zero value logs nothing.
	Logger zerolog.Logger
}

// NewCoordinator creates a coordinator for the given backend.
func NewCoordinator(backend Backend, opts CoordinatorOptions) *Coordinator {
	if opts.Sleeper == nil {
		opts.Sleeper = NewClockSleeper()
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}
	switch {
	case opts.StepPacing < 0:
		opts.StepPacing = 0
	case opts.StepPacing == 0:
		opts.StepPacing = defaultStepPacing
	}

	return &Coordinator{
		backend:  backend,
		registry: NewRegistry(backend, opts.Sleeper),
		gate:     NewGate(opts.MaxParallel),
		policy:   opts.Retry,
		sleeper:  opts.Sleeper,
		pacing:   opts.StepPacing,
		timeout:  opts.ActionTimeout,
		stats:    NewStats(),
		recorder: opts.Recorder,
		events:   opts.Events,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Initialize verifies the backend is reachable and marks the coordinator
// ready. It is idempotent.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if !c.backend.IsAvailable(ctx) {
		return NewEnvironmentError("backend is not available", nil)
	}
	c.initialized = true
	c.logger.Info().Int("max_parallel", c.gate.Bound()).Msg("coordinator initialized")
	return nil
}

// Shutdown marks the coordinator as no longer ready. In-flight executions
// finish; new ExecutePlan calls fail fast.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil
	}
	c.initialized = false
	c.logger.Info().Msg("coordinator shut down")
	return nil
}

// ValidateEnvironment checks that the backend is reachable and has a loaded
// page, returning a classified error describing the first failed check.
func (c *Coordinator) ValidateEnvironment(ctx context.Context) error {
	if !c.backend.IsAvailable(ctx) {
		return NewEnvironmentError("backend is not available", nil)
	}
	if !c.backend.IsPageLoaded(ctx) {
		return NewEnvironmentError("no page is loaded", nil)
	}
	return nil
}

// Status returns a point-in-time snapshot of the coordinator.
func (c *Coordinator) Status() StatusReport {
	c.mu.Lock()
	ready := c.initialized
	active := c.active > 0
	c.mu.Unlock()

	return StatusReport{
		Ready:            ready,
		Active:           active,
		Stats:            c.stats.Snapshot(),
		MaxParallel:      c.gate.Bound(),
		AvailableActions: c.registry.Tags(),
	}
}

// Stats returns a copy of the lifetime counters.
func (c *Coordinator) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// ExecutePlan runs the plan's actions in order and returns a summary. It
// never panics and the summary is never nil: orchestration failures,
// cancellation, and handler failures are all folded into the summary, with
// Error set when the plan did not run to its natural end.
func (c *Coordinator) ExecutePlan(ctx context.Context, plan *Plan) *ExecutionSummary {
	summary := &ExecutionSummary{
		ExecutionID: newExecutionID(),
	}
	if plan != nil {
		summary.Task = plan.Task
	}

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		summary.Error = ErrNotInitialized.Error()
		return summary
	}
	c.active++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()

	if plan == nil || len(plan.Actions) == 0 {
		summary.Error = "plan has no actions"
		return summary
	}

	logger := c.logger.With().Str("execution_id", summary.ExecutionID).Logger()
	logger.Info().Str("task", plan.Task).Int("actions", len(plan.Actions)).Msg("plan execution started")
	c.publish(ctx, Event{
		ExecutionID: summary.ExecutionID,
		Step:        -1,
		Type:        EventTypeExecutionStarted,
		Message:     fmt.Sprintf("executing %d actions", len(plan.Actions)),
		Severity:    "info",
		Timestamp:   time.Now(),
	})

	start := time.Now()
	c.runSteps(ctx, logger, plan, summary)
	summary.Duration = time.Since(start)
	summary.TotalActions = len(summary.Results)
	for _, r := range summary.Results {
		if r.Status == StatusCompleted {
			summary.SuccessfulActions++
		} else {
			summary.FailedActions++
		}
	}
	summary.Success = summary.Error == "" &&
		summary.FailedActions == 0 &&
		summary.TotalActions == len(plan.Actions)

	c.stats.RecordExecution(summary.SuccessfulActions, summary.FailedActions, summary.Duration)
	if c.metrics != nil {
		c.metrics.ObserveExecution(summary.Success, summary.Duration)
	}
	c.finish(ctx, logger, summary)
	return summary
}

// runSteps executes the plan steps, recovering panics into summary.Error so
// a misbehaving handler yields a partial ledger instead of unwinding the
// caller.
func (c *Coordinator) runSteps(ctx context.Context, logger zerolog.Logger, plan *Plan, summary *ExecutionSummary) {
	defer func() {
		if r := recover(); r != nil {
			summary.Error = NewOrchestrationError(fmt.Sprintf("panic during execution: %v", r), nil).Error()
			logger.Error().Interface("panic", r).Msg("plan execution panicked")
		}
	}()

	aborted := false
	for step, action := range plan.Actions {
		if aborted || ctx.Err() != nil {
			if !aborted && ctx.Err() != nil {
				summary.Error = NewOrchestrationError("execution cancelled", ctx.Err()).Error()
				aborted = true
			}
			c.markSkipped(ctx, logger, summary, step, action)
			continue
		}

		result := c.executeAction(ctx, logger, summary.ExecutionID, step, action)
		summary.Results = append(summary.Results, result)
		c.record(ctx, logger, summary.ExecutionID, step, &result)
		if c.metrics != nil {
			c.metrics.ObserveAction(action.Type, result.Status, result.Duration)
		}

		if result.Status != StatusCompleted && !action.RetryOnFail {
			summary.Error = fmt.Sprintf("critical action failed at step %d: %s", step, result.Error)
			logger.Warn().Int("step", step).Str("action_type", string(action.Type)).
				Msg("critical action failed, aborting plan")
			aborted = true
			continue
		}

		if c.pacing > 0 && step < len(plan.Actions)-1 {
			if err := c.sleeper.Sleep(ctx, c.pacing); err != nil {
				summary.Error = NewOrchestrationError("execution cancelled", err).Error()
				aborted = true
			}
		}
	}
}

// executeAction runs one step through the retry loop and returns its
// terminal result.
func (c *Coordinator) executeAction(ctx context.Context, logger zerolog.Logger, executionID string, step int, action Action) ExecutionResult {
	result := ExecutionResult{
		ActionID: fmt.Sprintf("step_%d", step),
		Status:   StatusRunning,
	}
	start := time.Now()

	c.publish(ctx, Event{
		ExecutionID: executionID,
		Step:        step,
		ActionType:  action.Type,
		Type:        EventTypeActionStarted,
		Message:     action.Description,
		Severity:    "info",
		Timestamp:   time.Now(),
	})

	if _, err := c.registry.Resolve(action.Type); err != nil {
		// Unknown tags fail immediately: no gate, no retries, no
		// backend interaction.
		result.Status = StatusFailed
		result.Error = err.Error()
		result.Duration = time.Since(start)
		c.publishFailure(ctx, executionID, step, action, result.Error)
		return result
	}

	var lastErr error
	for attempt := 0; attempt < c.policy.Attempts(); attempt++ {
		if attempt > 0 {
			result.Status = StatusRetrying
			result.RetryCount = attempt
			c.stats.RecordRetry()
			if c.metrics != nil {
				c.metrics.AddRetry(action.Type)
			}
			delay := c.policy.Backoff(attempt - 1)
			logger.Debug().Int("step", step).Int("attempt", attempt).
				Dur("backoff", delay).Msg("retrying action")
			c.publish(ctx, Event{
				ExecutionID: executionID,
				Step:        step,
				ActionType:  action.Type,
				Type:        EventTypeActionRetrying,
				Message:     fmt.Sprintf("attempt %d of %d", attempt+1, c.policy.Attempts()),
				Severity:    "warn",
				Timestamp:   time.Now(),
			})
			if err := c.sleeper.Sleep(ctx, delay); err != nil {
				lastErr = NewOrchestrationError("retry backoff interrupted", err)
				break
			}
		}

		// Duration covers only the attempt that produced the terminal
		// result; earlier attempts and backoff waits are not counted.
		start = time.Now()
		data, err := c.invoke(ctx, action)
		if err == nil {
			result.Status = StatusCompleted
			result.Data = data
			result.Duration = time.Since(start)
			c.publish(ctx, Event{
				ExecutionID: executionID,
				Step:        step,
				ActionType:  action.Type,
				Type:        EventTypeActionCompleted,
				Message:     action.Description,
				Severity:    "info",
				Timestamp:   time.Now(),
			})
			return result
		}

		lastErr = err
		if IsValidation(err) || ctx.Err() != nil {
			break
		}
		logger.Debug().Int("step", step).Int("attempt", attempt).Err(err).Msg("action attempt failed")
	}

	if lastErr != nil && !IsValidation(lastErr) && ctx.Err() == nil && result.RetryCount == c.policy.MaxRetries {
		lastErr = NewExhaustedError(
			fmt.Sprintf("action failed after %d attempts", c.policy.Attempts()), lastErr)
	}

	result.Status = StatusFailed
	result.Error = lastErr.Error()
	result.Duration = time.Since(start)
	c.publishFailure(ctx, executionID, step, action, result.Error)
	return result
}

// invoke runs the handler under the concurrency gate, applying the action's
// per-attempt timeout. The gate is held only for the handler call itself;
// backoff and pacing happen outside it.
func (c *Coordinator) invoke(ctx context.Context, action Action) (map[string]any, error) {
	handler, err := c.registry.Resolve(action.Type)
	if err != nil {
		return nil, err
	}

	attemptCtx := ctx
	timeout := action.TimeoutDuration()
	if timeout <= 0 {
		timeout = c.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := c.gate.Acquire(attemptCtx); err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, NewTimeoutError("timed out waiting for execution slot", err)
		}
		return nil, NewOrchestrationError("gate acquisition failed", err)
	}
	defer c.gate.Release()

	data, err := handler(attemptCtx, action)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, NewTimeoutError(
				fmt.Sprintf("action exceeded its %s budget", timeout), err)
		}
		return nil, err
	}
	return data, nil
}

// markSkipped appends an audit marker for a step that was never attempted.
func (c *Coordinator) markSkipped(ctx context.Context, logger zerolog.Logger, summary *ExecutionSummary, step int, action Action) {
	marker := ExecutionResult{
		ActionID: fmt.Sprintf("step_%d", step),
		Status:   StatusSkipped,
		Error:    "skipped after critical failure",
	}
	summary.Skipped = append(summary.Skipped, marker)
	logger.Debug().Int("step", step).Str("action_type", string(action.Type)).Msg("action skipped")
	c.publish(ctx, Event{
		ExecutionID: summary.ExecutionID,
		Step:        step,
		ActionType:  action.Type,
		Type:        EventTypeActionSkipped,
		Message:     marker.Error,
		Severity:    "warn",
		Timestamp:   time.Now(),
	})
}

// finish logs, publishes, and persists the terminal summary.
func (c *Coordinator) finish(ctx context.Context, logger zerolog.Logger, summary *ExecutionSummary) {
	eventType := EventTypeExecutionCompleted
	severity := "info"
	if !summary.Success {
		eventType = EventTypeExecutionFailed
		severity = "error"
	}
	logger.Info().
		Bool("success", summary.Success).
		Int("successful", summary.SuccessfulActions).
		Int("failed", summary.FailedActions).
		Int("skipped", len(summary.Skipped)).
		Dur("duration", summary.Duration).
		Msg("plan execution finished")
	c.publish(ctx, Event{
		ExecutionID: summary.ExecutionID,
		Step:        -1,
		Type:        eventType,
		Message:     fmt.Sprintf("%d/%d actions succeeded", summary.SuccessfulActions, summary.TotalActions),
		Severity:    severity,
		Timestamp:   time.Now(),
	})

	if c.recorder != nil {
		if err := c.recorder.SaveExecution(ctx, summary); err != nil {
			logger.Warn().Err(err).Msg("failed to persist execution summary")
		}
	}
}

// record persists one step result, logging and swallowing failures.
func (c *Coordinator) record(ctx context.Context, logger zerolog.Logger, executionID string, step int, result *ExecutionResult) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.SaveResult(ctx, executionID, step, result); err != nil {
		logger.Warn().Err(err).Int("step", step).Msg("failed to persist action result")
	}
}

// publish sends one event, logging and swallowing failures.
func (c *Coordinator) publish(ctx context.Context, event Event) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("failed to publish event")
	}
}

func (c *Coordinator) publishFailure(ctx context.Context, executionID string, step int, action Action, message string) {
	c.publish(ctx, Event{
		ExecutionID: executionID,
		Step:        step,
		ActionType:  action.Type,
		Type:        EventTypeActionFailed,
		Message:     message,
		Severity:    "error",
		Timestamp:   time.Now(),
	})
}

// newExecutionID returns a fresh short execution identifier.
func newExecutionID() string {
	return "exec_" + uuid.New().String()[:8]
}
