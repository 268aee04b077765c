package engine

import (
	"sync"
	"time"
)

// StatsSnapshot is a copy of the lifetime counters at one point in time.
type StatsSnapshot struct {
	// ActionsExecuted counts every recorded ledger entry, completed or failed.
	ActionsExecuted int64 `json:"actions_executed"`

	// ActionsFailed counts ledger entries with failed status.
	ActionsFailed int64 `json:"actions_failed"`

	// TotalRetries counts retry attempts, that is attempts beyond each
	// action's first. An action that exhausts MaxRetries=3 adds 3.
	TotalRetries int64 `json:"total_retries"`

	// TotalDuration is the accumulated wall time of all executed plans.
	TotalDuration time.Duration `json:"total_duration"`
}

// Stats maintains process-wide running counters across the lifetime of a
// coordinator instance. Counters reset only on construction.
type Stats struct {
	mu       sync.Mutex
	snapshot StatsSnapshot
}

// NewStats creates a zeroed stats collector.
func NewStats() *Stats {
	return &Stats{}
}

// RecordRetry counts one retry attempt.
func (s *Stats) RecordRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.TotalRetries++
}

// RecordExecution folds one plan's ledger totals into the lifetime counters.
func (s *Stats) RecordExecution(executed, failed int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.ActionsExecuted += int64(executed)
	s.snapshot.ActionsFailed += int64(failed)
	s.snapshot.TotalDuration += duration
}

// Snapshot returns a copy of the counters, not a shared reference.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}
