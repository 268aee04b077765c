// Package tokens tracks language-model token consumption against daily,
// hourly, and per-request budgets so the planner can refuse work before
// overrunning them.
package tokens

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultDailyLimit is the default daily token budget.
	DefaultDailyLimit = 100000

	// DefaultHourlyLimit is the default hourly token budget.
	DefaultHourlyLimit = 20000

	// DefaultPerRequestLimit is the default single-request token budget.
	DefaultPerRequestLimit = 4000

	// historySize bounds the in-memory usage ring.
	historySize = 1000
)

// ErrBudgetExceeded is the sentinel wrapped by every budget refusal.
var ErrBudgetExceeded = errors.New("token budget exceeded")

// Budget is the set of token spending limits.
type Budget struct {
	// DailyLimit caps tokens spent over a rolling day.
	DailyLimit int `yaml:"daily_limit" json:"daily_limit" validate:"omitempty,gt=0"`

	// HourlyLimit caps tokens spent over a rolling hour.
	HourlyLimit int `yaml:"hourly_limit" json:"hourly_limit" validate:"omitempty,gt=0"`

	// PerRequestLimit caps a single model call.
	PerRequestLimit int `yaml:"per_request_limit" json:"per_request_limit" validate:"omitempty,gt=0"`
}

// DefaultBudget returns the default limits.
func DefaultBudget() Budget {
	return Budget{
		DailyLimit:      DefaultDailyLimit,
		HourlyLimit:     DefaultHourlyLimit,
		PerRequestLimit: DefaultPerRequestLimit,
	}
}

// withDefaults fills zero limits with the defaults.
func (b Budget) withDefaults() Budget {
	if b.DailyLimit <= 0 {
		b.DailyLimit = DefaultDailyLimit
	}
	if b.HourlyLimit <= 0 {
		b.HourlyLimit = DefaultHourlyLimit
	}
	if b.PerRequestLimit <= 0 {
		b.PerRequestLimit = DefaultPerRequestLimit
	}
	return b
}

// Usage is one recorded model call.
type Usage struct {
	// Timestamp is when the call finished.
	Timestamp time.Time `json:"timestamp"`

	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens generated.
	CompletionTokens int `json:"completion_tokens"`

	// Model is the model identifier the call used.
	Model string `json:"model"`

	// Operation labels what the call was for ("planning", "reflection").
	Operation string `json:"operation"`
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// WindowUsage aggregates consumption over one rolling window.
type WindowUsage struct {
	// Used is the number of tokens spent in the window.
	Used int `json:"used"`

	// Limit is the configured budget for the window.
	Limit int `json:"limit"`

	// Remaining is Limit minus Used, never negative.
	Remaining int `json:"remaining"`

	// Requests is the number of calls in the window.
	Requests int `json:"requests"`
}

// Snapshot is a point-in-time view of budget state.
type Snapshot struct {
	// Daily is consumption over the last 24 hours.
	Daily WindowUsage `json:"daily"`

	// Hourly is consumption over the last hour.
	Hourly WindowUsage `json:"hourly"`

	// TotalRequests is the lifetime call count.
	TotalRequests int `json:"total_requests"`

	// TotalTokens is the lifetime token count.
	TotalTokens int `json:"total_tokens"`

	// Refusals is the number of calls the budget rejected.
	Refusals int `json:"refusals"`
}

// Manager enforces the budget over an in-memory usage ring. It is safe for
// concurrent use.
type Manager struct {
	budget Budget
	now    func() time.Time

	mu            sync.Mutex
	history       []Usage
	totalRequests int
	totalTokens   int
	refusals      int
}

// NewManager creates a manager. Zero limits in the budget select the
// defaults.
func NewManager(budget Budget) *Manager {
	return &Manager{budget: budget.withDefaults(), now: time.Now}
}

// Budget returns the effective limits.
func (m *Manager) Budget() Budget {
	return m.budget
}

// Estimate approximates the token count of a prompt before sending it,
// assuming roughly four bytes per token.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

// Check reports whether a call of the given size fits every limit, without
// recording anything.
func (m *Manager) Check(promptTokens, completionTokens int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check(promptTokens + completionTokens)
}

// Record verifies the call against the budget and, if allowed, appends it to
// the ledger. A refused call is counted but not recorded.
func (m *Manager) Record(promptTokens, completionTokens int, model, operation string) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := promptTokens + completionTokens
	if err := m.check(total); err != nil {
		m.refusals++
		return Usage{}, err
	}

	u := Usage{
		Timestamp:        m.now(),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Model:            model,
		Operation:        operation,
	}
	m.history = append(m.history, u)
	if len(m.history) > historySize {
		m.history = append(m.history[:0], m.history[len(m.history)-historySize:]...)
	}
	m.totalRequests++
	m.totalTokens += total
	return u, nil
}

// Stats returns a snapshot of budget state.
func (m *Manager) Stats() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Daily:         m.window(24*time.Hour, m.budget.DailyLimit),
		Hourly:        m.window(time.Hour, m.budget.HourlyLimit),
		TotalRequests: m.totalRequests,
		TotalTokens:   m.totalTokens,
		Refusals:      m.refusals,
	}
}

// UsageByOperation aggregates lifetime window history per operation label.
func (m *Manager) UsageByOperation() map[string]WindowUsage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]WindowUsage)
	for _, u := range m.history {
		w := out[u.Operation]
		w.Used += u.Total()
		w.Requests++
		out[u.Operation] = w
	}
	return out
}

// check verifies a call of total tokens against every limit. Caller holds
// the lock.
func (m *Manager) check(total int) error {
	if total > m.budget.PerRequestLimit {
		return fmt.Errorf("%w: request of %d tokens exceeds per-request limit %d",
			ErrBudgetExceeded, total, m.budget.PerRequestLimit)
	}
	if hourly := m.window(time.Hour, m.budget.HourlyLimit); hourly.Used+total > m.budget.HourlyLimit {
		return fmt.Errorf("%w: %d tokens remaining in hourly limit %d",
			ErrBudgetExceeded, hourly.Remaining, m.budget.HourlyLimit)
	}
	if daily := m.window(24*time.Hour, m.budget.DailyLimit); daily.Used+total > m.budget.DailyLimit {
		return fmt.Errorf("%w: %d tokens remaining in daily limit %d",
			ErrBudgetExceeded, daily.Remaining, m.budget.DailyLimit)
	}
	return nil
}

// window sums usage newer than the window start. Caller holds the lock.
func (m *Manager) window(span time.Duration, limit int) WindowUsage {
	cutoff := m.now().Add(-span)
	w := WindowUsage{Limit: limit}
	for _, u := range m.history {
		if u.Timestamp.After(cutoff) {
			w.Used += u.Total()
			w.Requests++
		}
	}
	w.Remaining = limit - w.Used
	if w.Remaining < 0 {
		w.Remaining = 0
	}
	return w
}
