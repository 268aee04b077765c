package engine

import (
	"context"
	"time"
)

// Retry policy defaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
)

// Sleeper abstracts delay so tests can run the full retry and pacing matrix
// without wall-clock waits.
type Sleeper interface {
	// Sleep waits for the given duration or until the context is cancelled.
	Sleep(ctx context.Context, d time.Duration) error
}

// clockSleeper is the production Sleeper backed by time.After.
type clockSleeper struct{}

func (clockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewClockSleeper returns the production Sleeper.
func NewClockSleeper() Sleeper {
	return clockSleeper{}
}

// RetryPolicy computes attempt counts and backoff delays. Attempt indices run
// 0..MaxRetries inclusive, so MaxRetries+1 total attempts. After attempt i
// fails with i < MaxRetries, the next attempt starts after BaseDelay * 2^i.
// There is no jitter and no cap; long retry chains back off aggressively.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns the default policy: 3 retries, 1s base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}
}

// Attempts returns the total number of attempts the policy allows.
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// Backoff returns the delay to wait after attempt i fails.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseDelay << uint(attempt)
}
