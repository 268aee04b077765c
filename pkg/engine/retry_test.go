package engine

import (
	"context"
	"testing"
	"time"
)

func TestRetryPolicyAttempts(t *testing.T) {
	if got := (RetryPolicy{MaxRetries: 3}).Attempts(); got != 4 {
		t.Errorf("Expected 4 attempts, got %d", got)
	}
	if got := (RetryPolicy{MaxRetries: 0}).Attempts(); got != 1 {
		t.Errorf("Expected 1 attempt, got %d", got)
	}
}

func TestRetryPolicyBackoffDoubles(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, BaseDelay: time.Second}
	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}
	for i, w := range want {
		if got := p.Backoff(i); got != w {
			t.Errorf("Backoff(%d): expected %s, got %s", i, w, got)
		}
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxRetries != 3 || p.BaseDelay != time.Second {
		t.Errorf("Unexpected defaults: %+v", p)
	}
}

func TestClockSleeperRespectsCancellation(t *testing.T) {
	s := NewClockSleeper()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Sleep(ctx, time.Hour); err == nil {
		t.Error("Expected error from cancelled sleep")
	}

	// Zero and negative durations return immediately.
	if err := s.Sleep(context.Background(), 0); err != nil {
		t.Errorf("Zero sleep failed: %v", err)
	}
	if err := s.Sleep(context.Background(), -time.Second); err != nil {
		t.Errorf("Negative sleep failed: %v", err)
	}
}
