package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateDefaultsBound(t *testing.T) {
	if got := NewGate(0).Bound(); got != DefaultMaxParallel {
		t.Errorf("Expected default bound %d, got %d", DefaultMaxParallel, got)
	}
	if got := NewGate(-3).Bound(); got != DefaultMaxParallel {
		t.Errorf("Expected default bound %d, got %d", DefaultMaxParallel, got)
	}
	if got := NewGate(8).Bound(); got != 8 {
		t.Errorf("Expected bound 8, got %d", got)
	}
}

func TestGateBoundsConcurrency(t *testing.T) {
	g := NewGate(2)
	var inFlight, maxSeen int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&maxSeen)
				if cur <= max || atomic.CompareAndSwapInt32(&maxSeen, max, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			g.Release()
		}()
	}
	wg.Wait()

	if max := atomic.LoadInt32(&maxSeen); max > 2 {
		t.Errorf("Gate admitted %d concurrent holders, bound is 2", max)
	}
}

func TestGateAcquireCancelled(t *testing.T) {
	g := NewGate(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); err == nil {
		t.Error("Expected acquire on a full gate to fail with an expired context")
	}
}
