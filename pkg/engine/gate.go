package engine

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxParallel is the default process-wide bound on simultaneously
// in-flight handler invocations.
const DefaultMaxParallel = 2

// Gate bounds the number of handler bodies executing at once across the
// whole process, not per plan. It is acquired immediately before invoking a
// resolved handler and released as soon as the handler returns; backoff and
// inter-step pacing happen outside the gate, so one plan's network wait can
// overlap another plan's click while still capping simultaneous environment
// mutations.
type Gate struct {
	sem   *semaphore.Weighted
	bound int
}

// NewGate creates a gate with the given bound. A non-positive bound falls
// back to DefaultMaxParallel.
func NewGate(bound int) *Gate {
	if bound <= 0 {
		bound = DefaultMaxParallel
	}
	return &Gate{
		sem:   semaphore.NewWeighted(int64(bound)),
		bound: bound,
	}
}

// Acquire blocks until a slot is available or the context is cancelled.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release returns a slot to the gate.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Bound returns the configured admission bound.
func (g *Gate) Bound() int {
	return g.bound
}
