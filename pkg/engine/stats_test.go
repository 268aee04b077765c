package engine

import (
	"sync"
	"testing"
	"time"
)

func TestStatsAccumulateAcrossExecutions(t *testing.T) {
	s := NewStats()
	s.RecordExecution(3, 1, 2*time.Second)
	s.RecordExecution(2, 0, time.Second)
	s.RecordRetry()
	s.RecordRetry()

	snap := s.Snapshot()
	if snap.ActionsExecuted != 5 {
		t.Errorf("Expected 5 executed, got %d", snap.ActionsExecuted)
	}
	if snap.ActionsFailed != 1 {
		t.Errorf("Expected 1 failed, got %d", snap.ActionsFailed)
	}
	if snap.TotalRetries != 2 {
		t.Errorf("Expected 2 retries, got %d", snap.TotalRetries)
	}
	if snap.TotalDuration != 3*time.Second {
		t.Errorf("Expected 3s total, got %s", snap.TotalDuration)
	}
}

func TestStatsSnapshotIsACopy(t *testing.T) {
	s := NewStats()
	s.RecordRetry()
	snap := s.Snapshot()
	snap.TotalRetries = 100

	if s.Snapshot().TotalRetries != 1 {
		t.Error("Mutating a snapshot must not affect the collector")
	}
}

func TestStatsConcurrentRecording(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordExecution(1, 0, time.Millisecond)
			s.RecordRetry()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.ActionsExecuted != 50 || snap.TotalRetries != 50 {
		t.Errorf("Lost updates: %+v", snap)
	}
}
