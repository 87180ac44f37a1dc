package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunsImmediatelyAndOnTicks(t *testing.T) {
	var runs int32
	s := New()
	s.Register("counter", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	s.Start()
	time.Sleep(35 * time.Millisecond)
	s.Stop()

	if got := atomic.LoadInt32(&runs); got < 2 {
		t.Errorf("runs = %d, want at least 2", got)
	}
}

func TestStopHaltsJobs(t *testing.T) {
	var runs int32
	s := New()
	s.Register("counter", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	at := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != at {
		t.Errorf("runs advanced after Stop: %d -> %d", at, got)
	}
}

func TestFailingJobKeepsRunning(t *testing.T) {
	var runs int32
	s := New()
	s.Register("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("boom")
	})
	s.Start()
	time.Sleep(35 * time.Millisecond)
	s.Stop()

	if got := atomic.LoadInt32(&runs); got < 2 {
		t.Errorf("runs = %d, want at least 2", got)
	}
}

func TestPanickingJobIsRecovered(t *testing.T) {
	var runs int32
	s := New()
	s.Register("panicky", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		panic("boom")
	})
	s.Start()
	time.Sleep(35 * time.Millisecond)
	s.Stop()

	if got := atomic.LoadInt32(&runs); got < 2 {
		t.Errorf("runs = %d, want at least 2", got)
	}
}
