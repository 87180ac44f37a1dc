// Package scheduler runs named background jobs at fixed intervals.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobFunc does one run of a background job.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	fn       JobFunc
}

// Scheduler owns a set of interval jobs. Jobs run on their own goroutines;
// a panicking job is logged and does not take down the process.
type Scheduler struct {
	jobs   []job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, fn JobFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, fn: fn})
}

// Start launches every registered job. Each job runs once immediately, then
// on every interval tick until Stop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.run(ctx, j)
	}
	log.Printf("[CRON] started %d jobs", len(s.jobs))
}

// Stop signals all jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	log.Printf("[CRON] stopped")
}

func (s *Scheduler) run(ctx context.Context, j job) {
	defer s.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	s.runOnce(ctx, j)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CRON] %s panicked: %v", j.name, r)
		}
	}()
	if err := j.fn(ctx); err != nil {
		log.Printf("[CRON] %s failed: %v", j.name, err)
	}
}
