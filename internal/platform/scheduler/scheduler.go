// Package scheduler runs named functions on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// JobInfo describes a scheduled function.
type JobInfo struct {
	Name     string
	CronExpr string
	LastRun  *time.Time
	NextRun  time.Time
}

// Scheduler wraps a gocron scheduler in singleton mode: a job whose previous
// run is still executing is skipped rather than started concurrently.
type Scheduler struct {
	cron    *gocron.Scheduler
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	jobs    map[string]*JobInfo
	handles map[string]*gocron.Job
	running bool
}

// New creates a scheduler evaluating cron expressions in UTC.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron,
		logger:  logger.With(slog.String("component", "scheduler")),
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*JobInfo),
		handles: make(map[string]*gocron.Job),
	}
}

// AddJob registers fn under name. fn receives a context cancelled by Stop.
func (s *Scheduler) AddJob(name, cronExpr string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already exists", name)
	}

	handle, err := s.cron.Cron(cronExpr).Do(func() {
		now := time.Now().UTC()
		s.logger.Info("running scheduled job", slog.String("job", name))

		s.mu.Lock()
		if info, ok := s.jobs[name]; ok {
			info.LastRun = &now
		}
		s.mu.Unlock()

		fn(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %q: %w", name, err)
	}

	s.jobs[name] = &JobInfo{Name: name, CronExpr: cronExpr}
	s.handles[name] = handle
	return nil
}

// Remove unschedules a job.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.handles[name]
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	s.cron.RemoveByReference(handle)
	delete(s.handles, name)
	delete(s.jobs, name)
	return nil
}

// Jobs returns a snapshot of the scheduled jobs.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for name, info := range s.jobs {
		cp := *info
		cp.NextRun = s.handles[name].NextRun()
		out = append(out, cp)
	}
	return out
}

// Start begins executing jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.StartAsync()
	s.running = true
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)))
}

// Stop cancels running jobs' context and stops the scheduler. It waits for
// running jobs, so it must not hold s.mu while doing so.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
