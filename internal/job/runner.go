package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/sethvargo/go-retry"
)

// Runner errors
var (
	ErrQueueFull     = errors.New("job queue is full, try again later")
	ErrNoHandler     = errors.New("no handler registered for job kind")
	ErrRunnerStopped = errors.New("job runner is stopped")

	errSoftTimeLimit = errors.New("soft time limit exceeded")
)

const (
	defaultCheckEvery = 5 * time.Minute

	stuckReasonReset = "reset after recovery"
	stuckReasonStuck = "reset after being stuck in processing state"
)

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int

	// MaxAttempts bounds how many times one job is executed before it is
	// marked failed
	MaxAttempts int

	// SoftTimeLimit bounds a single attempt; the handler's context is
	// cancelled when it elapses
	SoftTimeLimit time.Duration

	// RetryBaseDelay is the first backoff delay; it doubles per attempt up to
	// RetryMaxDelay
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// StuckJobAge defines how long a job can sit in processing (or pending
	// without being picked up) before it is re-queued
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs.
	// If zero, defaults to 5 minutes
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           4,
		QueueSize:             256,
		MaxAttempts:           3,
		SoftTimeLimit:         120 * time.Second,
		RetryBaseDelay:        500 * time.Millisecond,
		RetryMaxDelay:         30 * time.Second,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: defaultCheckEvery,
	}
}

// ConfigFromJobs converts the application config into a RunnerConfig.
func ConfigFromJobs(cfg config.JobsConfig) RunnerConfig {
	rc := DefaultRunnerConfig()
	rc.WorkerCount = cfg.WorkerCount
	rc.QueueSize = cfg.QueueSize
	rc.MaxAttempts = cfg.MaxAttempts
	rc.SoftTimeLimit = time.Duration(cfg.SoftTimeLimitSecs) * time.Second
	rc.RetryBaseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
	rc.StuckJobAge = time.Duration(cfg.StuckJobAgeMinutes) * time.Minute
	return rc
}

// Runner manages background job processing
type Runner struct {
	store      Store
	queue      chan *Job
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger

	mu         sync.RWMutex
	handlers   map[string]Handler
	errHandler func(job *Job, err error)
	stopped    bool
}

// NewRunner creates a new Runner. Handlers must be registered before Start.
func NewRunner(store Store, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.StuckJobCheckInterval == 0 {
		cfg.StuckJobCheckInterval = defaultCheckEvery
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRunnerConfig().RetryBaseDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = DefaultRunnerConfig().RetryMaxDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "job_runner"))

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		queue:      make(chan *Job, cfg.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     cfg,
		logger:     logger,
		handlers:   make(map[string]Handler),
		errHandler: func(job *Job, err error) {
			logger.Error("job failed permanently",
				slog.String("job_id", job.ID.String()),
				slog.String("job_kind", job.Kind),
				slog.Int("attempts", job.Attempts),
				slog.String("error", err.Error()))
		},
	}
}

// Register binds a handler to a job kind. Recovered jobs are dispatched
// through the same registry, so every persisted kind needs a handler.
func (r *Runner) Register(kind string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// SetErrorHandler sets the callback invoked when a job fails permanently.
func (r *Runner) SetErrorHandler(handler func(job *Job, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

func (r *Runner) handlerFor(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Submit persists the job and queues it without blocking. A full queue
// returns ErrQueueFull; the job stays pending in the store and is picked up
// by the stuck-job monitor or the next recovery.
func (r *Runner) Submit(ctx context.Context, job *Job) error {
	r.mu.RLock()
	stopped := r.stopped
	r.mu.RUnlock()
	if stopped {
		return ErrRunnerStopped
	}
	if _, ok := r.handlerFor(job.Kind); !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, job.Kind)
	}

	if err := r.store.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case r.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start recovers unfinished jobs and launches the workers and the stuck-job
// monitor.
func (r *Runner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckJobMonitor()

	r.logger.Info("job runner started",
		slog.Int("workers", r.config.WorkerCount),
		slog.Int("queue_size", r.config.QueueSize))
	return nil
}

// Stop cancels in-flight attempts and waits for workers to exit. Jobs that
// were interrupted stay in processing and are recovered on the next start.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("job runner stopped")
}

// Recover loads any unfinished jobs from the store and queues them.
func (r *Runner) Recover(ctx context.Context) error {
	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	// Jobs left in processing were interrupted by a crash or shutdown.
	processing, err := r.store.ListProcessing(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		slog.Int("pending_count", len(pending)),
		slog.Int("processing_count", len(processing)))

	for _, job := range pending {
		r.requeue(job)
	}
	for _, job := range processing {
		if err := r.store.UpdateStatus(ctx, job.ID, StatusPending, job.Attempts, stuckReasonReset); err != nil {
			r.logger.Error("failed to reset processing job status",
				slog.String("job_id", job.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		job.Status = StatusPending
		r.requeue(job)
	}
	return nil
}

func (r *Runner) requeue(job *Job) bool {
	select {
	case r.queue <- job:
		return true
	default:
		r.logger.Error("failed to requeue job, queue is full",
			slog.String("job_id", job.ID.String()),
			slog.String("job_kind", job.Kind))
		return false
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", slog.Int("worker_id", id))

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", slog.Int("worker_id", id))
			return

		case job := <-r.queue:
			r.process(job, id)
		}
	}
}

// process executes one job with retries and records the outcome.
func (r *Runner) process(job *Job, workerID int) {
	ctx := r.ctx
	log := r.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("job_kind", job.Kind),
		slog.Int("worker_id", workerID),
	)

	handler, ok := r.handlerFor(job.Kind)
	if !ok {
		r.fail(ctx, log, job, fmt.Errorf("%w: %s", ErrNoHandler, job.Kind))
		return
	}

	remaining := r.config.MaxAttempts - job.Attempts
	if remaining < 1 {
		r.fail(ctx, log, job, fmt.Errorf("attempt budget exhausted after %d attempts", job.Attempts))
		return
	}

	if err := r.store.UpdateStatus(ctx, job.ID, StatusProcessing, job.Attempts, ""); err != nil {
		log.Error("failed to update job status to processing", slog.String("error", err.Error()))
		return
	}
	job.Status = StatusProcessing

	log.Info("processing job")

	backoff := retry.NewExponential(r.config.RetryBaseDelay)
	backoff = retry.WithCappedDuration(r.config.RetryMaxDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(remaining-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		job.Attempts++
		err := r.attempt(ctx, handler, job)
		if err == nil {
			return nil
		}
		log.Warn("job attempt failed",
			slog.Int("attempt", job.Attempts),
			slog.String("error", err.Error()))
		if errors.Is(err, ErrPermanent) || r.ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})

	if r.ctx.Err() != nil {
		log.Info("runner stopping, leaving job for recovery", slog.Int("attempts", job.Attempts))
		return
	}

	if err != nil {
		r.fail(ctx, log, job, err)
		return
	}

	job.Status = StatusCompleted
	job.LastError = ""
	log.Info("job completed successfully", slog.Int("attempts", job.Attempts))
	if err := r.store.UpdateStatus(ctx, job.ID, StatusCompleted, job.Attempts, ""); err != nil {
		log.Error("failed to update job status to completed", slog.String("error", err.Error()))
	}
}

// attempt runs the handler once under the soft time limit.
func (r *Runner) attempt(ctx context.Context, handler Handler, job *Job) (err error) {
	if r.config.SoftTimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.SoftTimeLimit)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			err = Permanent(fmt.Errorf("job handler panicked: %v", p))
		}
	}()

	err = handler.Handle(ctx, job.Payload)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && r.ctx.Err() == nil {
		err = fmt.Errorf("%w after %s: %w", errSoftTimeLimit, r.config.SoftTimeLimit, err)
	}
	return err
}

func (r *Runner) fail(ctx context.Context, log *slog.Logger, job *Job, err error) {
	job.Status = StatusFailed
	job.LastError = err.Error()
	if updateErr := r.store.UpdateStatus(ctx, job.ID, StatusFailed, job.Attempts, job.LastError); updateErr != nil {
		log.Error("failed to update job status to failed", slog.String("error", updateErr.Error()))
	}

	r.mu.RLock()
	errHandler := r.errHandler
	r.mu.RUnlock()
	errHandler(job, err)
}

// stuckJobMonitor periodically re-queues jobs that have been processing, or
// pending without being picked up, for longer than StuckJobAge.
func (r *Runner) stuckJobMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.requeueStuck(r.ctx)
		}
	}
}

func (r *Runner) requeueStuck(ctx context.Context) {
	stuck, err := r.store.ListProcessing(ctx, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stuck jobs", slog.String("error", err.Error()))
		return
	}

	pending, err := r.store.ListPending(ctx)
	if err != nil {
		r.logger.Error("failed to check for stale pending jobs", slog.String("error", err.Error()))
		return
	}
	cutoff := time.Now().UTC().Add(-r.config.StuckJobAge)
	var stale []*Job
	for _, job := range pending {
		if job.UpdatedAt.Before(cutoff) {
			stale = append(stale, job)
		}
	}

	if len(stuck) == 0 && len(stale) == 0 {
		return
	}
	r.logger.Info("found stuck jobs",
		slog.Int("processing_count", len(stuck)),
		slog.Int("pending_count", len(stale)))

	for _, job := range append(stuck, stale...) {
		if err := r.store.UpdateStatus(ctx, job.ID, StatusPending, job.Attempts, stuckReasonStuck); err != nil {
			r.logger.Error("failed to reset stuck job status",
				slog.String("job_id", job.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		job.Status = StatusPending
		if r.requeue(job) {
			r.logger.Info("requeued stuck job",
				slog.String("job_id", job.ID.String()),
				slog.String("job_kind", job.Kind))
		}
	}
}
