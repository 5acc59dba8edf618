package job

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKind = "test.kind"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func fastConfig() RunnerConfig {
	cfg := DefaultRunnerConfig()
	cfg.WorkerCount = 2
	cfg.QueueSize = 10
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	cfg.StuckJobCheckInterval = time.Hour
	return cfg
}

func waitForStatus(t *testing.T, store *mockStore, job *Job, want Status) Job {
	t.Helper()
	require.Eventually(t, func() bool {
		return store.get(job.ID).Status == want
	}, 2*time.Second, 5*time.Millisecond, "job never reached status %s", want)
	return store.get(job.ID)
}

func TestRunner_Submit(t *testing.T) {
	t.Parallel()

	noop := HandlerFunc(func(context.Context, json.RawMessage) error { return nil })

	t.Run("persists before queueing", func(t *testing.T) {
		t.Parallel()
		store := newMockStore()
		runner := NewRunner(store, fastConfig(), testLogger())
		runner.Register(testKind, noop)

		job := New(testKind, json.RawMessage(`{"task_id":1}`))
		require.NoError(t, runner.Submit(context.Background(), job))

		pending, _ := store.ListPending(context.Background())
		require.Len(t, pending, 1)
		assert.Equal(t, job.ID, pending[0].ID)
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		runner := NewRunner(newMockStore(), fastConfig(), testLogger())
		err := runner.Submit(context.Background(), New("missing", nil))
		assert.ErrorIs(t, err, ErrNoHandler)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		store := newMockStore()
		store.SaveFn = func(context.Context, *Job) error { return errors.New("db down") }
		runner := NewRunner(store, fastConfig(), testLogger())
		runner.Register(testKind, noop)

		err := runner.Submit(context.Background(), New(testKind, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save job")
	})

	t.Run("queue full keeps the job pending", func(t *testing.T) {
		t.Parallel()
		store := newMockStore()
		cfg := fastConfig()
		cfg.QueueSize = 1
		runner := NewRunner(store, cfg, testLogger())
		runner.Register(testKind, noop)

		require.NoError(t, runner.Submit(context.Background(), New(testKind, nil)))
		err := runner.Submit(context.Background(), New(testKind, nil))
		assert.ErrorIs(t, err, ErrQueueFull)

		pending, _ := store.ListPending(context.Background())
		assert.Len(t, pending, 2)
	})

	t.Run("rejected after stop", func(t *testing.T) {
		t.Parallel()
		runner := NewRunner(newMockStore(), fastConfig(), testLogger())
		runner.Register(testKind, noop)
		require.NoError(t, runner.Start())
		runner.Stop()

		assert.ErrorIs(t, runner.Submit(context.Background(), New(testKind, nil)), ErrRunnerStopped)
	})
}

func TestRunner_Execution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		maxAttempts  int
		softLimit    time.Duration
		handler      func(calls *atomic.Int32) HandlerFunc
		wantStatus   Status
		wantAttempts int
		wantErrText  string
	}{
		{
			name:        "succeeds first time",
			maxAttempts: 3,
			handler: func(calls *atomic.Int32) HandlerFunc {
				return func(context.Context, json.RawMessage) error {
					calls.Add(1)
					return nil
				}
			},
			wantStatus:   StatusCompleted,
			wantAttempts: 1,
		},
		{
			name:        "transient failures are retried",
			maxAttempts: 3,
			handler: func(calls *atomic.Int32) HandlerFunc {
				return func(context.Context, json.RawMessage) error {
					if calls.Add(1) < 3 {
						return errors.New("smtp unavailable")
					}
					return nil
				}
			},
			wantStatus:   StatusCompleted,
			wantAttempts: 3,
		},
		{
			name:        "attempts are bounded",
			maxAttempts: 2,
			handler: func(calls *atomic.Int32) HandlerFunc {
				return func(context.Context, json.RawMessage) error {
					calls.Add(1)
					return errors.New("smtp unavailable")
				}
			},
			wantStatus:   StatusFailed,
			wantAttempts: 2,
			wantErrText:  "smtp unavailable",
		},
		{
			name:        "permanent errors are not retried",
			maxAttempts: 3,
			handler: func(calls *atomic.Int32) HandlerFunc {
				return func(context.Context, json.RawMessage) error {
					calls.Add(1)
					return Permanent(errors.New("bad payload"))
				}
			},
			wantStatus:   StatusFailed,
			wantAttempts: 1,
			wantErrText:  "bad payload",
		},
		{
			name:        "soft time limit cancels the attempt",
			maxAttempts: 1,
			softLimit:   20 * time.Millisecond,
			handler: func(calls *atomic.Int32) HandlerFunc {
				return func(ctx context.Context, _ json.RawMessage) error {
					calls.Add(1)
					<-ctx.Done()
					return ctx.Err()
				}
			},
			wantStatus:   StatusFailed,
			wantAttempts: 1,
			wantErrText:  "soft time limit exceeded",
		},
		{
			name:        "handler panic fails the job",
			maxAttempts: 3,
			handler: func(calls *atomic.Int32) HandlerFunc {
				return func(context.Context, json.RawMessage) error {
					calls.Add(1)
					panic("nil map")
				}
			},
			wantStatus:   StatusFailed,
			wantAttempts: 1,
			wantErrText:  "job handler panicked: nil map",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMockStore()
			cfg := fastConfig()
			cfg.MaxAttempts = tt.maxAttempts
			if tt.softLimit > 0 {
				cfg.SoftTimeLimit = tt.softLimit
			}
			runner := NewRunner(store, cfg, testLogger())

			var calls atomic.Int32
			runner.Register(testKind, tt.handler(&calls))

			failed := make(chan error, 1)
			runner.SetErrorHandler(func(_ *Job, err error) { failed <- err })

			require.NoError(t, runner.Start())
			defer runner.Stop()

			job := New(testKind, nil)
			require.NoError(t, runner.Submit(context.Background(), job))

			got := waitForStatus(t, store, job, tt.wantStatus)
			assert.Equal(t, tt.wantAttempts, got.Attempts)
			assert.Equal(t, int32(tt.wantAttempts), calls.Load())

			if tt.wantStatus == StatusFailed {
				assert.Contains(t, got.LastError, tt.wantErrText)
				select {
				case err := <-failed:
					assert.Contains(t, err.Error(), tt.wantErrText)
				case <-time.After(2 * time.Second):
					t.Fatal("error handler was not called")
				}
			} else {
				assert.Empty(t, got.LastError)
			}
		})
	}
}

func TestRunner_Recover(t *testing.T) {
	t.Parallel()

	pending := New(testKind, nil)
	interrupted := New(testKind, nil)
	interrupted.Status = StatusProcessing
	interrupted.Attempts = 1
	done := New(testKind, nil)
	done.Status = StatusCompleted

	store := newMockStore(pending, interrupted, done)
	runner := NewRunner(store, fastConfig(), testLogger())

	var calls atomic.Int32
	runner.Register(testKind, HandlerFunc(func(context.Context, json.RawMessage) error {
		calls.Add(1)
		return nil
	}))

	require.NoError(t, runner.Start())
	defer runner.Stop()

	waitForStatus(t, store, pending, StatusCompleted)
	got := waitForStatus(t, store, interrupted, StatusCompleted)

	assert.Equal(t, 2, got.Attempts, "recovered job keeps its earlier attempt count")
	assert.Equal(t, []Status{StatusPending, StatusProcessing, StatusCompleted}, store.statuses(interrupted.ID))
	assert.Empty(t, store.statuses(done.ID))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunner_RecoveredJobOverBudgetFails(t *testing.T) {
	t.Parallel()

	exhausted := New(testKind, nil)
	exhausted.Attempts = 3

	store := newMockStore(exhausted)
	cfg := fastConfig()
	cfg.MaxAttempts = 3
	runner := NewRunner(store, cfg, testLogger())
	runner.Register(testKind, HandlerFunc(func(context.Context, json.RawMessage) error {
		t.Error("handler must not run")
		return nil
	}))

	require.NoError(t, runner.Start())
	defer runner.Stop()

	got := waitForStatus(t, store, exhausted, StatusFailed)
	assert.Contains(t, got.LastError, "attempt budget exhausted")
}

func TestRunner_RequeueStuck(t *testing.T) {
	t.Parallel()

	stuck := New(testKind, nil)
	stuck.Status = StatusProcessing
	stuck.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	fresh := New(testKind, nil)
	fresh.Status = StatusProcessing

	store := newMockStore(stuck, fresh)
	cfg := fastConfig()
	cfg.StuckJobAge = 10 * time.Minute
	runner := NewRunner(store, cfg, testLogger())

	runner.requeueStuck(context.Background())

	assert.Equal(t, StatusPending, store.get(stuck.ID).Status)
	assert.Equal(t, StatusProcessing, store.get(fresh.ID).Status)
	require.Len(t, runner.queue, 1)
	assert.Equal(t, stuck.ID, (<-runner.queue).ID)
}

func TestConfigFromJobs(t *testing.T) {
	cfg := ConfigFromJobs(config.JobsConfig{
		WorkerCount:        8,
		QueueSize:          64,
		MaxAttempts:        5,
		SoftTimeLimitSecs:  120,
		RetryBaseDelayMs:   250,
		StuckJobAgeMinutes: 15,
	})

	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 120*time.Second, cfg.SoftTimeLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 15*time.Minute, cfg.StuckJobAge)
	assert.Equal(t, DefaultRunnerConfig().StuckJobCheckInterval, cfg.StuckJobCheckInterval)
}
