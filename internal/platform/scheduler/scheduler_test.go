package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddRemove(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob("overdue_sweep", "0 8 * * *", func(context.Context) {}))
	assert.Error(t, s.AddJob("overdue_sweep", "0 9 * * *", func(context.Context) {}))
	assert.Error(t, s.AddJob("broken", "not a cron", func(context.Context) {}))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "overdue_sweep", jobs[0].Name)
	assert.Equal(t, "0 8 * * *", jobs[0].CronExpr)
	assert.Nil(t, jobs[0].LastRun)

	require.NoError(t, s.Remove("overdue_sweep"))
	assert.Error(t, s.Remove("overdue_sweep"))
	assert.Empty(t, s.Jobs())
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(nil)
	assert.False(t, s.IsRunning())

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Error(t, s.ctx.Err())
}

func TestScheduler_StopWhileJobRunning(t *testing.T) {
	s := New(nil)
	started := make(chan struct{})
	finished := make(chan struct{})
	require.NoError(t, s.AddJob("overdue_sweep", "0 8 * * *", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		_ = s.Jobs()
		close(finished)
	}))

	s.Start()
	s.cron.RunAll()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a running job")
	}
	<-finished
	assert.False(t, s.IsRunning())

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.NotNil(t, jobs[0].LastRun)
}
