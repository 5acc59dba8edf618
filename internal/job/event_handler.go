package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskman-api/internal/events"
)

// Submitter accepts jobs for execution. Implemented by *Runner.
type Submitter interface {
	Submit(ctx context.Context, job *Job) error
}

// EventHandler turns job request events into persisted jobs and submits them.
type EventHandler struct {
	runner Submitter
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler that submits to runner.
func NewEventHandler(runner Submitter, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		runner: runner,
		logger: logger.With(slog.String("component", "job_event_handler")),
	}
}

// HandleEvent creates a job from the event and submits it to the runner.
func (h *EventHandler) HandleEvent(ctx context.Context, event *events.JobRequestEvent) error {
	job := New(event.Kind, event.Payload)

	log := h.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_kind", job.Kind),
	)

	if err := h.runner.Submit(ctx, job); err != nil {
		log.Error("failed to submit job", slog.String("error", err.Error()))
		return fmt.Errorf("failed to submit job: %w", err)
	}

	log.Debug("job submitted")
	return nil
}

var _ events.EventHandler = (*EventHandler)(nil)
