package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/events"
	"github.com/phrazzld/taskman-api/internal/job"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/store"
)

// TaskReader loads a task with its project and assignee.
type TaskReader interface {
	GetDetails(ctx context.Context, id int64) (*domain.TaskDetails, error)
}

// Notifier sends per-task notifications. It always reloads the task so a
// delayed or repeated job reflects current state.
type Notifier struct {
	tasks    TaskReader
	channel  Channel
	composer *Composer
	logger   *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(tasks TaskReader, channel Channel, logger *slog.Logger) *Notifier {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if channel == nil {
		panic("channel cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		tasks:    tasks,
		channel:  channel,
		composer: NewComposer(),
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// NotifyAssigned emails the task's current assignee. A task that no longer
// exists or has no assignee is skipped without error.
func (n *Notifier) NotifyAssigned(ctx context.Context, taskID int64) error {
	return n.notify(ctx, taskID, "assigned", n.composer.Assigned)
}

// NotifyStatusChanged emails the task's current assignee about its status.
func (n *Notifier) NotifyStatusChanged(ctx context.Context, taskID int64) error {
	return n.notify(ctx, taskID, "status_changed", n.composer.StatusChanged)
}

func (n *Notifier) notify(
	ctx context.Context,
	taskID int64,
	kind string,
	compose func(*domain.TaskDetails) (Message, error),
) error {
	log := logger.FromContextOrDefault(ctx, n.logger).With(
		slog.Int64("task_id", taskID),
		slog.String("notification", kind),
	)

	details, err := n.tasks.GetDetails(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.Info("task no longer exists, skipping notification")
			return nil
		}
		return fmt.Errorf("failed to load task %d: %w", taskID, err)
	}
	if details.Assignee == nil {
		log.Info("task has no assignee, skipping notification")
		return nil
	}

	msg, err := compose(details)
	if err != nil {
		return job.Permanent(err)
	}

	if err := n.channel.Send(ctx, details.Assignee.Email, msg.Subject, msg.HTML); err != nil {
		switch {
		case errors.Is(err, ErrInvalidRecipient), errors.Is(err, ErrInvalidAddress):
			log.Warn("undeliverable address, not retrying", slog.String("error", err.Error()))
			return job.Permanent(err)
		case errors.Is(err, ErrTransport):
			return err
		default:
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	log.Info("notification sent", slog.Int64("recipient_id", details.Assignee.ID))
	return nil
}

// Registrar is implemented by job.Runner.
type Registrar interface {
	Register(kind string, handler job.Handler)
}

// RegisterHandlers binds the notification job kinds to this Notifier.
func (n *Notifier) RegisterHandlers(r Registrar) {
	r.Register(events.KindTaskAssigned, n.handler(n.NotifyAssigned))
	r.Register(events.KindTaskStatusChanged, n.handler(n.NotifyStatusChanged))
}

func (n *Notifier) handler(fn func(context.Context, int64) error) job.Handler {
	return job.HandlerFunc(func(ctx context.Context, raw json.RawMessage) error {
		var payload events.TaskNotificationPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return job.Permanent(fmt.Errorf("invalid notification payload: %w", err))
		}
		if payload.TaskID <= 0 {
			return job.Permanent(fmt.Errorf("invalid notification payload: task_id %d", payload.TaskID))
		}
		return fn(ctx, payload.TaskID)
	})
}
