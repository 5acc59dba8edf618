package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/events"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/store"
)

// TaskService is the task mutation workflow. Every operation is scoped to the
// acting user's projects.
type TaskService interface {
	// CreateTask validates and stores a task in one of the actor's projects and,
	// once committed, requests an assignment notification if it has an assignee.
	CreateTask(ctx context.Context, actorID int64, in domain.NewTaskInput) (*domain.TaskDetails, error)

	// GetTask returns a task with its project and assignee.
	GetTask(ctx context.Context, actorID, taskID int64) (*domain.TaskDetails, error)

	// UpdateTask applies a partial update. After commit it requests an
	// assignment notification when the assignee changed to a user, and a
	// status notification when the status changed and the task has an assignee.
	UpdateTask(ctx context.Context, actorID, taskID int64, patch domain.TaskPatch) (*domain.TaskDetails, error)

	// DeleteTask removes a task. No notification is sent.
	DeleteTask(ctx context.Context, actorID, taskID int64) error

	// ListTasks returns one page of the actor's tasks.
	ListTasks(ctx context.Context, actorID int64, filter domain.TaskFilter) (*domain.TaskPage, error)
}

type taskServiceImpl struct {
	db       *sql.DB
	tasks    store.TaskStore
	projects store.ProjectStore
	users    store.UserStore
	emitter  events.EventEmitter
	now      func() time.Time
	logger   *slog.Logger
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a TaskService. It returns an error if any required
// dependency is nil.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	projects store.ProjectStore,
	users store.UserStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	switch {
	case db == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	case tasks == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "tasks cannot be nil"}
	case projects == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "projects cannot be nil"}
	case users == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "users cannot be nil"}
	case emitter == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "emitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		db:       db,
		tasks:    tasks,
		projects: projects,
		users:    users,
		emitter:  emitter,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	actorID int64,
	in domain.NewTaskInput,
) (*domain.TaskDetails, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(in, s.now())
	if err != nil {
		return nil, err
	}

	var details *domain.TaskDetails
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		project, err := s.projects.WithTx(tx).GetForOwner(ctx, task.ProjectID, actorID)
		if err != nil {
			return NewServiceError("create_task", "failed to load project", err)
		}

		assignee, err := s.loadAssignee(ctx, tx, task.AssignedUserID)
		if err != nil {
			return err
		}

		if err := s.tasks.WithTx(tx).Create(ctx, task); err != nil {
			return NewServiceError("create_task", "failed to save task", err)
		}

		details = &domain.TaskDetails{Task: *task, Project: *project, Assignee: assignee}
		return nil
	})
	if err != nil {
		log.Debug("task creation failed",
			slog.Int64("actor_id", actorID),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.Int64("project_id", task.ProjectID),
		slog.Int64("actor_id", actorID))

	if task.AssignedUserID != nil {
		s.requestNotification(ctx, events.KindTaskAssigned, task.ID)
	}
	return details, nil
}

// GetTask implements TaskService.
func (s *taskServiceImpl) GetTask(ctx context.Context, actorID, taskID int64) (*domain.TaskDetails, error) {
	details, err := s.tasks.GetDetails(ctx, taskID)
	if err != nil {
		return nil, NewServiceError("get_task", "failed to load task", err)
	}
	if details.Project.OwnerID != actorID {
		return nil, ErrNotFoundOrForbidden
	}
	return details, nil
}

// UpdateTask implements TaskService.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	actorID, taskID int64,
	patch domain.TaskPatch,
) (*domain.TaskDetails, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		details           *domain.TaskDetails
		prevStatus        domain.TaskStatus
		prevAssignee      *int64
		assigneeChanged   bool
		statusChanged     bool
		currentlyAssigned bool
	)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		task, err := txTasks.GetForOwner(ctx, taskID, actorID)
		if err != nil {
			return NewServiceError("update_task", "failed to load task", err)
		}

		prevStatus = task.Status
		prevAssignee = task.AssignedUserID

		if !patch.Empty() {
			if err := patch.Apply(task); err != nil {
				return err
			}

			assigneeChanged = task.AssignedUserID != nil && !sameID(prevAssignee, task.AssignedUserID)
			if assigneeChanged {
				if _, err := s.loadAssignee(ctx, tx, task.AssignedUserID); err != nil {
					return err
				}
			}

			if err := txTasks.Update(ctx, task); err != nil {
				return NewServiceError("update_task", "failed to save task", err)
			}
		}

		statusChanged = task.Status != prevStatus
		currentlyAssigned = task.AssignedUserID != nil

		details, err = txTasks.GetDetails(ctx, task.ID)
		if err != nil {
			return NewServiceError("update_task", "failed to reload task", err)
		}
		return nil
	})
	if err != nil {
		log.Debug("task update failed",
			slog.Int64("task_id", taskID),
			slog.Int64("actor_id", actorID),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("task updated",
		slog.Int64("task_id", taskID),
		slog.Bool("assignee_changed", assigneeChanged),
		slog.Bool("status_changed", statusChanged))

	if assigneeChanged {
		s.requestNotification(ctx, events.KindTaskAssigned, taskID)
	}
	if statusChanged && currentlyAssigned {
		s.requestNotification(ctx, events.KindTaskStatusChanged, taskID)
	}
	return details, nil
}

// DeleteTask implements TaskService.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, actorID, taskID int64) error {
	if err := s.tasks.Delete(ctx, taskID, actorID); err != nil {
		return NewServiceError("delete_task", "failed to delete task", err)
	}
	return nil
}

// ListTasks implements TaskService.
func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	actorID int64,
	filter domain.TaskFilter,
) (*domain.TaskPage, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	page, err := s.tasks.List(ctx, actorID, filter)
	if err != nil {
		return nil, NewServiceError("list_tasks", "failed to list tasks", err)
	}
	return page, nil
}

// loadAssignee resolves an assignee id inside the transaction. An unknown
// user is a validation error on the request, not a missing resource.
func (s *taskServiceImpl) loadAssignee(ctx context.Context, tx *sql.Tx, id *int64) (*domain.User, error) {
	if id == nil {
		return nil, nil
	}
	user, err := s.users.WithTx(tx).GetByID(ctx, *id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domain.NewValidationError("assigned_user_id", "user does not exist", domain.ErrInvalidID)
		}
		return nil, NewServiceError("assign_task", "failed to load assignee", err)
	}
	return user, nil
}

// requestNotification is called only after a successful commit. The change is
// already durable, so a failure here is logged and does not fail the request.
func (s *taskServiceImpl) requestNotification(ctx context.Context, kind string, taskID int64) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("kind", kind),
		slog.Int64("task_id", taskID),
	)

	event, err := events.NewJobRequestEvent(kind, events.TaskNotificationPayload{TaskID: taskID})
	if err != nil {
		log.Error("failed to build notification request", slog.String("error", err.Error()))
		return
	}

	if err := s.emitter.EmitEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Error("failed to enqueue notification",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	log.Debug("notification requested", slog.String("event_id", event.ID.String()))
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
