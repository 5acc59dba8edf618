package mocks

import (
	"context"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/service"
)

// MockTaskService implements service.TaskService for testing.
type MockTaskService struct {
	CreateTaskFn func(ctx context.Context, actorID int64, in domain.NewTaskInput) (*domain.TaskDetails, error)
	GetTaskFn    func(ctx context.Context, actorID, taskID int64) (*domain.TaskDetails, error)
	UpdateTaskFn func(ctx context.Context, actorID, taskID int64, patch domain.TaskPatch) (*domain.TaskDetails, error)
	DeleteTaskFn func(ctx context.Context, actorID, taskID int64) error
	ListTasksFn  func(ctx context.Context, actorID int64, filter domain.TaskFilter) (*domain.TaskPage, error)

	Err error
}

var _ service.TaskService = (*MockTaskService)(nil)

// CreateTask implements service.TaskService.
func (m *MockTaskService) CreateTask(
	ctx context.Context,
	actorID int64,
	in domain.NewTaskInput,
) (*domain.TaskDetails, error) {
	if m.CreateTaskFn != nil {
		return m.CreateTaskFn(ctx, actorID, in)
	}
	return nil, m.Err
}

// GetTask implements service.TaskService.
func (m *MockTaskService) GetTask(ctx context.Context, actorID, taskID int64) (*domain.TaskDetails, error) {
	if m.GetTaskFn != nil {
		return m.GetTaskFn(ctx, actorID, taskID)
	}
	return nil, m.Err
}

// UpdateTask implements service.TaskService.
func (m *MockTaskService) UpdateTask(
	ctx context.Context,
	actorID, taskID int64,
	patch domain.TaskPatch,
) (*domain.TaskDetails, error) {
	if m.UpdateTaskFn != nil {
		return m.UpdateTaskFn(ctx, actorID, taskID, patch)
	}
	return nil, m.Err
}

// DeleteTask implements service.TaskService.
func (m *MockTaskService) DeleteTask(ctx context.Context, actorID, taskID int64) error {
	if m.DeleteTaskFn != nil {
		return m.DeleteTaskFn(ctx, actorID, taskID)
	}
	return m.Err
}

// ListTasks implements service.TaskService.
func (m *MockTaskService) ListTasks(
	ctx context.Context,
	actorID int64,
	filter domain.TaskFilter,
) (*domain.TaskPage, error) {
	if m.ListTasksFn != nil {
		return m.ListTasksFn(ctx, actorID, filter)
	}
	return nil, m.Err
}
