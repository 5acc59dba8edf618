package service_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/events"
	"github.com/phrazzld/taskman-api/internal/store"
	"github.com/stretchr/testify/mock"
)

type mockTaskStore struct {
	mock.Mock
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTaskStore) GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Task, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *mockTaskStore) GetDetails(ctx context.Context, id int64) (*domain.TaskDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskDetails), args.Error(1)
}

func (m *mockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTaskStore) Delete(ctx context.Context, id, ownerID int64) error {
	return m.Called(ctx, id, ownerID).Error(0)
}

func (m *mockTaskStore) List(ctx context.Context, ownerID int64, filter domain.TaskFilter) (*domain.TaskPage, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskPage), args.Error(1)
}

func (m *mockTaskStore) ListByProject(ctx context.Context, projectID int64) ([]domain.Task, error) {
	args := m.Called(ctx, projectID)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *mockTaskStore) ListOverdue(ctx context.Context, now time.Time) ([]domain.OverdueTask, error) {
	args := m.Called(ctx, now)
	tasks, _ := args.Get(0).([]domain.OverdueTask)
	return tasks, args.Error(1)
}

func (m *mockTaskStore) WithTx(*sql.Tx) store.TaskStore { return m }

type mockProjectStore struct {
	mock.Mock
}

func (m *mockProjectStore) Create(ctx context.Context, project *domain.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *mockProjectStore) GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Project, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *mockProjectStore) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Project, error) {
	args := m.Called(ctx, ownerID)
	projects, _ := args.Get(0).([]domain.Project)
	return projects, args.Error(1)
}

func (m *mockProjectStore) Update(ctx context.Context, project *domain.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *mockProjectStore) Delete(ctx context.Context, id, ownerID int64) error {
	return m.Called(ctx, id, ownerID).Error(0)
}

func (m *mockProjectStore) WithTx(*sql.Tx) store.ProjectStore { return m }

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) WithTx(*sql.Tx) store.UserStore { return m }

// recordingEmitter captures emitted events; failWith makes EmitEvent fail.
type recordingEmitter struct {
	events   []*events.JobRequestEvent
	failWith error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.JobRequestEvent) error {
	if e.failWith != nil {
		return e.failWith
	}
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) kinds() []string {
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Kind)
	}
	return out
}
