package mocks

import (
	"context"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/service"
)

// MockProjectService implements service.ProjectService for testing.
type MockProjectService struct {
	CreateProjectFn func(ctx context.Context, ownerID int64, name string, description *string) (*domain.Project, error)
	ListProjectsFn  func(ctx context.Context, ownerID int64) ([]domain.Project, error)
	GetProjectFn    func(ctx context.Context, ownerID, projectID int64) (*domain.ProjectWithTasks, error)
	UpdateProjectFn func(
		ctx context.Context,
		ownerID, projectID int64,
		patch domain.ProjectPatch,
	) (*domain.Project, error)
	DeleteProjectFn func(ctx context.Context, ownerID, projectID int64) error

	Err error
}

var _ service.ProjectService = (*MockProjectService)(nil)

// CreateProject implements service.ProjectService.
func (m *MockProjectService) CreateProject(
	ctx context.Context,
	ownerID int64,
	name string,
	description *string,
) (*domain.Project, error) {
	if m.CreateProjectFn != nil {
		return m.CreateProjectFn(ctx, ownerID, name, description)
	}
	return nil, m.Err
}

// ListProjects implements service.ProjectService.
func (m *MockProjectService) ListProjects(ctx context.Context, ownerID int64) ([]domain.Project, error) {
	if m.ListProjectsFn != nil {
		return m.ListProjectsFn(ctx, ownerID)
	}
	return nil, m.Err
}

// GetProject implements service.ProjectService.
func (m *MockProjectService) GetProject(ctx context.Context, ownerID, projectID int64) (*domain.ProjectWithTasks, error) {
	if m.GetProjectFn != nil {
		return m.GetProjectFn(ctx, ownerID, projectID)
	}
	return nil, m.Err
}

// UpdateProject implements service.ProjectService.
func (m *MockProjectService) UpdateProject(
	ctx context.Context,
	ownerID, projectID int64,
	patch domain.ProjectPatch,
) (*domain.Project, error) {
	if m.UpdateProjectFn != nil {
		return m.UpdateProjectFn(ctx, ownerID, projectID, patch)
	}
	return nil, m.Err
}

// DeleteProject implements service.ProjectService.
func (m *MockProjectService) DeleteProject(ctx context.Context, ownerID, projectID int64) error {
	if m.DeleteProjectFn != nil {
		return m.DeleteProjectFn(ctx, ownerID, projectID)
	}
	return m.Err
}
