package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/store"
)

// ProjectService manages projects on behalf of their owner.
type ProjectService interface {
	CreateProject(ctx context.Context, ownerID int64, name string, description *string) (*domain.Project, error)
	ListProjects(ctx context.Context, ownerID int64) ([]domain.Project, error)
	GetProject(ctx context.Context, ownerID, projectID int64) (*domain.ProjectWithTasks, error)
	UpdateProject(ctx context.Context, ownerID, projectID int64, patch domain.ProjectPatch) (*domain.Project, error)

	// DeleteProject removes the project and all of its tasks.
	DeleteProject(ctx context.Context, ownerID, projectID int64) error
}

type projectServiceImpl struct {
	db       *sql.DB
	projects store.ProjectStore
	tasks    store.TaskStore
	logger   *slog.Logger
}

var _ ProjectService = (*projectServiceImpl)(nil)

// NewProjectService creates a ProjectService.
func NewProjectService(
	db *sql.DB,
	projects store.ProjectStore,
	tasks store.TaskStore,
	logger *slog.Logger,
) (ProjectService, error) {
	switch {
	case db == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	case projects == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "projects cannot be nil"}
	case tasks == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "tasks cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &projectServiceImpl{
		db:       db,
		projects: projects,
		tasks:    tasks,
		logger:   logger.With(slog.String("component", "project_service")),
	}, nil
}

// CreateProject implements ProjectService.
func (s *projectServiceImpl) CreateProject(
	ctx context.Context,
	ownerID int64,
	name string,
	description *string,
) (*domain.Project, error) {
	project, err := domain.NewProject(ownerID, name, description)
	if err != nil {
		return nil, err
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, NewServiceError("create_project", "failed to save project", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("project created",
		slog.Int64("project_id", project.ID),
		slog.Int64("owner_id", ownerID))
	return project, nil
}

// ListProjects implements ProjectService.
func (s *projectServiceImpl) ListProjects(ctx context.Context, ownerID int64) ([]domain.Project, error) {
	projects, err := s.projects.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewServiceError("list_projects", "failed to list projects", err)
	}
	return projects, nil
}

// GetProject implements ProjectService.
func (s *projectServiceImpl) GetProject(
	ctx context.Context,
	ownerID, projectID int64,
) (*domain.ProjectWithTasks, error) {
	project, err := s.projects.GetForOwner(ctx, projectID, ownerID)
	if err != nil {
		return nil, NewServiceError("get_project", "failed to load project", err)
	}

	tasks, err := s.tasks.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, NewServiceError("get_project", "failed to load project tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	return &domain.ProjectWithTasks{Project: *project, Tasks: tasks}, nil
}

// UpdateProject implements ProjectService.
func (s *projectServiceImpl) UpdateProject(
	ctx context.Context,
	ownerID, projectID int64,
	patch domain.ProjectPatch,
) (*domain.Project, error) {
	var project *domain.Project
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txProjects := s.projects.WithTx(tx)

		var err error
		project, err = txProjects.GetForOwner(ctx, projectID, ownerID)
		if err != nil {
			return NewServiceError("update_project", "failed to load project", err)
		}
		if err := patch.Apply(project); err != nil {
			return err
		}
		if err := txProjects.Update(ctx, project); err != nil {
			return NewServiceError("update_project", "failed to save project", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("project updated",
		slog.Int64("project_id", projectID))
	return project, nil
}

// DeleteProject implements ProjectService.
func (s *projectServiceImpl) DeleteProject(ctx context.Context, ownerID, projectID int64) error {
	if err := s.projects.Delete(ctx, projectID, ownerID); err != nil {
		return NewServiceError("delete_project", "failed to delete project", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("project deleted",
		slog.Int64("project_id", projectID),
		slog.Int64("owner_id", ownerID))
	return nil
}
