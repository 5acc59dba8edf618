package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/taskman-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
//
// Owner-scoped methods treat a task whose project belongs to another user the
// same as a missing task and return ErrTaskNotFound.
type TaskStore interface {
	// Create inserts the task and sets its ID.
	Create(ctx context.Context, task *domain.Task) error

	// GetForOwner loads a task through its project, checking ownership.
	// Inside a transaction the row is locked for update.
	GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Task, error)

	// GetDetails loads a task with its project and assignee without any
	// ownership check. Used by background jobs.
	GetDetails(ctx context.Context, id int64) (*domain.TaskDetails, error)

	// Update writes every mutable column of the task.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task owned (through its project) by ownerID.
	Delete(ctx context.Context, id, ownerID int64) error

	// List returns one page of the owner's tasks plus the total match count.
	// The filter must already be normalized.
	List(ctx context.Context, ownerID int64, filter domain.TaskFilter) (*domain.TaskPage, error)

	// ListByProject returns all tasks of one project ordered by creation.
	ListByProject(ctx context.Context, projectID int64) ([]domain.Task, error)

	// ListOverdue returns tasks due before now that are not done and have an
	// assignee, ordered by assignee then due date.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.OverdueTask, error)

	WithTx(tx *sql.Tx) TaskStore
}
