package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskman-api/internal/domain"
)

// ProjectStore defines the interface for project persistence. Every lookup is
// scoped to an owner: a project that exists but belongs to someone else is
// reported as ErrProjectNotFound.
type ProjectStore interface {
	// Create inserts the project and sets its ID.
	Create(ctx context.Context, project *domain.Project) error

	// GetForOwner retrieves a project owned by ownerID.
	GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Project, error)

	// ListByOwner returns the owner's projects ordered by ID.
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Project, error)

	// Update writes name and description. Returns ErrProjectNotFound if the row
	// is gone or not owned by project.OwnerID.
	Update(ctx context.Context, project *domain.Project) error

	// Delete removes the project and, by cascade, its tasks.
	Delete(ctx context.Context, id, ownerID int64) error

	WithTx(tx *sql.Tx) ProjectStore
}
