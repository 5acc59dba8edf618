package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/store"
)

// PostgresProjectStore implements the store.ProjectStore interface.
type PostgresProjectStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProjectStore creates a new PostgreSQL implementation of the
// ProjectStore interface.
func NewPostgresProjectStore(db store.DBTX, logger *slog.Logger) *PostgresProjectStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProjectStore{
		db:     db,
		logger: logger.With(slog.String("component", "project_store")),
	}
}

var _ store.ProjectStore = (*PostgresProjectStore)(nil)

// WithTx implements store.ProjectStore.WithTx
func (s *PostgresProjectStore) WithTx(tx *sql.Tx) store.ProjectStore {
	return &PostgresProjectStore{db: tx, logger: s.logger}
}

// Create implements store.ProjectStore.Create
func (s *PostgresProjectStore) Create(ctx context.Context, p *domain.Project) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		return err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (name, description, owner_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Name, p.Description, p.OwnerID, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		log.Error("failed to create project",
			slog.Int64("owner_id", p.OwnerID),
			slog.String("error", err.Error()))
		return store.NewStoreError("project", "create", "failed to insert project", MapError(err))
	}

	log.Info("project created",
		slog.Int64("project_id", p.ID),
		slog.Int64("owner_id", p.OwnerID))
	return nil
}

// GetForOwner implements store.ProjectStore.GetForOwner
func (s *PostgresProjectStore) GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Project, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var p domain.Project
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, created_at
		FROM projects
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID).Scan(&p.ID, &p.Name, &desc, &p.OwnerID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("project not found for owner",
				slog.Int64("project_id", id),
				slog.Int64("owner_id", ownerID))
			return nil, store.ErrProjectNotFound
		}
		log.Error("failed to get project",
			slog.Int64("project_id", id),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("project", "get", "failed to query project", MapError(err))
	}
	p.Description = nullStringPtr(desc)
	return &p, nil
}

// ListByOwner implements store.ProjectStore.ListByOwner
func (s *PostgresProjectStore) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Project, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, owner_id, created_at
		FROM projects
		WHERE owner_id = $1
		ORDER BY id
	`, ownerID)
	if err != nil {
		log.Error("failed to list projects",
			slog.Int64("owner_id", ownerID),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("project", "list", "failed to query projects", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	projects := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		var desc sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &desc, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, store.NewStoreError("project", "list", "failed to scan project", err)
		}
		p.Description = nullStringPtr(desc)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("project", "list", "failed to iterate projects", err)
	}
	return projects, nil
}

// Update implements store.ProjectStore.Update
func (s *PostgresProjectStore) Update(ctx context.Context, p *domain.Project) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = $1, description = $2
		WHERE id = $3 AND owner_id = $4
	`, p.Name, p.Description, p.ID, p.OwnerID)
	if err != nil {
		log.Error("failed to update project",
			slog.Int64("project_id", p.ID),
			slog.String("error", err.Error()))
		return store.NewStoreError("project", "update", "failed to update project", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrProjectNotFound)
}

// Delete implements store.ProjectStore.Delete
func (s *PostgresProjectStore) Delete(ctx context.Context, id, ownerID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		log.Error("failed to delete project",
			slog.Int64("project_id", id),
			slog.String("error", err.Error()))
		return store.NewStoreError("project", "delete", "failed to delete project", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrProjectNotFound); err != nil {
		return err
	}

	log.Info("project deleted", slog.Int64("project_id", id))
	return nil
}
