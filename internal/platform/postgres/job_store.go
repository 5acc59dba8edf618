package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskman-api/internal/job"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/store"
)

// PostgresJobStore implements job.Store on the jobs table.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgresJobStore.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ job.Store = (*PostgresJobStore)(nil)

// Save persists a job to the database
func (s *PostgresJobStore) Save(ctx context.Context, j *job.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, kind, payload, status, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, j.ID, j.Kind, []byte(j.Payload), string(j.Status), j.Attempts, j.LastError, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		log.Error("failed to save job",
			slog.String("job_id", j.ID.String()),
			slog.String("job_kind", j.Kind),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", "create", "failed to save job", MapError(err))
	}
	return nil
}

// UpdateStatus records a status transition.
func (s *PostgresJobStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status job.Status,
	attempts int,
	lastError string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, attempts = $2, last_error = $3, updated_at = $4
		WHERE id = $5
	`, string(status), attempts, lastError, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update job status",
			slog.String("job_id", id.String()),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", "update", "failed to update job status", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrJobNotFound)
}

// ListPending implements job.Store.ListPending
func (s *PostgresJobStore) ListPending(ctx context.Context) ([]*job.Job, error) {
	return s.listByStatus(ctx, job.StatusPending, 0)
}

// ListProcessing implements job.Store.ListProcessing
func (s *PostgresJobStore) ListProcessing(ctx context.Context, olderThan time.Duration) ([]*job.Job, error) {
	return s.listByStatus(ctx, job.StatusProcessing, olderThan)
}

func (s *PostgresJobStore) listByStatus(
	ctx context.Context,
	status job.Status,
	olderThan time.Duration,
) ([]*job.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, kind, payload, status, attempts, last_error, created_at, updated_at
		FROM jobs
		WHERE status = $1`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("job", "list", "failed to query jobs", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []*job.Job
	for rows.Next() {
		var (
			j       job.Job
			payload []byte
			st      string
		)
		if err := rows.Scan(&j.ID, &j.Kind, &payload, &st, &j.Attempts, &j.LastError,
			&j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, store.NewStoreError("job", "list", "failed to scan job", err)
		}
		j.Payload = payload
		j.Status = job.Status(st)
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job", "list", "failed to iterate jobs", err)
	}
	return jobs, nil
}
