package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/store"
)

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.due_date,
	t.created_at, t.project_id, t.assigned_user_id`

const taskDetailsSelect = `SELECT ` + taskColumns + `,
	p.id, p.name, p.description, p.owner_id, p.created_at,
	u.id, u.email, u.name, u.created_at
FROM tasks t
JOIN projects p ON p.id = t.project_id
LEFT JOIN users u ON u.id = t.assigned_user_id`

// sortColumns whitelists the ORDER BY expressions a filter may select.
var sortColumns = map[domain.TaskSortField]string{
	domain.SortByDueDate:  "t.due_date",
	domain.SortByPriority: "t.priority",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresTaskStore implements the store.TaskStore interface.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore
// interface.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, t *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := t.Validate(); err != nil {
		return err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, status, priority, due_date, created_at, project_id, assigned_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, t.Title, t.Description, string(t.Status), int(t.Priority), t.DueDate, t.CreatedAt,
		t.ProjectID, t.AssignedUserID,
	).Scan(&t.ID)
	if err != nil {
		log.Error("failed to create task",
			slog.Int64("project_id", t.ProjectID),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "create", "failed to insert task", MapError(err))
	}

	log.Info("task created",
		slog.Int64("task_id", t.ID),
		slog.Int64("project_id", t.ProjectID))
	return nil
}

// GetForOwner implements store.TaskStore.GetForOwner
func (s *PostgresTaskStore) GetForOwner(ctx context.Context, id, ownerID int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + `
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND p.owner_id = $2`
	if _, inTx := s.db.(*sql.Tx); inTx {
		query += ` FOR UPDATE OF t`
	}

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for owner",
				slog.Int64("task_id", id),
				slog.Int64("owner_id", ownerID))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task", slog.Int64("task_id", id), slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "get", "failed to query task", MapError(err))
	}
	return task, nil
}

// GetDetails implements store.TaskStore.GetDetails
func (s *PostgresTaskStore) GetDetails(ctx context.Context, id int64) (*domain.TaskDetails, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	details, err := scanTaskDetails(s.db.QueryRowContext(ctx, taskDetailsSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task details", slog.Int64("task_id", id), slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "get", "failed to query task details", MapError(err))
	}
	return details, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, t *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := t.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4, due_date = $5, assigned_user_id = $6
		WHERE id = $7
	`, t.Title, t.Description, string(t.Status), int(t.Priority), t.DueDate, t.AssignedUserID, t.ID)
	if err != nil {
		log.Error("failed to update task", slog.Int64("task_id", t.ID), slog.String("error", err.Error()))
		return store.NewStoreError("task", "update", "failed to update task", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id, ownerID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks t
		USING projects p
		WHERE t.id = $1 AND p.id = t.project_id AND p.owner_id = $2
	`, id, ownerID)
	if err != nil {
		log.Error("failed to delete task", slog.Int64("task_id", id), slog.String("error", err.Error()))
		return store.NewStoreError("task", "delete", "failed to delete task", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(
	ctx context.Context,
	ownerID int64,
	filter domain.TaskFilter,
) (*domain.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildTaskFilter(ownerID, filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks t JOIN projects p ON p.id = t.project_id WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to count tasks", MapError(err))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		taskDetailsSelect, where, buildTaskOrder(filter), len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, filter.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	items := []domain.TaskDetails{}
	for rows.Next() {
		d, err := scanTaskDetails(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "failed to scan task", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "failed to iterate tasks", err)
	}

	return &domain.TaskPage{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// ListByProject implements store.TaskStore.ListByProject
func (s *PostgresTaskStore) ListByProject(ctx context.Context, projectID int64) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+`
		FROM tasks t
		WHERE t.project_id = $1
		ORDER BY t.created_at, t.id`, projectID)
	if err != nil {
		log.Error("failed to list project tasks",
			slog.Int64("project_id", projectID),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to query project tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "failed to scan task", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "failed to iterate tasks", err)
	}
	return tasks, nil
}

// ListOverdue implements store.TaskStore.ListOverdue
func (s *PostgresTaskStore) ListOverdue(ctx context.Context, now time.Time) ([]domain.OverdueTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.due_date, p.name, u.id, u.email, u.name
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		JOIN users u ON u.id = t.assigned_user_id
		WHERE t.due_date < $1 AND t.status <> $2
		ORDER BY u.id, t.due_date, t.id
	`, now.UTC(), string(domain.TaskStatusDone))
	if err != nil {
		log.Error("failed to list overdue tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list_overdue", "failed to query overdue tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var overdue []domain.OverdueTask
	for rows.Next() {
		var o domain.OverdueTask
		var name sql.NullString
		if err := rows.Scan(&o.TaskID, &o.Title, &o.DueDate, &o.ProjectName,
			&o.AssigneeID, &o.AssigneeEmail, &name); err != nil {
			return nil, store.NewStoreError("task", "list_overdue", "failed to scan overdue task", err)
		}
		o.DueDate = o.DueDate.UTC()
		o.AssigneeName = nullStringPtr(name)
		overdue = append(overdue, o)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list_overdue", "failed to iterate overdue tasks", err)
	}

	log.Debug("listed overdue tasks", slog.Int("count", len(overdue)))
	return overdue, nil
}

// buildTaskFilter returns the WHERE clause and its positional arguments.
// The owner restriction is always the first condition.
func buildTaskFilter(ownerID int64, f domain.TaskFilter) (string, []any) {
	conds := []string{"p.owner_id = $1"}
	args := []any{ownerID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != nil {
		add("t.status = $%d", string(*f.Status))
	}
	if f.Priority != nil {
		add("t.priority = $%d", int(*f.Priority))
	}
	if f.DueDate != nil {
		add("t.due_date = $%d", f.DueDate.UTC())
	}
	if f.ProjectID != nil {
		add("t.project_id = $%d", *f.ProjectID)
	}
	return strings.Join(conds, " AND "), args
}

func buildTaskOrder(f domain.TaskFilter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[domain.SortByDueDate]
	}
	dir := "ASC"
	if f.SortDir == domain.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s NULLS LAST, t.id ASC", col, dir)
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var (
		desc     sql.NullString
		status   string
		priority int
		due      sql.NullTime
		assignee sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Title, &desc, &status, &priority, &due,
		&t.CreatedAt, &t.ProjectID, &assignee); err != nil {
		return nil, err
	}
	t.Description = nullStringPtr(desc)
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	t.DueDate = nullTimePtr(due)
	t.AssignedUserID = nullInt64Ptr(assignee)
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func scanTaskDetails(row rowScanner) (*domain.TaskDetails, error) {
	var d domain.TaskDetails
	var (
		desc        sql.NullString
		status      string
		priority    int
		due         sql.NullTime
		assignee    sql.NullInt64
		projectDesc sql.NullString
		userID      sql.NullInt64
		userEmail   sql.NullString
		userName    sql.NullString
		userCreated sql.NullTime
	)
	if err := row.Scan(
		&d.ID, &d.Title, &desc, &status, &priority, &due, &d.CreatedAt, &d.ProjectID, &assignee,
		&d.Project.ID, &d.Project.Name, &projectDesc, &d.Project.OwnerID, &d.Project.CreatedAt,
		&userID, &userEmail, &userName, &userCreated,
	); err != nil {
		return nil, err
	}
	d.Description = nullStringPtr(desc)
	d.Status = domain.TaskStatus(status)
	d.Priority = domain.Priority(priority)
	d.DueDate = nullTimePtr(due)
	d.AssignedUserID = nullInt64Ptr(assignee)
	d.Project.Description = nullStringPtr(projectDesc)
	if userID.Valid {
		d.Assignee = &domain.User{
			ID:        userID.Int64,
			Email:     userEmail.String,
			Name:      nullStringPtr(userName),
			CreatedAt: userCreated.Time,
		}
	}
	return &d, nil
}
