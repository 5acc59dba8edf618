//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/job"
	"github.com/phrazzld/taskman-api/internal/platform/postgres"
	"github.com/phrazzld/taskman-api/internal/store"
	"github.com/phrazzld/taskman-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	users    *postgres.PostgresUserStore
	projects *postgres.PostgresProjectStore
	tasks    *postgres.PostgresTaskStore
}

func newFixture(tx *sql.Tx) fixture {
	return fixture{
		users:    postgres.NewPostgresUserStore(tx, bcrypt.MinCost, nil),
		projects: postgres.NewPostgresProjectStore(tx, nil),
		tasks:    postgres.NewPostgresTaskStore(tx, nil),
	}
}

func (f fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email, "password123", nil)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f fixture) project(t *testing.T, ownerID int64, name string) *domain.Project {
	t.Helper()
	p, err := domain.NewProject(ownerID, name, nil)
	require.NoError(t, err)
	require.NoError(t, f.projects.Create(context.Background(), p))
	return p
}

func (f fixture) task(t *testing.T, in domain.NewTaskInput) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(in, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func setupDB(t *testing.T) *sql.DB {
	db := testdb.GetTestDBWithT(t)
	testdb.SetupTestDatabaseSchema(t, db)
	return db
}

func TestUserStore_Integration(t *testing.T) {
	db := setupDB(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		f := newFixture(tx)
		ctx := context.Background()

		u := f.user(t, "integration-user@example.com")
		got, err := f.users.GetByEmail(ctx, "Integration-User@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.NotEmpty(t, got.HashedPassword)

		dup, err := domain.NewUser("integration-user@example.com", "password123", nil)
		require.NoError(t, err)
		assert.ErrorIs(t, f.users.Create(ctx, dup), store.ErrEmailExists)
	})
}

func TestTaskStore_OwnershipAndCascade(t *testing.T) {
	db := setupDB(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		f := newFixture(tx)
		ctx := context.Background()

		owner := f.user(t, "owner@example.com")
		other := f.user(t, "other@example.com")
		project := f.project(t, owner.ID, "Alpha")
		task := f.task(t, domain.NewTaskInput{Title: "T1", ProjectID: project.ID, AssignedUserID: &other.ID})

		_, err := f.tasks.GetForOwner(ctx, task.ID, other.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		details, err := f.tasks.GetDetails(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", details.Project.Name)
		require.NotNil(t, details.Assignee)
		assert.Equal(t, other.Email, details.Assignee.Email)

		assert.ErrorIs(t, f.projects.Delete(ctx, project.ID, other.ID), store.ErrProjectNotFound)
		require.NoError(t, f.projects.Delete(ctx, project.ID, owner.ID))

		_, err = f.tasks.GetDetails(ctx, task.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound, "tasks are removed with their project")
	})
}

func TestTaskStore_ListFiltersAndPaging(t *testing.T) {
	db := setupDB(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		f := newFixture(tx)
		ctx := context.Background()

		owner := f.user(t, "lister@example.com")
		stranger := f.user(t, "stranger@example.com")
		p1 := f.project(t, owner.ID, "One")
		p2 := f.project(t, owner.ID, "Two")
		foreign := f.project(t, stranger.ID, "Foreign")

		day := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
		morning, evening := day.Add(9*time.Hour), day.Add(21*time.Hour)
		nextDay := day.Add(30 * time.Hour)

		f.task(t, domain.NewTaskInput{Title: "a", ProjectID: p1.ID, Priority: domain.PriorityLow, DueDate: &morning})
		f.task(t, domain.NewTaskInput{Title: "b", ProjectID: p1.ID, Priority: domain.PriorityHigh, DueDate: &evening})
		f.task(t, domain.NewTaskInput{Title: "c", ProjectID: p2.ID, Priority: domain.PriorityMedium, DueDate: &nextDay,
			Status: domain.TaskStatusDone})
		f.task(t, domain.NewTaskInput{Title: "x", ProjectID: foreign.ID})

		all := domain.TaskFilter{}
		require.NoError(t, all.Normalize())
		page, err := f.tasks.List(ctx, owner.ID, all)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total, "foreign tasks are never listed")

		byDue := domain.TaskFilter{DueDate: &morning}
		require.NoError(t, byDue.Normalize())
		page, err = f.tasks.List(ctx, owner.ID, byDue)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total, "same day but different time does not match")
		require.Len(t, page.Items, 1)
		assert.Equal(t, "a", page.Items[0].Title)

		startOfDay := domain.TaskFilter{DueDate: &day}
		require.NoError(t, startOfDay.Normalize())
		page, err = f.tasks.List(ctx, owner.ID, startOfDay)
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)

		byPriority := domain.TaskFilter{SortBy: domain.SortByPriority, SortDir: domain.SortDesc, PageSize: 2}
		require.NoError(t, byPriority.Normalize())
		page, err = f.tasks.List(ctx, owner.ID, byPriority)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "b", page.Items[0].Title)
		assert.Equal(t, "c", page.Items[1].Title)

		done := domain.TaskStatusDone
		byStatus := domain.TaskFilter{Status: &done, ProjectID: &p2.ID}
		require.NoError(t, byStatus.Normalize())
		page, err = f.tasks.List(ctx, owner.ID, byStatus)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "c", page.Items[0].Title)
	})
}

func TestTaskStore_ListOverdue(t *testing.T) {
	db := setupDB(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		f := newFixture(tx)
		ctx := context.Background()

		owner := f.user(t, "overdue-owner@example.com")
		assignee := f.user(t, "overdue-assignee@example.com")
		project := f.project(t, owner.ID, "Ops")

		now := time.Date(2031, 5, 1, 8, 0, 0, 0, time.UTC)
		past, future := now.Add(-time.Hour), now.Add(time.Hour)

		late := f.task(t, domain.NewTaskInput{Title: "late", ProjectID: project.ID, DueDate: &past, AssignedUserID: &assignee.ID})
		f.task(t, domain.NewTaskInput{Title: "done", ProjectID: project.ID, DueDate: &past, AssignedUserID: &assignee.ID,
			Status: domain.TaskStatusDone})
		f.task(t, domain.NewTaskInput{Title: "unassigned", ProjectID: project.ID, DueDate: &past})
		f.task(t, domain.NewTaskInput{Title: "future", ProjectID: project.ID, DueDate: &future, AssignedUserID: &assignee.ID})

		overdue, err := f.tasks.ListOverdue(ctx, now)
		require.NoError(t, err)

		var ids []int64
		for _, o := range overdue {
			if o.AssigneeID == assignee.ID {
				ids = append(ids, o.TaskID)
				assert.Equal(t, "Ops", o.ProjectName)
			}
		}
		assert.Equal(t, []int64{late.ID}, ids)
	})
}

func TestJobStore_Integration(t *testing.T) {
	db := setupDB(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		s := postgres.NewPostgresJobStore(tx, nil)
		ctx := context.Background()

		j := job.New("notification.assigned", []byte(`{"task_id": 1}`))
		require.NoError(t, s.Save(ctx, j))

		pending, err := s.ListPending(ctx)
		require.NoError(t, err)
		found := false
		for _, p := range pending {
			if p.ID == j.ID {
				found = true
				assert.JSONEq(t, `{"task_id": 1}`, string(p.Payload))
			}
		}
		assert.True(t, found)

		require.NoError(t, s.UpdateStatus(ctx, j.ID, job.StatusProcessing, 1, ""))
		processing, err := s.ListProcessing(ctx, 0)
		require.NoError(t, err)
		require.NotEmpty(t, processing)

		stale, err := s.ListProcessing(ctx, time.Hour)
		require.NoError(t, err)
		for _, p := range stale {
			assert.NotEqual(t, j.ID, p.ID, "freshly updated job is not stale")
		}

		assert.ErrorIs(t, s.UpdateStatus(ctx, job.New("x", nil).ID, job.StatusFailed, 1, "gone"), store.ErrJobNotFound)
	})
}
