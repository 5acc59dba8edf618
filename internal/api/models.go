package api

import (
	"time"

	"github.com/phrazzld/taskman-api/internal/domain"
)

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Email    string  `json:"email"    validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     *string `json:"name"     validate:"omitempty,max=255"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the payload for POST /api/auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	User         *UserResponse `json:"user,omitempty"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`

	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateProjectRequest is the payload for POST /api/projects.
type CreateProjectRequest struct {
	Name        string  `json:"name"        validate:"required,max=255"`
	Description *string `json:"description"`
}

// UpdateProjectRequest is the payload for PATCH /api/projects/{id}. A missing
// or blank name keeps the current one; description: null clears it.
type UpdateProjectRequest struct {
	Name        *string                 `json:"name"        validate:"omitempty,max=255"`
	Description domain.Optional[string] `json:"description"`
}

// ProjectResponse is the public view of a project.
type ProjectResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectDetailResponse is a project with its tasks.
type ProjectDetailResponse struct {
	ProjectResponse
	Tasks []TaskResponse `json:"tasks"`
}

// CreateTaskRequest is the payload for POST /api/tasks. Status defaults to
// todo and priority to medium (2).
type CreateTaskRequest struct {
	Title          string     `json:"title"            validate:"required,max=255"`
	Description    *string    `json:"description"`
	Status         string     `json:"status"           validate:"omitempty,oneof=todo in_progress done"`
	Priority       int        `json:"priority"         validate:"omitempty,min=1,max=3"`
	DueDate        *time.Time `json:"due_date"`
	ProjectID      int64      `json:"project_id"       validate:"required,gt=0"`
	AssignedUserID *int64     `json:"assigned_user_id" validate:"omitempty,gt=0"`
}

// UpdateTaskRequest is the payload for PATCH /api/tasks/{id}. Absent fields
// are untouched; null clears description, due_date and assigned_user_id.
type UpdateTaskRequest = domain.TaskPatch

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Description    *string       `json:"description"`
	Status         string        `json:"status"`
	Priority       int           `json:"priority"`
	DueDate        *time.Time    `json:"due_date"`
	CreatedAt      time.Time     `json:"created_at"`
	ProjectID      int64         `json:"project_id"`
	AssignedUserID *int64        `json:"assigned_user_id"`
	Project        *ProjectRef   `json:"project,omitempty"`
	AssignedUser   *UserResponse `json:"assigned_user,omitempty"`
}

// ProjectRef is the short project view embedded in tasks.
type ProjectRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TaskListResponse is one page of tasks.
type TaskListResponse struct {
	Items    []TaskResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func userToResponse(u *domain.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func projectToResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		CreatedAt:   p.CreatedAt,
	}
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       int(t.Priority),
		DueDate:        t.DueDate,
		CreatedAt:      t.CreatedAt,
		ProjectID:      t.ProjectID,
		AssignedUserID: t.AssignedUserID,
	}
}

func taskDetailsToResponse(d *domain.TaskDetails) TaskResponse {
	resp := taskToResponse(&d.Task)
	resp.Project = &ProjectRef{ID: d.Project.ID, Name: d.Project.Name}
	resp.AssignedUser = userToResponse(d.Assignee)
	return resp
}
