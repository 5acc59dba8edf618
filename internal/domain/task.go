package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// ParseTaskStatus converts a string into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", NewValidationError("status", "must be one of todo, in_progress, done", ErrInvalidStatus)
	}
	return status, nil
}

// Priority ranks tasks; higher is more urgent.
type Priority int

// Possible priority values
const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// String returns the lowercase priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority accepts either the numeric form ("1".."3") or the name.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Priority(n).Valid() {
		return 0, NewValidationError("priority", "must be between 1 and 3", ErrInvalidPriority)
	}
	return Priority(n), nil
}

const maxTaskTitleLength = 255

// Task is a unit of work inside a project.
type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ProjectID      int64      `json:"project_id"`
	AssignedUserID *int64     `json:"assigned_user_id,omitempty"`
}

// Validate checks field-level invariants.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "is required", nil)
	}
	if len(t.Title) > maxTaskTitleLength {
		return NewValidationError("title", "is too long", nil)
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "must be one of todo, in_progress, done", ErrInvalidStatus)
	}
	if !t.Priority.Valid() {
		return NewValidationError("priority", "must be between 1 and 3", ErrInvalidPriority)
	}
	if t.ProjectID <= 0 {
		return NewValidationError("project_id", "is required", ErrInvalidID)
	}
	if t.AssignedUserID != nil && *t.AssignedUserID <= 0 {
		return NewValidationError("assigned_user_id", "must be a positive id", ErrInvalidID)
	}
	return nil
}

// NewTaskInput is the caller-supplied data for creating a task. Zero Status and
// Priority take the defaults todo and medium.
type NewTaskInput struct {
	Title          string
	Description    *string
	Status         TaskStatus
	Priority       Priority
	DueDate        *time.Time
	ProjectID      int64
	AssignedUserID *int64
}

// NewTask builds an unsaved, validated Task from the input.
func NewTask(in NewTaskInput, now time.Time) (*Task, error) {
	t := &Task{
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		DueDate:        in.DueDate,
		CreatedAt:      now.UTC(),
		ProjectID:      in.ProjectID,
		AssignedUserID: in.AssignedUserID,
	}
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if t.Priority == 0 {
		t.Priority = PriorityMedium
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// TaskPatch is a partial update. Absent fields are untouched; explicit null
// clears the nullable fields and is rejected for the others. Project and
// creation time are not patchable.
type TaskPatch struct {
	Title          Optional[string]     `json:"title"`
	Description    Optional[string]     `json:"description"`
	Status         Optional[TaskStatus] `json:"status"`
	Priority       Optional[Priority]   `json:"priority"`
	DueDate        Optional[time.Time]  `json:"due_date"`
	AssignedUserID Optional[int64]      `json:"assigned_user_id"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set &&
		!p.Priority.Set && !p.DueDate.Set && !p.AssignedUserID.Set
}

// Apply mutates t with the fields present in the patch and re-validates it.
func (p TaskPatch) Apply(t *Task) error {
	if p.Title.Set {
		if p.Title.Null {
			return NewValidationError("title", "cannot be null", nil)
		}
		t.Title = strings.TrimSpace(p.Title.Value)
	}
	if p.Description.Set {
		t.Description = p.Description.Ptr()
	}
	if p.Status.Set {
		if p.Status.Null {
			return NewValidationError("status", "cannot be null", ErrInvalidStatus)
		}
		t.Status = p.Status.Value
	}
	if p.Priority.Set {
		if p.Priority.Null {
			return NewValidationError("priority", "cannot be null", ErrInvalidPriority)
		}
		t.Priority = p.Priority.Value
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Ptr()
	}
	if p.AssignedUserID.Set {
		t.AssignedUserID = p.AssignedUserID.Ptr()
	}
	return t.Validate()
}

// TaskDetails is a task together with its project and resolved assignee, as
// presented to clients and used to compose notifications.
type TaskDetails struct {
	Task
	Project  Project `json:"project"`
	Assignee *User   `json:"assigned_user,omitempty"`
}

// OverdueTask is one row of the overdue sweep: a task with its project name and
// assignee contact details.
type OverdueTask struct {
	TaskID        int64
	Title         string
	DueDate       time.Time
	ProjectName   string
	AssigneeID    int64
	AssigneeEmail string
	AssigneeName  *string
}
