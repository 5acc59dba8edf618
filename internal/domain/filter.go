package domain

import "time"

// TaskSortField names a column tasks can be ordered by.
type TaskSortField string

// Supported sort fields
const (
	SortByDueDate  TaskSortField = "due_date"
	SortByPriority TaskSortField = "priority"
)

// SortDirection is ascending or descending.
type SortDirection string

// Supported sort directions
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Paging bounds for task listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// TaskFilter narrows and orders a task listing. Nil fields do not filter.
// Results are always restricted to projects owned by the caller.
type TaskFilter struct {
	Status    *TaskStatus
	Priority  *Priority
	DueDate   *time.Time // exact match
	ProjectID *int64

	SortBy   TaskSortField
	SortDir  SortDirection
	Page     int
	PageSize int
}

// Normalize fills defaults and validates bounds.
func (f *TaskFilter) Normalize() error {
	if f.SortBy == "" {
		f.SortBy = SortByDueDate
	}
	if f.SortBy != SortByDueDate && f.SortBy != SortByPriority {
		return NewValidationError("sort_by", "must be priority or due_date", nil)
	}
	if f.SortDir == "" {
		f.SortDir = SortAsc
	}
	if f.SortDir != SortAsc && f.SortDir != SortDesc {
		return NewValidationError("sort_dir", "must be asc or desc", nil)
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Page < 1 {
		return NewValidationError("page", "must be at least 1", nil)
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		return NewValidationError("page_size", "must be between 1 and 200", nil)
	}
	if f.Status != nil && !f.Status.Valid() {
		return NewValidationError("status", "must be one of todo, in_progress, done", ErrInvalidStatus)
	}
	if f.Priority != nil && !f.Priority.Valid() {
		return NewValidationError("priority", "must be between 1 and 3", ErrInvalidPriority)
	}
	return nil
}

// Offset returns the row offset for the current page.
func (f TaskFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Items    []TaskDetails `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}
