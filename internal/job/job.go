package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a job
type Status string

// Possible job status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ErrPermanent marks a handler error that must not be retried.
var ErrPermanent = errors.New("permanent job failure")

// Permanent wraps err so the runner fails the job without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Job is a persisted unit of background work.
type Job struct {
	ID        uuid.UUID
	Kind      string
	Payload   json.RawMessage
	Status    Status
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a pending job of the given kind. A nil payload is stored as "{}".
func New(kind string, payload json.RawMessage) *Job {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Handler executes jobs of one kind. Handlers may run more than once for the
// same job and must reload any state they need from the payload ids.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Handle calls f(ctx, payload).
func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) error {
	return f(ctx, payload)
}

// Store persists jobs so that work survives process restarts.
type Store interface {
	// Save inserts a new job.
	Save(ctx context.Context, job *Job) error

	// UpdateStatus records a status transition, the attempt count so far and
	// the last error message (empty on success).
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, attempts int, lastError string) error

	// ListPending returns all pending jobs, oldest first.
	ListPending(ctx context.Context) ([]*Job, error)

	// ListProcessing returns processing jobs. If olderThan is non-zero, only jobs
	// whose last update is older than that are returned.
	ListProcessing(ctx context.Context, olderThan time.Duration) ([]*Job, error)
}
