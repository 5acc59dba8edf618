package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job kinds requested by the task service.
const (
	KindTaskAssigned      = "notification.assigned"
	KindTaskStatusChanged = "notification.status_changed"
)

// TaskNotificationPayload identifies the task a notification job is about.
// Jobs carry ids only; handlers reload current state when they run.
type TaskNotificationPayload struct {
	TaskID int64 `json:"task_id"`
}

// JobRequestEvent represents a request to run a background job.
// It carries everything needed to create the job without the emitter
// depending on the job package.
type JobRequestEvent struct {
	ID uuid.UUID `json:"id"`

	// Kind selects the handler that will execute the job
	Kind string `json:"kind"`

	// Payload contains the job-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *JobRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewJobRequestEvent creates a new JobRequestEvent with the specified kind and payload.
func NewJobRequestEvent(kind string, payload any) (*JobRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &JobRequestEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *JobRequestEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobRequestEvent) error
}
