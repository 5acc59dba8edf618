package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches events synchronously to the handlers
// registered in this process.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler adds a handler that will receive every subsequent event.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered event handler", slog.Int("handler_count", len(e.handlers)))
}

// EmitEvent delivers the event to every handler, even after one fails, and
// returns the joined handler errors.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *JobRequestEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.mu.RUnlock()

	log := e.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_kind", event.Kind),
	)

	if len(handlers) == 0 {
		log.Warn("no handlers registered for event")
		return nil
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("handler failed to process event",
				slog.Int("handler_index", i),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("handler %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)
