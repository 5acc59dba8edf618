package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/store"
)

// Common service errors. The API layer maps these to status codes.
var (
	// ErrNotFoundOrForbidden covers both a missing resource and one owned by
	// another user. API layer should map this to HTTP 404 Not Found.
	ErrNotFoundOrForbidden = errors.New("resource not found")

	// ErrEmailExists is returned when registering an email already in use.
	ErrEmailExists = errors.New("email already exists")
)

// ServiceError wraps unexpected failures with the operation that produced them.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError translates err into the service vocabulary. Store
// not-found errors become ErrNotFoundOrForbidden and validation errors are
// returned unchanged; anything else is wrapped in a ServiceError.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrNotFoundOrForbidden),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, domain.ErrValidation):
		return err
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFoundOrForbidden
	case errors.Is(err, store.ErrEmailExists):
		return ErrEmailExists
	}

	return &ServiceError{Operation: operation, Message: message, Err: err}
}
