package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/service"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCodeAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found or forbidden", service.ErrNotFoundOrForbidden, http.StatusNotFound, "Resource not found"},
		{"wrapped not found", fmt.Errorf("get: %w", service.ErrNotFoundOrForbidden), http.StatusNotFound, "Resource not found"},
		{"store not found", store.ErrTaskNotFound, http.StatusNotFound, "Resource not found"},
		{
			"domain validation",
			domain.NewValidationError("title", "is required", nil),
			http.StatusBadRequest,
			"Invalid title: is required",
		},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest, "Invalid entity data"},
		{"password too short", domain.ErrPasswordTooShort, http.StatusBadRequest, "Password must be at least 8 characters long"},
		{"bad email", domain.ErrInvalidEmail, http.StatusBadRequest, "Invalid email format"},
		{"email exists", service.ErrEmailExists, http.StatusConflict, "Email already exists"},
		{"store email exists", store.ErrEmailExists, http.StatusConflict, "Email already exists"},
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{"wrong token type", auth.ErrWrongTokenType, http.StatusUnauthorized, "Invalid refresh token"},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{
			"unexpected",
			&service.ServiceError{Operation: "x", Message: "boom", Err: errors.New("pq: connection refused")},
			http.StatusInternalServerError,
			"An unexpected error occurred",
		},
		{"transaction failed", store.ErrTransactionFailed, http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestGetSafeErrorMessageNil(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatusCode(nil))
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(&CreateTaskRequest{ProjectID: 1})
	require.Error(t, err)
	assert.Equal(t, "Invalid title: required field", SanitizeValidationError(err))
	assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(err))

	err = shared.ValidateRequest(&CreateTaskRequest{Title: "t", ProjectID: 1, Status: "blocked"})
	assert.Equal(t, "Invalid status: invalid value", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("Key: 'X' secret")))
}

func TestHandleAPIError(t *testing.T) {
	t.Run("server error uses fallback and hides cause", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := newRequest(http.MethodGet, "/api/tasks/1", "", 1)
		HandleAPIError(rec, req, errors.New("dial tcp 10.0.0.5:5432: refused"), "Failed to get task")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody[shared.ErrorResponse](t, rec)
		assert.Equal(t, "Failed to get task", body.Error)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	})

	t.Run("client error ignores fallback", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := newRequest(http.MethodGet, "/api/tasks/1", "", 1)
		HandleAPIError(rec, req, service.ErrNotFoundOrForbidden, "Failed to get task")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Resource not found", decodeBody[shared.ErrorResponse](t, rec).Error)
	})
}
