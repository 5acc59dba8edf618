package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/mocks"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		authHeader     string
		validateErr    error
		claims         *auth.Claims
		expectedStatus int
		expectedUserID int64
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer valid-token",
			claims:         &auth.Claims{UserID: 42, TokenType: auth.TokenTypeAccess},
			expectedStatus: http.StatusOK,
			expectedUserID: 42,
		},
		{
			name:           "lowercase scheme",
			authHeader:     "bearer valid-token",
			claims:         &auth.Claims{UserID: 7},
			expectedStatus: http.StatusOK,
			expectedUserID: 7,
		},
		{name: "missing auth header", expectedStatus: http.StatusUnauthorized},
		{name: "invalid auth format", authHeader: "InvalidFormat", expectedStatus: http.StatusUnauthorized},
		{name: "basic scheme", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusUnauthorized},
		{name: "empty token", authHeader: "Bearer ", expectedStatus: http.StatusUnauthorized},
		{
			name:           "expired token",
			authHeader:     "Bearer expired-token",
			validateErr:    auth.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer invalid-token",
			validateErr:    auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "refresh token used as access token",
			authHeader:     "Bearer refresh-token",
			validateErr:    auth.ErrWrongTokenType,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "claims without user",
			authHeader:     "Bearer odd-token",
			claims:         &auth.Claims{},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unexpected validation failure",
			authHeader:     "Bearer token",
			validateErr:    errors.New("keyring unavailable"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			jwtService := &mocks.MockJWTService{ValidateErr: tt.validateErr, Claims: tt.claims}
			mw := NewAuthMiddleware(jwtService)

			var capturedUserID int64
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if userID, ok := GetUserID(r); ok {
					capturedUserID = userID
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedUserID, capturedUserID)
		})
	}
}

func TestGetUserID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetUserID(req)
	assert.False(t, ok)

	req = req.WithContext(shared.WithUserID(context.Background(), 99))
	userID, ok := GetUserID(req)
	require.True(t, ok)
	assert.Equal(t, int64(99), userID)
}

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	handler := TraceMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 32)
	assert.Equal(t, seen, rec.Header().Get(shared.TraceIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(shared.TraceIDHeader, "client-trace-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "client-trace-1", seen)
	assert.Equal(t, "client-trace-1", rec.Header().Get(shared.TraceIDHeader))
}
