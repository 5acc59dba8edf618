package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithLogger(buf *strings.Builder) *http.Request {
	log := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.WithValue(context.Background(), TraceIDKey, "test-trace-id")
	ctx = logger.WithLogger(ctx, log)
	return httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx)
}

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusCreated, map[string]interface{}{"message": "success", "data": 123})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["message"])
	assert.Equal(t, float64(123), body["data"])
}

func TestRespondWithJSONEncodingError(t *testing.T) {
	var logBuf strings.Builder
	req := requestWithLogger(&logBuf)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logBuf.String(), "failed to encode JSON response")
}

func TestRespondNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	RespondNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRespondWithError(t *testing.T) {
	var logBuf strings.Builder
	req := requestWithLogger(&logBuf)
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusBadRequest, "Invalid request")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid request", resp.Error)
	assert.Equal(t, "test-trace-id", resp.TraceID)
}

func TestRespondWithErrorNoTraceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusUnauthorized, "Unauthorized")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Unauthorized", resp.Error)
	assert.Empty(t, resp.TraceID)
	assert.NotContains(t, w.Body.String(), "trace_id")
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		elevate  bool
		wantLvl  string
	}{
		{name: "server error", status: http.StatusInternalServerError, wantLvl: "level=ERROR"},
		{name: "client error", status: http.StatusBadRequest, wantLvl: "level=DEBUG"},
		{name: "client error elevated", status: http.StatusUnauthorized, elevate: true, wantLvl: "level=WARN"},
		{name: "rate limited", status: http.StatusTooManyRequests, wantLvl: "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf strings.Builder
			req := requestWithLogger(&logBuf)
			w := httptest.NewRecorder()
			cause := errors.New("dial postgres://admin:hunter22@db:5432/app failed")

			if tt.elevate {
				RespondWithErrorAndLog(w, req, tt.status, "safe message", cause, WithElevatedLogLevel())
			} else {
				RespondWithErrorAndLog(w, req, tt.status, "safe message", cause)
			}

			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "safe message", resp.Error)
			assert.Equal(t, "test-trace-id", resp.TraceID)
			assert.NotContains(t, w.Body.String(), "postgres")

			logOutput := logBuf.String()
			assert.Contains(t, logOutput, tt.wantLvl)
			assert.Contains(t, logOutput, "trace_id=test-trace-id")
			assert.Contains(t, logOutput, "error_type=")
			assert.NotContains(t, logOutput, "hunter22")
		})
	}
}
