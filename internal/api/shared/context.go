package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type for request-scoped context values.
type ContextKey string

// Context keys for request-scoped values
const (
	// UserIDContextKey holds the authenticated user's id (int64).
	UserIDContextKey ContextKey = "userID"

	// TraceIDKey holds the per-request trace id.
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader is echoed on responses and honored on requests.
	TraceIDHeader = "X-Trace-ID"

	maxTraceIDLength = 64
)

// SetTraceID stores a fresh trace id in the context.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, "")
}

// WithTraceID stores traceID in the context, generating one when traceID is
// empty or implausible.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	traceID = strings.TrimSpace(traceID)
	if traceID == "" || len(traceID) > maxTraceIDLength || strings.ContainsAny(traceID, " \t\r\n") {
		traceID = generateTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id from ctx, or "".
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// WithUserID stores the authenticated user id in the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(int64)
	if !ok || userID <= 0 {
		return 0, false
	}
	return userID, true
}

// generateTraceID returns 32 hex characters.
func generateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
