package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
)

const dateLayout = "2006-01-02"

// getUserIDFromContext returns the id the auth middleware stored for the request.
func getUserIDFromContext(r *http.Request) (int64, bool) {
	return shared.UserIDFromContext(r.Context())
}

// getPathID parses a positive int64 path parameter.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, domain.NewValidationError(paramName, "is required", domain.ErrInvalidID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// handleUserIDAndPathID extracts the caller and a path id, writing the error
// response itself when either is missing. ok is false once a response is written.
func handleUserIDAndPathID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (userID, pathID int64, ok bool) {
	if log == nil {
		log = logger.FromContext(r.Context())
	}

	userID, ok = getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return 0, 0, false
	}

	pathID, err := getPathID(r, paramName)
	if err != nil {
		log.Warn("invalid "+paramName,
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return 0, 0, false
	}

	return userID, pathID, true
}

// requireUserID writes 401 and returns false when the request is unauthenticated.
func requireUserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (int64, bool) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return 0, false
	}
	return userID, true
}

// parseTaskFilter reads the task listing query parameters. Defaults and
// bounds are applied by TaskFilter.Normalize in the service.
func parseTaskFilter(q url.Values) (domain.TaskFilter, error) {
	var f domain.TaskFilter

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		status, err := domain.ParseTaskStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = &status
	}

	if v := strings.TrimSpace(q.Get("priority")); v != "" {
		priority, err := domain.ParsePriority(v)
		if err != nil {
			return f, err
		}
		f.Priority = &priority
	}

	if v := strings.TrimSpace(q.Get("due_date")); v != "" {
		due, err := parseDate(v)
		if err != nil {
			return f, domain.NewValidationError("due_date", "must be YYYY-MM-DD or RFC 3339", nil)
		}
		f.DueDate = &due
	}

	if v := strings.TrimSpace(q.Get("project_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, domain.NewValidationError("project_id", "must be a positive integer", domain.ErrInvalidID)
		}
		f.ProjectID = &id
	}

	f.SortBy = domain.TaskSortField(strings.ToLower(strings.TrimSpace(q.Get("sort_by"))))
	f.SortDir = domain.SortDirection(strings.ToLower(strings.TrimSpace(q.Get("sort_dir"))))

	var err error
	if f.Page, err = parseIntParam(q, "page"); err != nil {
		return f, err
	}
	if f.PageSize, err = parseIntParam(q, "page_size"); err != nil {
		return f, err
	}
	return f, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseIntParam returns 0 when the parameter is absent.
func parseIntParam(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, domain.NewValidationError(name, "must be a positive integer", nil)
	}
	return n, nil
}
