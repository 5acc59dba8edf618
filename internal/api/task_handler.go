package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/service"
)

// TaskHandler serves /api/tasks.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if taskService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("taskService cannot be nil for TaskHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	in := domain.NewTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         domain.TaskStatus(req.Status),
		Priority:       domain.Priority(req.Priority),
		DueDate:        req.DueDate,
		ProjectID:      req.ProjectID,
		AssignedUserID: req.AssignedUserID,
	}
	task, err := h.taskService.CreateTask(r.Context(), userID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created", slog.Int64("task_id", task.ID), slog.Int64("project_id", task.ProjectID))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskDetailsToResponse(task))
}

// List handles GET /api/tasks with optional filters, sorting and paging.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	filter, err := parseTaskFilter(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.taskService.ListTasks(r.Context(), userID, filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	resp := TaskListResponse{
		Items:    make([]TaskResponse, 0, len(page.Items)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for i := range page.Items {
		resp.Items = append(resp.Items, taskDetailsToResponse(&page.Items[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskDetailsToResponse(task))
}

// Update handles PATCH /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	var patch UpdateTaskRequest
	if err := shared.DecodeJSON(r, &patch); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), userID, taskID, patch)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	log.Debug("task updated", slog.Int64("task_id", task.ID))
	shared.RespondWithJSON(w, r, http.StatusOK, taskDetailsToResponse(task))
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	log.Debug("task deleted", slog.Int64("task_id", taskID))
	shared.RespondNoContent(w)
}
