package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/service"
)

// ProjectHandler serves /api/projects. Every operation is scoped to the
// authenticated owner.
type ProjectHandler struct {
	projectService service.ProjectService
	logger         *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService service.ProjectService, logger *slog.Logger) *ProjectHandler {
	if projectService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("projectService cannot be nil for ProjectHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProjectHandler")
	}
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger.With(slog.String("component", "project_handler")),
	}
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	project, err := h.projectService.CreateProject(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create project")
		return
	}

	log.Debug("project created", slog.Int64("project_id", project.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, projectToResponse(project))
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list projects")
		return
	}

	resp := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		resp = append(resp, projectToResponse(&projects[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /api/projects/{id} and includes the project's tasks.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, projectID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(r.Context(), userID, projectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get project")
		return
	}

	resp := ProjectDetailResponse{
		ProjectResponse: projectToResponse(&project.Project),
		Tasks:           make([]TaskResponse, 0, len(project.Tasks)),
	}
	for i := range project.Tasks {
		resp.Tasks = append(resp.Tasks, taskToResponse(&project.Tasks[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Update handles PATCH /api/projects/{id}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, projectID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	patch := domain.ProjectPatch{Name: req.Name, Description: req.Description}
	project, err := h.projectService.UpdateProject(r.Context(), userID, projectID, patch)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update project")
		return
	}

	log.Debug("project updated", slog.Int64("project_id", project.ID))
	shared.RespondWithJSON(w, r, http.StatusOK, projectToResponse(project))
}

// Delete handles DELETE /api/projects/{id}. The project's tasks go with it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, projectID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(r.Context(), userID, projectID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete project")
		return
	}

	log.Debug("project deleted", slog.Int64("project_id", projectID))
	shared.RespondNoContent(w)
}
