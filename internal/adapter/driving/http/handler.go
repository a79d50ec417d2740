// Package httphandler is the HTTP driving adapter that serves the JSON API.
package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/application"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	projects  *application.ProjectService
	selection *application.Selection
	tasks     *application.TaskService
	notifier  *application.Notifier
	intervals Intervals
	logger    *slog.Logger
}

// Intervals are the watcher poll intervals used by the event stream.
type Intervals struct {
	Active    time.Duration
	List      time.Duration
	Heartbeat time.Duration
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	projects *application.ProjectService,
	selection *application.Selection,
	tasks *application.TaskService,
	notifier *application.Notifier,
	intervals Intervals,
	logger *slog.Logger,
) *Handler {
	if intervals.Active <= 0 {
		intervals.Active = application.ActivePollInterval
	}
	if intervals.List <= 0 {
		intervals.List = application.ListPollInterval
	}
	if intervals.Heartbeat <= 0 {
		intervals.Heartbeat = 15 * time.Second
	}
	return &Handler{
		projects:  projects,
		selection: selection,
		tasks:     tasks,
		notifier:  notifier,
		intervals: intervals,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/notion/tasks", h.NotionTasks)
	mux.HandleFunc("POST /api/notion/update-status", h.NotionUpdateStatus)
	mux.HandleFunc("GET /api/notion/test-connection", h.NotionTestConnection)

	mux.HandleFunc("GET /api/v1/projects", h.ListProjects)
	mux.HandleFunc("POST /api/v1/projects", h.CreateProject)
	mux.HandleFunc("GET /api/v1/projects/active", h.GetActive)
	mux.HandleFunc("PUT /api/v1/projects/active", h.SetActive)
	mux.HandleFunc("DELETE /api/v1/projects/active", h.ClearActive)
	mux.HandleFunc("GET /api/v1/projects/{id}", h.GetProject)
	mux.HandleFunc("PATCH /api/v1/projects/{id}", h.UpdateProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", h.DeleteProject)

	mux.HandleFunc("GET /api/v1/tasks", h.ActiveTasks)
	mux.HandleFunc("GET /api/v1/events", h.Events)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)
	return Wrap(mux, logger)
}

// Wrap applies the logging and recovery middleware to next.
func Wrap(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	wrapped = loggingMiddleware(logger, wrapped)
	return wrapped
}

// headerOverride reads the per-request credential override headers. The
// result is never nil: absent headers mean "use the server defaults".
func headerOverride(r *http.Request) *model.Credentials {
	return &model.Credentials{
		Token:      strings.TrimSpace(r.Header.Get(HeaderNotionToken)),
		DatabaseID: strings.TrimSpace(r.Header.Get(HeaderNotionDatabaseID)),
		Provider:   model.Provider(strings.TrimSpace(r.Header.Get(HeaderTaskProvider))),
	}
}

// parseTaskFilter reads status_filter and limit from the query string.
func parseTaskFilter(r *http.Request) (model.TaskFilter, error) {
	filter := model.TaskFilter{Status: strings.TrimSpace(r.URL.Query().Get("status_filter"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return model.TaskFilter{}, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

// NotionTasks lists tasks using the override headers or the server defaults.
func (h *Handler) NotionTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.tasks.FetchTasks(r.Context(), headerOverride(r), filter)
	if err != nil {
		h.writeTaskError(w, "list tasks", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskListResponse(list))
}

// NotionUpdateStatus moves a task to a new status.
func (h *Handler) NotionUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PageID) == "" || strings.TrimSpace(req.Status) == "" {
		writeError(w, http.StatusBadRequest, "page_id and status are required")
		return
	}

	update := model.StatusUpdate{PageID: req.PageID, Status: req.Status, PropertyName: req.StatusPropertyName}
	if err := h.tasks.UpdateStatus(r.Context(), headerOverride(r), update); err != nil {
		h.writeTaskError(w, "update task status", err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateStatusResponse{
		Success: true,
		Message: "Task status updated to " + req.Status,
	})
}

// NotionTestConnection reports whether the credentials are accepted. Only a
// missing token is an HTTP error; a rejected token is reported in the body.
func (h *Handler) NotionTestConnection(w http.ResponseWriter, r *http.Request) {
	err := h.tasks.TestConnection(r.Context(), headerOverride(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ConnectionResponse{Connected: true, Message: "Connected to Notion API"})
	case errors.Is(err, application.ErrTokenNotConfigured):
		writeJSON(w, http.StatusBadRequest, ConnectionResponse{Error: err.Error()})
	default:
		h.logger.Warn("connection test failed", "error", err)
		writeJSON(w, http.StatusOK, ConnectionResponse{
			Message: "Failed to connect to Notion API",
			Error:   errorMessage(err),
		})
	}
}

// ListProjects returns all projects with masked tokens.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	activeID := h.selection.ActiveID(r.Context())
	projects := h.projects.List(r.Context())

	resp := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, toProjectResponse(p, activeID))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateProject adds a project. The first project becomes active.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.projects.Create(r.Context(), application.ProjectInput{
		Name:       deref(req.Name),
		Token:      deref(req.Token),
		DatabaseID: deref(req.DatabaseID),
		Provider:   model.Provider(deref(req.Provider)),
	})
	if err != nil {
		h.writeProjectError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(p, h.selection.ActiveID(r.Context())))
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p, h.selection.ActiveID(r.Context())))
}

// UpdateProject merges the given fields into a project.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := application.ProjectPatch{Name: req.Name, Token: req.Token, DatabaseID: req.DatabaseID}
	if req.Provider != nil {
		provider := model.Provider(*req.Provider)
		patch.Provider = &provider
	}

	p, err := h.projects.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p, h.selection.ActiveID(r.Context())))
}

// DeleteProject removes a project, clearing the selection if it was active.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	found, err := h.projects.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeProjectError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActive returns the active project, or null.
func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.activeResponse(r))
}

// SetActive selects a project.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req ActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.selection.SetActiveID(r.Context(), req.ID); err != nil {
		h.writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.activeResponse(r))
}

// ClearActive removes the selection.
func (h *Handler) ClearActive(w http.ResponseWriter, r *http.Request) {
	h.selection.ClearActiveID(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ActiveTasks lists tasks of the active project through the scoped cache.
// With no active project the list is empty.
func (h *Handler) ActiveTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.tasks.ListTasks(r.Context(), filter, nil)
	if errors.Is(err, application.ErrQueryDisabled) {
		writeJSON(w, http.StatusOK, toTaskListResponse(model.TaskList{}))
		return
	}
	if err != nil {
		h.writeTaskError(w, "list active tasks", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskListResponse(list))
}

// Health returns the service health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Time:     time.Now().UTC().Format(time.RFC3339),
		Projects: len(h.projects.List(r.Context())),
	})
}

func (h *Handler) activeResponse(r *http.Request) ActiveResponse {
	active := h.selection.ActiveProject(r.Context())
	if active == nil {
		return ActiveResponse{}
	}
	resp := toProjectResponse(*active, active.ID)
	return ActiveResponse{Project: &resp}
}

func (h *Handler) writeProjectError(w http.ResponseWriter, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, application.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, application.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "project store unavailable")
	default:
		h.logger.Error("project request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeTaskError(w http.ResponseWriter, op string, err error) {
	if application.IsConfigurationError(err) {
		writeError(w, http.StatusBadRequest, errorMessage(err))
		return
	}
	h.logger.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, errorMessage(err))
}

// errorMessage returns the display message of err: the remote tracker's own
// message when it sent one.
func errorMessage(err error) string {
	var qe *application.QueryError
	if errors.As(err, &qe) {
		return qe.Message
	}
	var remote *driven.RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return err.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
