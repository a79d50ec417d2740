package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

// Override headers accepted by the /api/notion endpoints. Each one replaces
// the matching server default for a single request.
const (
	HeaderNotionToken      = "X-Notion-Token"
	HeaderNotionDatabaseID = "X-Notion-Database-Id"
	HeaderTaskProvider     = "X-Task-Provider"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TaskResponse is the JSON representation of a task.
type TaskResponse struct {
	PageID      string  `json:"page_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	URL         string  `json:"url"`
}

// TaskListResponse is the body of the task list endpoints.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// UpdateStatusRequest is the JSON body of the update-status endpoint.
type UpdateStatusRequest struct {
	PageID             string `json:"page_id"`
	Status             string `json:"status"`
	StatusPropertyName string `json:"status_property_name,omitempty"`
}

// UpdateStatusResponse reports a successful status change.
type UpdateStatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ConnectionResponse is the body of the test-connection endpoint.
type ConnectionResponse struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ProjectResponse is the JSON representation of a project. The token is
// always masked.
type ProjectResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Token      string `json:"notionToken"`
	DatabaseID string `json:"databaseId"`
	Provider   string `json:"provider"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// ProjectRequest is the JSON body of the create and update project
// endpoints. On update, absent fields are left unchanged.
type ProjectRequest struct {
	Name       *string `json:"name"`
	Token      *string `json:"notionToken"`
	DatabaseID *string `json:"databaseId"`
	Provider   *string `json:"provider"`
}

// ActiveRequest is the JSON body of the set-active endpoint.
type ActiveRequest struct {
	ID string `json:"id"`
}

// ActiveResponse is the body of the active project endpoints. Project is
// null when nothing is selected.
type ActiveResponse struct {
	Project *ProjectResponse `json:"project"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Projects int    `json:"projects"`
}

// toTaskResponse converts a domain Task to its JSON response representation.
func toTaskResponse(t model.Task) TaskResponse {
	return TaskResponse{
		PageID:      t.PageID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		URL:         t.URL,
	}
}

// toTaskListResponse converts a domain TaskList, never emitting a null list.
func toTaskListResponse(list model.TaskList) TaskListResponse {
	tasks := make([]TaskResponse, 0, len(list.Tasks))
	for _, t := range list.Tasks {
		tasks = append(tasks, toTaskResponse(t))
	}
	return TaskListResponse{Tasks: tasks, Total: len(tasks)}
}

// FromTaskResponse converts a wire task back to the domain type.
func FromTaskResponse(t TaskResponse) model.Task {
	return model.Task{
		PageID:      t.PageID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		URL:         t.URL,
	}
}

// toProjectResponse converts a domain Project, masking its token.
func toProjectResponse(p model.Project, activeID string) ProjectResponse {
	return ProjectResponse{
		ID:         p.ID,
		Name:       p.Name,
		Token:      p.MaskedToken(),
		DatabaseID: p.DatabaseID,
		Provider:   string(p.Provider.Normalize()),
		Active:     p.ID != "" && p.ID == activeID,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
