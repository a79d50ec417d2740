// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/mytaskpanel/internal/application"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	projects  *application.ProjectService
	selection *application.Selection
	tasks     *application.TaskService
	now       func() time.Time
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	projects *application.ProjectService,
	selection *application.Selection,
	tasks *application.TaskService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		projects:  projects,
		selection: selection,
		tasks:     tasks,
		now:       time.Now,
		logger:    logger,
	}
}

// Panel renders the project manager panel and the active project's task
// picker. ?status= filters the picker.
func (h *Handler) Panel(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "")
}

// CreateProject adds a project from the add form.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	_, err := h.projects.Create(r.Context(), application.ProjectInput{
		Name:       strings.TrimSpace(r.FormValue("name")),
		Token:      strings.TrimSpace(r.FormValue("token")),
		DatabaseID: strings.TrimSpace(r.FormValue("database_id")),
		Provider:   model.Provider(r.FormValue("provider")),
	})
	if err != nil {
		h.formError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// UpdateProject applies the edit form. Blank fields are left unchanged so the
// token never has to be re-entered.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch application.ProjectPatch
	if v := strings.TrimSpace(r.FormValue("name")); v != "" {
		patch.Name = &v
	}
	if v := strings.TrimSpace(r.FormValue("token")); v != "" {
		patch.Token = &v
	}
	if v := strings.TrimSpace(r.FormValue("database_id")); v != "" {
		patch.DatabaseID = &v
	}
	if v := r.FormValue("provider"); v != "" {
		provider := model.Provider(v)
		patch.Provider = &provider
	}

	if _, err := h.projects.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		h.formError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// DeleteProject removes a project.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	found, err := h.projects.Delete(r.Context(), r.PathValue("id"))
	if err == nil && !found {
		err = application.ErrProjectNotFound
	}
	if err != nil {
		h.formError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// ActivateProject selects a project.
func (h *Handler) ActivateProject(w http.ResponseWriter, r *http.Request) {
	if err := h.selection.SetActiveID(r.Context(), r.PathValue("id")); err != nil {
		h.formError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// ClearActive removes the selection.
func (h *Handler) ClearActive(w http.ResponseWriter, r *http.Request) {
	h.selection.ClearActiveID(r.Context())
	redirectHome(w, r)
}

// RefreshTasks drops cached task lists.
func (h *Handler) RefreshTasks(w http.ResponseWriter, r *http.Request) {
	h.tasks.InvalidateTasks()
	redirectHome(w, r)
}

// SetTaskStatus moves a task of the active project to a new status.
func (h *Handler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.FormValue("status"))
	if status == "" {
		h.render(w, r, http.StatusBadRequest, "status is required")
		return
	}

	update := model.StatusUpdate{PageID: r.PathValue("id"), Status: status}
	if err := h.tasks.UpdateStatus(r.Context(), nil, update); err != nil {
		h.logger.Warn("web status update failed", "page_id", update.PageID, "error", err)
		h.render(w, r, http.StatusBadGateway, "Could not update status: "+errorMessage(err))
		return
	}
	redirectHome(w, r)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, formError string) {
	ctx := r.Context()
	token := csrfToken(w, r)

	picker := h.picker(r)
	panel := toPanelViewModel(h.projects.List(ctx), h.selection.ActiveID(ctx), picker, h.now())
	panel.CSRFToken = token
	panel.FormError = formError

	layout := templates.Layout("Task Panel", pages.Panel(panel))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := layout.Render(ctx, w); err != nil {
		h.logger.Error("failed to render panel", "error", err)
	}
}

// picker loads the task list of the active project through the scoped cache.
// A failure becomes an inline error; it never fails the page.
func (h *Handler) picker(r *http.Request) vm.TaskPickerViewModel {
	filter := model.TaskFilter{Status: strings.TrimSpace(r.URL.Query().Get("status"))}
	picker := vm.TaskPickerViewModel{
		StatusFilter: filter.Status,
		RefreshURL:   "/tasks/refresh",
		Tasks:        []vm.TaskViewModel{},
	}

	list, err := h.tasks.ListTasks(r.Context(), filter, nil)
	switch {
	case errors.Is(err, application.ErrQueryDisabled):
		picker.Disabled = true
	case err != nil:
		picker.Error = errorMessage(err)
	default:
		for _, t := range list.Tasks {
			picker.Tasks = append(picker.Tasks, toTaskViewModel(t))
		}
	}
	return picker
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		h.render(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, application.ErrProjectNotFound):
		h.render(w, r, http.StatusNotFound, "Project not found")
	case errors.Is(err, application.ErrStoreUnavailable):
		h.render(w, r, http.StatusServiceUnavailable, "Projects could not be saved, try again")
	default:
		h.logger.Error("web form failed", "error", err)
		h.render(w, r, http.StatusInternalServerError, "Something went wrong")
	}
}

// redirectHome answers a successful form post (post/redirect/get).
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// errorMessage returns the display message of err.
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
