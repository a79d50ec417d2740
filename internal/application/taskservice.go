package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

// Query names used as the first cache key component.
const (
	QueryTasks          = "tasks"
	QueryTestConnection = "test-connection"
)

// taskParams is the canonical params value of a tasks query.
type taskParams struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

// TaskService runs task-tracker calls under the right credentials. Cached
// methods go through the QueryCache scoped by the active project; the Fetch*
// methods take an explicit override and bypass the cache.
type TaskService struct {
	sources   *SourceRegistry
	cache     *QueryCache
	projects  *ProjectService
	selection *Selection
	defaults  model.Credentials
	strict    bool
	logger    *slog.Logger
}

// NewTaskService creates a TaskService. defaults are the server-side
// credentials used when a call carries no override. With strict set, a call
// without an active project fails while other projects exist, instead of
// falling back to defaults.
func NewTaskService(
	sources *SourceRegistry,
	cache *QueryCache,
	projects *ProjectService,
	selection *Selection,
	defaults model.Credentials,
	strict bool,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		sources:   sources,
		cache:     cache,
		projects:  projects,
		selection: selection,
		defaults:  defaults,
		strict:    strict,
		logger:    logger,
	}
}

// ListTasks returns tasks for the active project through the cache. enabled
// overrides the default enablement (a project is active).
func (s *TaskService) ListTasks(ctx context.Context, filter model.TaskFilter, enabled *bool) (model.TaskList, error) {
	req := QueryRequest{
		Name:      QueryTasks,
		Params:    taskParams{Status: filter.Status, Limit: filter.EffectiveLimit()},
		Selection: s.selection.ActiveProject(ctx),
		Enabled:   enabled,
	}
	return Query(ctx, s.cache, req, func(ctx context.Context, creds *model.Credentials) (model.TaskList, error) {
		if err := s.checkStrict(ctx, creds); err != nil {
			return model.TaskList{}, err
		}
		return s.FetchTasks(ctx, creds, filter)
	})
}

// TestActiveConnection checks the active project's credentials through the
// cache.
func (s *TaskService) TestActiveConnection(ctx context.Context, enabled *bool) error {
	req := QueryRequest{
		Name:      QueryTestConnection,
		Selection: s.selection.ActiveProject(ctx),
		Enabled:   enabled,
	}
	_, err := Query(ctx, s.cache, req, func(ctx context.Context, creds *model.Credentials) (bool, error) {
		if err := s.checkStrict(ctx, creds); err != nil {
			return false, err
		}
		if err := s.TestConnection(ctx, creds); err != nil {
			return false, err
		}
		return true, nil
	})
	return err
}

// FetchTasks lists tasks with the given override, uncached.
func (s *TaskService) FetchTasks(ctx context.Context, override *model.Credentials, filter model.TaskFilter) (model.TaskList, error) {
	creds, err := s.Resolve(override, true)
	if err != nil {
		return model.TaskList{}, err
	}
	source, err := s.sources.Get(creds.Provider)
	if err != nil {
		return model.TaskList{}, err
	}

	tasks, err := source.ListTasks(ctx, creds, filter)
	if err != nil {
		return model.TaskList{}, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return model.TaskList{Tasks: tasks, Total: len(tasks)}, nil
}

// UpdateStatus moves a task to a new status and drops cached task lists so
// the next read refetches. A nil override uses the active project, then the
// defaults.
func (s *TaskService) UpdateStatus(ctx context.Context, override *model.Credentials, update model.StatusUpdate) error {
	if override == nil {
		if active := s.selection.ActiveProject(ctx); active != nil {
			creds := active.Credentials()
			override = &creds
		}
	}

	creds, err := s.Resolve(override, false)
	if err != nil {
		return err
	}
	source, err := s.sources.Get(creds.Provider)
	if err != nil {
		return err
	}

	if err := source.UpdateStatus(ctx, creds, update); err != nil {
		return err
	}

	s.InvalidateTasks()
	s.logger.Info("task status updated", "page_id", update.PageID, "status", update.Status)
	return nil
}

// TestConnection verifies the given override, uncached.
func (s *TaskService) TestConnection(ctx context.Context, override *model.Credentials) error {
	creds, err := s.Resolve(override, false)
	if err != nil {
		return err
	}
	source, err := s.sources.Get(creds.Provider)
	if err != nil {
		return err
	}

	s.logger.Info("testing connection",
		"token", model.MaskSecret(creds.Token),
		"database_id", creds.DatabaseID,
		"provider", creds.Provider,
	)
	return source.TestConnection(ctx, creds)
}

// InvalidateTasks drops every cached task list so the next read refetches.
func (s *TaskService) InvalidateTasks() {
	s.cache.Invalidate(QueryTasks)
}

// Resolve merges override over the configured defaults, field by field.
func (s *TaskService) Resolve(override *model.Credentials, needDatabase bool) (model.Credentials, error) {
	creds := s.defaults
	if override != nil {
		if override.Token != "" {
			creds.Token = override.Token
		}
		if override.DatabaseID != "" {
			creds.DatabaseID = override.DatabaseID
		}
		if override.Provider != "" {
			creds.Provider = override.Provider
		}
	}
	creds.Provider = creds.Provider.Normalize()

	if creds.Token == "" {
		return model.Credentials{}, ErrTokenNotConfigured
	}
	if needDatabase && creds.DatabaseID == "" {
		return model.Credentials{}, ErrDatabaseNotConfigured
	}
	return creds, nil
}

func (s *TaskService) checkStrict(ctx context.Context, creds *model.Credentials) error {
	if creds != nil || !s.strict {
		return nil
	}
	if len(s.projects.List(ctx)) > 0 {
		return ErrNoActiveProject
	}
	return nil
}
