package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

// FeedUpdate is one delivery of a TaskFeed.
type FeedUpdate struct {
	ActiveID string
	Tasks    model.TaskList
	// Disabled is set when no project is active and the feed is not
	// explicitly enabled; Tasks is then empty.
	Disabled bool
	Err      error
}

// TaskFeedConfig tunes a TaskFeed.
type TaskFeedConfig struct {
	Filter model.TaskFilter
	// Enabled overrides the default enablement of the tasks query.
	Enabled *bool
	// PollInterval is the active-selection watch interval.
	PollInterval time.Duration
	// RefreshInterval re-runs the query so stale entries are refetched.
	RefreshInterval time.Duration
}

// TaskFeed follows the active project and delivers its task list: once on
// start, again whenever the selection changes, periodically, and on demand.
// Run blocks until ctx is canceled; nothing is delivered after it returns,
// and a fetch still in flight at that point completes in the background with
// its result dropped.
type TaskFeed struct {
	tasks     *TaskService
	selection *Selection
	notifier  *Notifier
	cfg       TaskFeedConfig
	onUpdate  func(FeedUpdate)
	refreshCh chan chan error
	logger    *slog.Logger
}

// NewTaskFeed creates a TaskFeed. onUpdate runs on the Run goroutine.
func NewTaskFeed(
	tasks *TaskService,
	selection *Selection,
	notifier *Notifier,
	cfg TaskFeedConfig,
	onUpdate func(FeedUpdate),
	logger *slog.Logger,
) *TaskFeed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = ActivePollInterval
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultStaleTime
	}
	return &TaskFeed{
		tasks:     tasks,
		selection: selection,
		notifier:  notifier,
		cfg:       cfg,
		onUpdate:  onUpdate,
		refreshCh: make(chan chan error),
		logger:    logger,
	}
}

// Run delivers the current task list, then keeps delivering until ctx is
// canceled.
func (f *TaskFeed) Run(ctx context.Context) {
	changed := make(chan string, 1)
	watcher := NewActiveWatcher(f.selection, f.notifier, f.cfg.PollInterval, func(id string) {
		select {
		case changed <- id:
		default:
			// Drop the stale pending id; the fetch re-reads the selection.
			select {
			case <-changed:
			default:
			}
			changed <- id
		}
	})
	activeID := watcher.Start(ctx)
	defer watcher.Stop()

	f.deliver(ctx, activeID)

	ticker := time.NewTicker(f.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Debug("task feed stopped")
			return
		case id := <-changed:
			f.logger.Info("active project changed, refetching tasks", "project_id", id)
			f.deliver(ctx, id)
		case <-ticker.C:
			f.deliver(ctx, watcher.Snapshot())
		case done := <-f.refreshCh:
			f.tasks.InvalidateTasks()
			done <- f.deliver(ctx, watcher.Snapshot())
		}
	}
}

// Refresh drops cached task lists and makes the feed refetch. It blocks
// until the fetch completes or ctx is canceled, and returns the fetch error.
func (f *TaskFeed) Refresh(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case f.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *TaskFeed) deliver(ctx context.Context, activeID string) error {
	list, err := f.tasks.ListTasks(ctx, f.cfg.Filter, f.cfg.Enabled)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	update := FeedUpdate{ActiveID: activeID, Tasks: list}
	switch {
	case errors.Is(err, ErrQueryDisabled):
		update.Disabled = true
		update.Tasks = model.TaskList{Tasks: []model.Task{}}
		err = nil
	case err != nil:
		update.Err = err
	}

	f.onUpdate(update)
	return err
}
