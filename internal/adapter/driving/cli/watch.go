package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/fswatch"
	"github.com/ericfisherdev/mytaskpanel/internal/application"
)

func newWatchCommand(f *Factory) *cobra.Command {
	var interval time.Duration
	var withTasks bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print active-selection changes as they happen",
		Long: `watch follows the active project, including changes made by the server or
another CLI process, until interrupted. With --tasks it also prints the
active project's task count after every change (requires --server).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if withTasks {
				if _, err := f.ServerAddr(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			svc, err := f.Services(ctx)
			if err != nil {
				return err
			}
			out := &lockedWriter{w: cmd.OutOrStdout()}

			stopFS := f.watchDatabase(ctx, svc.Notifier)
			defer stopFS()

			if withTasks {
				feed := application.NewTaskFeed(svc.Tasks, svc.Selection, svc.Notifier, application.TaskFeedConfig{
					PollInterval:    interval,
					RefreshInterval: f.Config.StaleTime,
				}, func(u application.FeedUpdate) {
					printFeedUpdate(out, svc, u)
				}, f.Logger())
				feed.Run(ctx)
				return nil
			}

			watcher := application.NewActiveWatcher(svc.Selection, svc.Notifier, interval, func(id string) {
				printActive(out, svc, id)
			})
			printActive(out, svc, watcher.Start(ctx))
			<-ctx.Done()
			watcher.Stop()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&interval, "interval", application.ActivePollInterval, "Poll interval for selection changes")
	flags.BoolVar(&withTasks, "tasks", false, "Also fetch the active project's tasks on every change")
	return cmd
}

// watchDatabase publishes both topics whenever another process writes the
// database file. It returns a stop function; failures only cost latency,
// since the watchers still poll.
func (f *Factory) watchDatabase(ctx context.Context, notifier *application.Notifier) func() {
	if f.DBPath == "" || f.DBPath == ":memory:" {
		return func() {}
	}

	w, err := fswatch.New(f.DBPath, fswatch.DefaultDebounce, func() {
		notifier.Publish(application.TopicProjects)
		notifier.Publish(application.TopicActive)
	}, f.Logger())
	if err != nil {
		f.Logger().Warn("file watch unavailable, relying on polling", "error", err)
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
		_ = w.Close()
	}
}

func printActive(out io.Writer, svc *Services, id string) {
	fmt.Fprintf(out, "%s active: %s\n", time.Now().Format(time.TimeOnly), describeProject(svc, id))
}

func printFeedUpdate(out io.Writer, svc *Services, u application.FeedUpdate) {
	stamp := time.Now().Format(time.TimeOnly)
	switch {
	case u.Disabled:
		fmt.Fprintf(out, "%s active: (none)\n", stamp)
	case u.Err != nil:
		fmt.Fprintf(out, "%s active: %s, error: %s\n", stamp, describeProject(svc, u.ActiveID), displayError(u.Err))
	default:
		fmt.Fprintf(out, "%s active: %s, %d tasks\n", stamp, describeProject(svc, u.ActiveID), u.Tasks.Total)
	}
}

func describeProject(svc *Services, id string) string {
	if id == "" {
		return "(none)"
	}
	// A background context: the lookup is a local read and the name is
	// wanted even while the command is shutting down.
	p, err := svc.Projects.Get(context.Background(), id)
	if err != nil {
		return id
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.ID)
}

// lockedWriter serializes writes from watcher goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
