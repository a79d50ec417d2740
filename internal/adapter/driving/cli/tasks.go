package cli

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mytaskpanel/internal/application"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

const titleWidth = 60

func newTasksCommand(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Browse and update tasks of the active project",
		Long: `Task commands run against a mytaskpanel server (--server) using the
active project's credentials.`,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			_, err := f.ServerAddr()
			return err
		},
	}
	cmd.AddCommand(
		newTasksListCommand(f),
		newTasksSetStatusCommand(f),
	)
	return cmd
}

func newTasksListCommand(f *Factory) *cobra.Command {
	var filter model.TaskFilter

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks of the active project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}

			list, err := svc.Tasks.ListTasks(cmd.Context(), filter, nil)
			if errors.Is(err, application.ErrQueryDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "No active project. Select one with: mytaskpanel-cli projects use <id>")
				return nil
			}
			if err != nil {
				return fmt.Errorf("listing tasks: %s", displayError(err))
			}

			if list.Total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "URL"})
			for _, task := range list.Tasks {
				t.AppendRow(table.Row{
					task.PageID,
					truncate(task.Title, titleWidth),
					orDash(task.Status),
					orDash(task.Priority),
					task.URL,
				})
			}
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d tasks", list.Total)})
			applyTableFormat(t)
			t.Render()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&filter.Status, "status", "", "Only tasks with this status")
	flags.IntVar(&filter.Limit, "limit", model.DefaultTaskLimit, "Maximum number of tasks")
	return cmd
}

func newTasksSetStatusCommand(f *Factory) *cobra.Command {
	var property string

	cmd := &cobra.Command{
		Use:   "set-status <task-id> <status>",
		Short: "Move a task of the active project to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}

			update := model.StatusUpdate{PageID: args[0], Status: args[1], PropertyName: property}
			if err := svc.Tasks.UpdateStatus(cmd.Context(), nil, update); err != nil {
				return fmt.Errorf("updating status: %s", displayError(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s task %s moved to %s\n", greenCheck, args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&property, "property", "", "Status property name (default \""+model.DefaultStatusProperty+"\")")
	return cmd
}

// displayError returns the message a user should see: the remote tracker's
// own message when it sent one.
func displayError(err error) string {
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
