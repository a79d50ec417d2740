package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the mytaskpanel-cli command tree around f.
func NewRootCommand(f *Factory) *cobra.Command {
	root := &cobra.Command{
		Use:   "mytaskpanel-cli",
		Short: "Manage task-tracker projects and browse their tasks",
		Long: `mytaskpanel-cli manages the saved project credentials and the active
selection shared with the mytaskpanel server, and lists tasks of the active
project through a running server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&f.Server, "server", "", "Address of the mytaskpanel server (default $"+ServerEnv+")")
	flags.StringVar(&f.DBPath, "db", f.DBPath, "Path to the shared database file")
	flags.StringVar(&f.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newProjectsCommand(f),
		newTasksCommand(f),
		newWatchCommand(f),
	)
	return root
}
