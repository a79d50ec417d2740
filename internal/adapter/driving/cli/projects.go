package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mytaskpanel/internal/application"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

func newProjectsCommand(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "Manage saved projects and the active selection",
	}
	cmd.AddCommand(
		newProjectsListCommand(f),
		newProjectsAddCommand(f),
		newProjectsEditCommand(f),
		newProjectsRemoveCommand(f),
		newProjectsUseCommand(f),
		newProjectsClearCommand(f),
		newProjectsTestCommand(f),
	)
	return cmd
}

func newProjectsListCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}

			projects := svc.Projects.List(cmd.Context())
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects. Add one with: mytaskpanel-cli projects add")
				return nil
			}
			activeID := svc.Selection.ActiveID(cmd.Context())

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"", "ID", "Name", "Provider", "Database", "Token", "Updated"})
			for _, p := range projects {
				mark := ""
				if p.ID == activeID {
					mark = activeMark
				}
				t.AppendRow(table.Row{
					mark,
					p.ID,
					p.Name,
					p.Provider.Normalize(),
					p.DatabaseID,
					p.MaskedToken(),
					p.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			applyTableFormat(t)
			t.Render()
			return nil
		},
	}
}

func newProjectsAddCommand(f *Factory) *cobra.Command {
	var in struct {
		name, token, database, provider string
	}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new project; the first project becomes active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}

			p, err := svc.Projects.Create(cmd.Context(), application.ProjectInput{
				Name:       in.name,
				Token:      in.token,
				DatabaseID: in.database,
				Provider:   model.Provider(in.provider),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s added project %s (%s)\n", greenCheck, p.Name, p.ID)
			if svc.Selection.ActiveID(cmd.Context()) == p.ID {
				fmt.Fprintln(cmd.OutOrStdout(), "  now active")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.name, "name", "", "Display name")
	flags.StringVar(&in.token, "token", "", "API token (Notion integration secret or GitHub token)")
	flags.StringVar(&in.database, "database", "", "Notion database id, or owner/repo for GitHub")
	flags.StringVar(&in.provider, "provider", "notion", "Task provider (notion, github)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("database")
	return cmd
}

func newProjectsEditCommand(f *Factory) *cobra.Command {
	var name, token, database, provider string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a saved project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch application.ProjectPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("token") {
				patch.Token = &token
			}
			if flags.Changed("database") {
				patch.DatabaseID = &database
			}
			if flags.Changed("provider") {
				p := model.Provider(provider)
				patch.Provider = &p
			}
			if patch == (application.ProjectPatch{}) {
				return fmt.Errorf("nothing to change: pass at least one of --name, --token, --database, --provider")
			}

			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.Projects.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s updated project %s\n", greenCheck, p.Name)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "New display name")
	flags.StringVar(&token, "token", "", "New API token")
	flags.StringVar(&database, "database", "", "New database id or owner/repo")
	flags.StringVar(&provider, "provider", "", "New task provider (notion, github)")
	return cmd
}

func newProjectsRemoveCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a saved project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}
			found, err := svc.Projects.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("project %s: %w", args[0], application.ErrProjectNotFound)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed project %s\n", greenCheck, args[0])
			return nil
		},
	}
}

func newProjectsUseCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a project the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Selection.SetActiveID(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("project %s: %w", args[0], err)
			}
			active := svc.Selection.ActiveProject(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s active project is now %s\n", greenCheck, active.Name)
			return nil
		},
	}
}

func newProjectsClearCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the active selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}
			svc.Selection.ClearActiveID(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s selection cleared\n", greenCheck)
			return nil
		},
	}
}

func newProjectsTestCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check the active project's credentials through the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := f.ServerAddr(); err != nil {
				return err
			}
			svc, err := f.Services(cmd.Context())
			if err != nil {
				return err
			}

			active := svc.Selection.ActiveProject(cmd.Context())
			if active == nil {
				return application.ErrNoActiveProject
			}
			if err := svc.Tasks.TestActiveConnection(cmd.Context(), nil); err != nil {
				return fmt.Errorf("connection test for %s failed: %s", active.Name, displayError(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s connected with project %s\n", greenCheck, active.Name)
			return nil
		},
	}
}
