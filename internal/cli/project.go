package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

func newProjectsCommand(o *options) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:     "projects",
		Short:   "Project commands",
		Aliases: []string{"project", "p"},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List the projects you belong to",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, profile, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			projects, err := client.GetProjects(ctx)
			if err != nil {
				return fmt.Errorf("failed to get projects: %w", err)
			}
			return o.printer(cmd).Projects(projects, profile.ProjectID)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow your projects live",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, profile, err := o.client()
			if err != nil {
				return err
			}
			printer := o.printer(cmd)
			return Watch(cmd.Context(), client, topicProjectsOfMe, "", func(frame resource.Payload[[]*domain.Project]) error {
				return Frame(printer, frame, func(projects []*domain.Project) error {
					return printer.Projects(projects, profile.ProjectID)
				})
			})
		},
	}

	projectsCmd.AddCommand(listCmd, watchCmd)
	return projectsCmd
}
