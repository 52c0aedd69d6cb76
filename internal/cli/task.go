package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// Stream topics served by GET /api/ws.
const (
	topicProjectTasks = "project.tasks"
	topicUserTasks    = "user.tasks"
	topicOverdueTasks = "tasks.overdue"
	topicUnreadNotifs = "notifications.unread"
	topicUnreadCount  = "notifications.unread.count"
	topicChatUnread   = "chat.unread"
	topicProjectsOfMe = "projects"
)

const projectFlagUsage = "Project ID (overrides the profile default)"

func newTasksCommand(o *options) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:     "tasks",
		Short:   "Task commands",
		Aliases: []string{"task", "t"},
	}
	tasksCmd.AddCommand(
		newTasksListCommand(o),
		newTasksOverdueCommand(o),
		newTasksWatchCommand(o),
	)
	return tasksCmd
}

// projectID returns --project or the profile's default project.
func projectID(cmd *cobra.Command, profile *Profile) string {
	id, _ := cmd.Flags().GetString("project")
	if id == "" && profile != nil {
		id = profile.ProjectID
	}
	return id
}

func newTasksListCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List a project's tasks",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, profile, err := o.client()
			if err != nil {
				return err
			}
			project := projectID(cmd, profile)
			if project == "" {
				return fmt.Errorf("no project specified and no default project set")
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			tasks, err := client.GetProjectTasks(ctx, project)
			if err != nil {
				return fmt.Errorf("failed to get tasks: %w", err)
			}
			return o.printer(cmd).Tasks(tasks)
		},
	}
	cmd.Flags().String("project", "", projectFlagUsage)
	return cmd
}

// newTasksOverdueCommand lists the caller's overdue tasks, or a project's
// overdue tasks when --project is given.
func newTasksOverdueCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			project, _ := cmd.Flags().GetString("project")
			printer := o.printer(cmd)
			if project == "" {
				tasks, err := client.GetOverdueTasks(ctx)
				if err != nil {
					return fmt.Errorf("failed to get overdue tasks: %w", err)
				}
				return printer.Tasks(tasks)
			}

			tasks, err := client.GetProjectTasks(ctx, project)
			if err != nil {
				return fmt.Errorf("failed to get tasks: %w", err)
			}
			return printer.Tasks(overdueOnly(tasks, printer))
		},
	}
	cmd.Flags().String("project", "", "Only this project's overdue tasks")
	return cmd
}

func overdueOnly(tasks []*domain.Task, p *Printer) []*domain.Task {
	now := p.now()
	overdue := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsOverdue(now) {
			overdue = append(overdue, t)
		}
	}
	return overdue
}

// newTasksWatchCommand follows a task list until interrupted: the project's
// tasks with --project, the caller's overdue tasks with --overdue, and the
// caller's assigned tasks otherwise.
func newTasksWatchCommand(o *options) *cobra.Command {
	var overdue bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow task changes live",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := o.client()
			if err != nil {
				return err
			}
			project, _ := cmd.Flags().GetString("project")

			topic, id := topicUserTasks, ""
			switch {
			case project != "":
				topic, id = topicProjectTasks, project
			case overdue:
				topic = topicOverdueTasks
			}

			printer := o.printer(cmd)
			return Watch(cmd.Context(), client, topic, id, func(frame resource.Payload[[]*domain.Task]) error {
				return Frame(printer, frame, printer.Tasks)
			})
		},
	}
	cmd.Flags().String("project", "", "Watch this project's tasks")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "Watch your overdue tasks")
	return cmd
}
