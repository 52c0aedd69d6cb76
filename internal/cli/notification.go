package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// Notification commands act on the caller; pass --user to act as someone
// else with a profile that holds the JWT secret.
func newNotificationsCommand(o *options) *cobra.Command {
	notificationsCmd := &cobra.Command{
		Use:     "notifications",
		Short:   "Notification commands",
		Aliases: []string{"notif", "n"},
	}

	unreadCmd := &cobra.Command{
		Use:   "unread",
		Short: "List unread notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			notifications, err := client.GetUnreadNotifications(ctx)
			if err != nil {
				return fmt.Errorf("failed to get notifications: %w", err)
			}
			return o.printer(cmd).Notifications(notifications)
		},
	}

	readAllCmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			marked, err := client.MarkAllNotificationsRead(ctx)
			if err != nil {
				return fmt.Errorf("failed to mark notifications: %w", err)
			}
			return o.printer(cmd).Count("marked", marked)
		},
	}

	var countOnly bool
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow unread notifications live",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := o.client()
			if err != nil {
				return err
			}
			printer := o.printer(cmd)
			if countOnly {
				return Watch(cmd.Context(), client, topicUnreadCount, "", func(frame resource.Payload[int]) error {
					return Frame(printer, frame, func(n int) error { return printer.Count("unread", n) })
				})
			}
			return Watch(cmd.Context(), client, topicUnreadNotifs, "", func(frame resource.Payload[[]*domain.Notification]) error {
				return Frame(printer, frame, printer.Notifications)
			})
		},
	}
	watchCmd.Flags().BoolVar(&countOnly, "count", false, "Only follow the unread count")

	notificationsCmd.AddCommand(unreadCmd, readAllCmd, watchCmd)
	return notificationsCmd
}
