package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/projectsync/internal/resource"
)

func newChatCommand(o *options) *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat commands",
	}

	var chatID string
	var follow bool
	unreadCmd := &cobra.Command{
		Use:   "unread",
		Short: "Show how many messages in a chat are unread",
		Long: `Show the caller's unread message count for a chat. The count is derived
from read receipts, so it is exact even when the chat summary lags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := o.client()
			if err != nil {
				return err
			}
			printer := o.printer(cmd)

			if follow {
				return Watch(cmd.Context(), client, topicChatUnread, chatID, func(frame resource.Payload[int]) error {
					return Frame(printer, frame, func(n int) error { return printer.Count("unread", n) })
				})
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			count, err := client.GetChatUnreadCount(ctx, chatID)
			if err != nil {
				return fmt.Errorf("failed to get unread count: %w", err)
			}
			return printer.Count("unread", count)
		},
	}
	unreadCmd.Flags().StringVar(&chatID, "chat", "", "Chat ID")
	unreadCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing the count as it changes")
	_ = unreadCmd.MarkFlagRequired("chat")

	chatCmd.AddCommand(unreadCmd)
	return chatCmd
}
