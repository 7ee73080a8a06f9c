package notifications

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/contractwatch/internal/app"
	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/notification"
)

// Command manages the persisted notification feed
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "List and manage the notification feed",
	}

	cmd.AddCommand(
		listCommand(settings),
		readCommand(settings),
		readAllCommand(settings),
		removeCommand(settings),
		clearCommand(settings),
		addCommand(settings),
	)

	return cmd
}

// withFeed opens the runtime, hands the feed to fn and closes everything
func withFeed(cmd *cobra.Command, settings *conf.Settings, fn func(feed *notification.Feed, w io.Writer) error) (err error) {
	a, err := app.Open(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(a.Pipeline.Feed(), cmd.OutOrStdout())
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var (
		unread bool
		types  []string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFeed(cmd, settings, func(feed *notification.Feed, w io.Writer) error {
				filter := notification.Filter{UnreadOnly: unread, Limit: limit}
				for _, t := range types {
					filter.Types = append(filter.Types, notification.ParseType(t))
				}
				page, total := feed.Query(filter)
				printFeed(w, page, total, feed.UnreadCount())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&unread, "unread", "u", false, "Only unread notifications")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Filter by type (info, success, warning, error)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of notifications, 0 for all")

	return cmd
}

func readCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFeed(cmd, settings, func(feed *notification.Feed, w io.Writer) error {
				if _, err := feed.Get(args[0]); err != nil {
					return err
				}
				feed.MarkRead(args[0])
				fmt.Fprintf(w, "%d unread\n", feed.UnreadCount())
				return nil
			})
		},
	}
}

func readAllCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFeed(cmd, settings, func(feed *notification.Feed, w io.Writer) error {
				feed.MarkAllRead()
				fmt.Fprintln(w, "0 unread")
				return nil
			})
		},
	}
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a notification",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFeed(cmd, settings, func(feed *notification.Feed, w io.Writer) error {
				if !feed.Remove(args[0]) {
					return notification.ErrNotificationNotFound
				}
				fmt.Fprintf(w, "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func clearCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFeed(cmd, settings, func(feed *notification.Feed, w io.Writer) error {
				n := feed.Len()
				feed.Clear()
				fmt.Fprintf(w, "Removed %d notifications\n", n)
				return nil
			})
		},
	}
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var title, message, typ string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a notification to the feed",
		Long: `Add a notification to the feed. Configured push and MQTT forwarding
applies, which makes this useful for testing delivery.

Example:
  contractwatch notifications add --title "Test" --message "Hello" --type warning`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			return withFeed(cmd, settings, func(feed *notification.Feed, w io.Writer) error {
				n := feed.Add(title, message, notification.ParseType(typ))
				fmt.Fprintf(w, "Added %s (%s)\n", n.ID, n.Type)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Notification title")
	cmd.Flags().StringVar(&message, "message", "", "Notification message")
	cmd.Flags().StringVar(&typ, "type", string(notification.TypeInfo), "Notification type (info, success, warning, error)")

	return cmd
}

func printFeed(w io.Writer, page []notification.Notification, total, unread int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tREAD\tCREATED\tTITLE")
	for i := range page {
		n := &page[i]
		read := "no"
		if n.Read {
			read = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			n.ID, n.Type, read, n.Timestamp.Local().Format(time.DateTime), n.Title)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d shown, %d total, %d unread\n", len(page), total, unread)
}
