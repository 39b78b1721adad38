package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/forum"
)

func forumCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forum",
		Short: "Read and write the community forum",
	}

	newFeed := func() (*forum.Feed, error) {
		client, err := opts.client()
		if err != nil {
			return nil, err
		}
		return forum.NewFeed(client, forum.WithAnnouncer(func(msg string) {
			opts.logger.Info(msg)
		})), nil
	}

	var pages int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the newest messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			feed, err := newFeed()
			if err != nil {
				return err
			}
			if err := feed.Load(cmd.Context()); err != nil {
				return err
			}
			for i := 1; i < pages && feed.HasMore(); i++ {
				feed.LoadMore()
			}
			printEntries(cmd.OutOrStdout(), feed.Visible(), time.Now())
			if feed.HasMore() {
				fmt.Fprintln(cmd.OutOrStdout(), "... more with --pages")
			}
			return nil
		},
	}
	list.Flags().IntVar(&pages, "pages", 1, "number of ten-message pages to show")

	var user string
	post := &cobra.Command{
		Use:   "post <text>",
		Short: "Post a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, err := newFeed()
			if err != nil {
				return err
			}
			entry, err := feed.Post(cmd.Context(), user, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", entry.ID)
			return nil
		},
	}
	post.Flags().StringVar(&user, "user", "", "display name (defaults to Visitor)")

	reply := &cobra.Command{
		Use:   "reply <message-id> <text>",
		Short: "Reply to a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, err := newFeed()
			if err != nil {
				return err
			}
			if err := feed.Load(cmd.Context()); err != nil {
				return err
			}
			var parent *forum.Entry
			for _, e := range feed.Entries() {
				if e.ID == args[0] {
					parent = &e
					break
				}
			}
			if parent == nil {
				return fmt.Errorf("message %q not found in the newest messages", args[0])
			}
			entry, err := feed.Reply(cmd.Context(), user, *parent, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", entry.ID)
			return nil
		},
	}
	reply.Flags().StringVar(&user, "user", "", "display name (defaults to Visitor)")

	likeCmd := func(action string) *cobra.Command {
		c := &cobra.Command{
			Use:   action + " <message-id>",
			Short: strings.ToUpper(action[:1]) + action[1:] + " a message",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := opts.client()
				if err != nil {
					return err
				}
				count, err := client.SetLike(cmd.Context(), args[0], action, user)
				if err != nil {
					return err
				}
				opts.logger.Debug("like recorded", zap.String("message_id", args[0]), zap.String("action", action))
				fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d like(s)\n", args[0], count)
				return nil
			},
		}
		c.Flags().StringVar(&user, "user", "", "display name (defaults to Visitor)")
		return c
	}

	cmd.AddCommand(list, post, reply, likeCmd("like"), likeCmd("unlike"))
	return cmd
}

func printEntries(w io.Writer, entries []forum.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No messages yet. Be the first to share your holiday spirit!")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "[%s] %s (%s)\n    %s\n", e.Key(), e.User, e.Status(now), e.Text)
	}
}
