package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/debate"
	"github.com/set-night/newscuss/internal/domain"
)

func (a *App) addConversationCommands(rootCmd *cobra.Command) {
	sayCmd := &cobra.Command{
		Use:   "say <message>",
		Short: "Send one argument and stream the AI's reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.RequireDiscussion(); err != nil {
				return userError(err)
			}
			return say(cmd.Context(), cmd.OutOrStdout(), c, strings.Join(args, " "))
		},
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Argue interactively; /quit to leave",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.RequireDiscussion(); err != nil {
				return userError(err)
			}
			return chat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), c)
		},
	}

	var more int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the loaded messages, optionally paging further back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.RequireSession(); err != nil {
				return userError(err)
			}
			for range more {
				n, err := c.LoadMoreMessages(cmd.Context())
				if err != nil {
					return userError(err)
				}
				if n == 0 {
					break
				}
			}
			snap := c.Snapshot()
			out := cmd.OutOrStdout()
			printMessages(out, snap.Messages)
			if snap.HasMoreMessages {
				fmt.Fprintln(out, "\n(older messages stored: use --more)")
			}
			return nil
		},
	}
	historyCmd.Flags().IntVar(&more, "more", 0, "Pages of older messages to load")

	rootCmd.AddCommand(sayCmd, chatCmd, historyCmd)
}

// say sends text and writes the reply to w as it streams in.
func say(ctx context.Context, w io.Writer, c *debate.Controller, text string) error {
	fmt.Fprint(w, "AI: ")
	printed := ""
	final, err := c.SendMessage(ctx, text, func(m domain.Message) {
		if !m.IsStreaming || !strings.HasPrefix(m.Text, printed) {
			return
		}
		fmt.Fprint(w, m.Text[len(printed):])
		printed = m.Text
	})
	if err != nil {
		fmt.Fprintln(w)
		return userError(err)
	}

	if strings.HasPrefix(final.Text, printed) {
		fmt.Fprintln(w, final.Text[len(printed):])
	} else {
		fmt.Fprintf(w, "\n%s\n", final.Text)
	}
	return nil
}

// chat reads one argument per line until EOF or /quit. The stored session
// stays alive while the prompt sits idle.
func chat(ctx context.Context, r io.Reader, w io.Writer, c *debate.Controller) error {
	stop := c.StartExpiryRefresher(ctx, config.SessionRefreshInterval)
	defer stop()

	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		if err := say(ctx, w, c, line); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func printMessages(w io.Writer, messages []domain.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for i, m := range messages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		who := "You"
		switch m.Sender {
		case domain.SenderAI:
			who = "AI"
		case domain.SenderSystem:
			who = "System"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", m.Time, who, m.Text)
	}
}
