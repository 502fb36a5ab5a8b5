package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/domain"
)

func (a *App) addReportCommands(rootCmd *cobra.Command) {
	var timeout time.Duration
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize the discussion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.RequireDiscussion(); err != nil {
				return userError(err)
			}

			summary, ok := c.CachedSummary(cmd.Context())
			if !ok {
				c.StartBackgroundSummary(cmd.Context())
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				summary, err = c.WaitForSummary(ctx)
				if errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("summary not ready after %s", timeout)
				}
				if err != nil {
					return userError(err)
				}
			}
			return a.renderMarkdown(cmd.OutOrStdout(), summary)
		},
	}
	summaryCmd.Flags().DurationVar(&timeout, "timeout", config.SummaryTimeout+config.RequestTimeout, "How long to wait for the summary")

	var refresh bool
	feedbackCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Show how you argued",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.RequireDiscussion(); err != nil {
				return userError(err)
			}
			report, err := c.GetFeedback(cmd.Context(), refresh)
			if err != nil {
				return userError(err)
			}
			printFeedback(cmd.OutOrStdout(), report)
			return nil
		},
	}
	feedbackCmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch a fresh report instead of the stored one")

	rootCmd.AddCommand(summaryCmd, feedbackCmd)
}

func (a *App) renderMarkdown(w io.Writer, markdown string) error {
	style := glamour.WithAutoStyle()
	if a.style != "auto" {
		style = glamour.WithStandardStyle(a.style)
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(80))
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		fmt.Fprintln(w, markdown)
		return nil
	}
	fmt.Fprint(w, out)
	return nil
}

func printFeedback(w io.Writer, f *domain.FeedbackReport) {
	fmt.Fprintf(w, "Overall: %d/100\n\n", f.OverallScore)
	for _, c := range f.Categories() {
		fmt.Fprintf(w, "%-22s %3d/100\n", c.Name, c.Score.Score)
		if c.Score.Comment != "" {
			fmt.Fprintf(w, "  %s\n", c.Score.Comment)
		}
	}
	if f.OverallComment != "" {
		fmt.Fprintf(w, "\n%s\n", f.OverallComment)
	}
}
