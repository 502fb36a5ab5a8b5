package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/set-night/newscuss/internal/domain"
)

func (a *App) addSetupCommands(rootCmd *cobra.Command) {
	previewCmd := &cobra.Command{
		Use:   "preview <url>",
		Short: "Show the article's title and description without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(cmd.Context()); err != nil {
				return err
			}
			p, err := a.app.Previewer.Preview(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			printPreview(cmd.OutOrStdout(), p)
			return nil
		},
	}

	submitCmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Submit a news article and start a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			res, err := c.SubmitURL(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session: %s\n", res.SessionID)
			if len(res.Keywords) > 0 {
				fmt.Fprintf(out, "Keywords: %s\n", strings.Join(res.Keywords, ", "))
			}
			fmt.Fprintf(out, "\n%s\n", res.Summary)
			return nil
		},
	}

	topicCmd := &cobra.Command{
		Use:   "topic",
		Short: "Generate a debate topic from the submitted article",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			t, err := c.GenerateTopic(cmd.Context())
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Topic: %s\n", t.Topic)
			if t.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", t.Description)
			}
			return nil
		},
	}

	var position, difficulty string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Pick a side and open the discussion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := domain.ParsePosition(position)
			if err != nil {
				return fmt.Errorf("%w: use for or against", err)
			}
			d, err := domain.ParseDifficulty(difficulty)
			if err != nil {
				return fmt.Errorf("%w: use easy, medium or hard", err)
			}
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			res, err := c.StartDiscussion(cmd.Context(), p, d)
			if err != nil {
				return userError(err)
			}
			snap := c.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "You: %s · AI: %s · %s\n\nAI: %s\n",
				snap.UserPosition.Label(), snap.AIPosition.Label(), snap.Difficulty, res.AIMessage)
			return nil
		},
	}
	startCmd.Flags().StringVarP(&position, "position", "p", "", "Your side: for or against")
	startCmd.Flags().StringVarP(&difficulty, "difficulty", "d", string(domain.DifficultyMedium), "easy, medium or hard")
	_ = startCmd.MarkFlagRequired("position")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show where the stored session is in the debate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), c.Snapshot(), c.IsReadOnly())
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			c.ResetSession(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared.")
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Ask the backend about the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			res, err := c.CheckSession(cmd.Context())
			if err != nil {
				return userError(err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	rootCmd.AddCommand(previewCmd, submitCmd, topicCmd, startCmd, statusCmd, resetCmd, checkCmd)
}

func printPreview(w io.Writer, p *domain.ArticlePreview) {
	if p.SiteName != "" {
		fmt.Fprintf(w, "Site: %s\n", p.SiteName)
	}
	if p.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", p.Title)
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}
}

func printStatus(w io.Writer, s domain.Session, readOnly bool) {
	if !s.Active() {
		fmt.Fprintln(w, "No active session.")
		return
	}
	fmt.Fprintf(w, "Session:  %s\n", s.SessionID)
	if len(s.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(s.Keywords, ", "))
	}
	if s.Topic != "" {
		fmt.Fprintf(w, "Topic:    %s\n", s.Topic)
	}
	if s.Started() {
		fmt.Fprintf(w, "Sides:    you %s, AI %s (%s)\n", s.UserPosition.Label(), s.AIPosition.Label(), s.Difficulty)
		fmt.Fprintf(w, "Messages: %d loaded", len(s.Messages))
		if s.HasMoreMessages {
			fmt.Fprint(w, ", older stored")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Summary:  %s\n", s.SummaryStatus)
	if readOnly {
		fmt.Fprintln(w, "Mode:     read-only")
	}
}
