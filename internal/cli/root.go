// Package cli is the terminal front end: one command per debate operation,
// all working on a single stored session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/app"
	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/debate"
	"github.com/set-night/newscuss/internal/domain"
)

var version = "dev" // set via ldflags at build time

// Flags holds the persistent command-line overrides.
type Flags struct {
	Store     string
	StorePath string
	API       string
	ReadOnly  bool
	Verbose   bool
}

// App represents the newscuss CLI application. Shared components are built
// on first use and kept for the life of the process.
type App struct {
	Flags Flags

	cfg        *config.Config
	app        *app.App
	controller *debate.Controller
	style      string
}

func NewApp() *App {
	return &App{style: "auto"}
}

// CreateRootCommand creates and configures the root command.
func (a *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newscuss",
		Short: "Debate a news article with an AI opponent",
		Long: `newscuss submits a news article to the debate backend, generates a
discussion topic, and lets you argue one side while the AI argues the other.
The session is stored locally and survives restarts until it expires.`,
		Version:           version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.Flags.Store, "store", "", "Session storage: file, sqlite, memory or postgres (default from STORAGE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&a.Flags.StorePath, "store-path", "", "Directory for file and sqlite storage (default from STORAGE_PATH)")
	rootCmd.PersistentFlags().StringVar(&a.Flags.API, "api", "", "Backend base URL (default from API_BASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&a.Flags.ReadOnly, "readonly", false, "Review the stored discussion without sending messages")
	rootCmd.PersistentFlags().BoolVarP(&a.Flags.Verbose, "verbose", "v", false, "Verbose logging")

	a.addSetupCommands(rootCmd)
	a.addConversationCommands(rootCmd)
	a.addReportCommands(rootCmd)

	return rootCmd
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	level := charmlog.WarnLevel
	if a.Flags.Verbose {
		level = charmlog.DebugLevel
	}
	logger := charmlog.NewWithOptions(cmd.ErrOrStderr(), charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "newscuss",
	})
	slog.SetDefault(slog.New(logger))
	apierr.SetVerbose(a.Flags.Verbose)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.Flags.Store != "" {
		cfg.StorageDriver = a.Flags.Store
	}
	if a.Flags.StorePath != "" {
		cfg.StoragePath = a.Flags.StorePath
	}
	if a.Flags.API != "" {
		cfg.APIBaseURL = a.Flags.API
	}
	if err := cfg.Validate(false); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// session returns the controller for the stored session, restoring it on
// first use.
func (a *App) session(ctx context.Context) (*debate.Controller, error) {
	if a.controller != nil {
		return a.controller, nil
	}
	if a.app == nil {
		built, err := app.New(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.app = built
	}

	var opts []debate.Option
	if a.Flags.ReadOnly {
		opts = append(opts, debate.WithReadOnly())
	}
	c := a.app.Controller(a.cfg.StorageKey, opts...)
	if c.Restore(ctx) {
		slog.Debug("session restored", "session_id", c.Snapshot().SessionID)
	}
	a.controller = c
	return c, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	if a.app == nil {
		return nil
	}
	return a.app.Close()
}

// userError turns a controller error into the text shown to the user.
func userError(err error) error {
	var e *apierr.Error
	if errors.As(err, &e) {
		msg := apierr.FriendlyMessage(e)
		if e.Recovery() == apierr.RecoveryRestart {
			msg += " (run: newscuss reset)"
		}
		return errors.New(msg)
	}
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return fmt.Errorf("%w (run: newscuss submit <url>)", err)
	case errors.Is(err, domain.ErrNoTopic):
		return fmt.Errorf("%w (run: newscuss topic)", err)
	case errors.Is(err, domain.ErrNoDiscussion):
		return fmt.Errorf("%w (run: newscuss start --position for)", err)
	case errors.Is(err, domain.ErrSummaryNotStarted):
		return fmt.Errorf("%w (run: newscuss summary)", err)
	}
	return err
}
