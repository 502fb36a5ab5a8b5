package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/app"
	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/debate"
	"github.com/set-night/newscuss/internal/handler"
	"github.com/set-night/newscuss/internal/middleware"
	"github.com/set-night/newscuss/internal/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(true); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	apierr.SetVerbose(cfg.IsDevelopment())

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	registry := debate.NewRegistry(func(chatID int64) *debate.Controller {
		return a.Controller(a.ChatKey(chatID))
	})
	limiter := middleware.NewLimiter(config.RateLimitPerMinute)

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit(limiter),
			middleware.ControllerLoader(registry),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	h := handler.New(handler.Deps{
		Bot:      b,
		Cfg:      cfg,
		Registry: registry,
		Viewer: func(chatID int64) *debate.Controller {
			return a.Controller(a.ChatKey(chatID), debate.WithReadOnly())
		},
		Previewer: a.Previewer,
		TgLogger:  telegram.NewLogger(b, cfg),
	})

	// Register all handlers
	h.Register()

	// Plain text goes to the debate; registered last so commands win
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.HandleText)

	// Slide session expiry and drop what is gone
	go func() {
		ticker := time.NewTicker(config.SessionRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshed := registry.RefreshAll(ctx)
				pruned := a.Previews.Prune()
				limiter.Prune(time.Now())
				a.Sweep(ctx)
				slog.Debug("session maintenance", "refreshed", refreshed, "chats", registry.Len(), "previews_pruned", pruned)
			}
		}
	}()

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID, "storage", cfg.StorageDriver)
	b.Start(ctx)

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}
