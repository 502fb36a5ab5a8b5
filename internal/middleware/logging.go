package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// slowUpdate is how long a handler may run before its update is logged at Warn.
const slowUpdate = 10 * time.Second

// Logging returns middleware that logs update processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			next(ctx, b, update)
			elapsed := time.Since(start)

			level := slog.LevelDebug
			if elapsed > slowUpdate {
				level = slog.LevelWarn
			}
			attrs := append(describe(update),
				slog.Int64("chat_id", ChatID(update)),
				slog.Duration("duration", elapsed),
			)
			slog.LogAttrs(ctx, level, "update processed", attrs...)
		}
	}
}

func describe(update *models.Update) []slog.Attr {
	switch {
	case update.Message != nil:
		var userID int64
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		return []slog.Attr{
			slog.String("type", "message"),
			slog.Int64("user_id", userID),
			slog.Int("text_len", len(update.Message.Text)),
		}
	case update.CallbackQuery != nil:
		return []slog.Attr{
			slog.String("type", "callback_query"),
			slog.Int64("user_id", update.CallbackQuery.From.ID),
			slog.String("callback", update.CallbackQuery.Data),
		}
	default:
		return []slog.Attr{slog.String("type", "unknown")}
	}
}
