package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/debate"
)

type ctxKey string

const ControllerKey ctxKey = "controller"

// GetController extracts the chat's debate controller from context.
func GetController(ctx context.Context) *debate.Controller {
	c, ok := ctx.Value(ControllerKey).(*debate.Controller)
	if !ok {
		return nil
	}
	return c
}

// WithController stores c in ctx.
func WithController(ctx context.Context, c *debate.Controller) context.Context {
	return context.WithValue(ctx, ControllerKey, c)
}

// ControllerLoader returns middleware that loads the chat's controller into
// context, restoring a stored session on first contact.
func ControllerLoader(registry *debate.Registry) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if chatID := ChatID(update); chatID != 0 {
				ctx = WithController(ctx, registry.Get(ctx, chatID))
			}
			next(ctx, b, update)
		}
	}
}
