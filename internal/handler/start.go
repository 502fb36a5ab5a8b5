package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/debate"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.replyMarkdown(ctx, b, update.Message.Chat.ID, helpText, nil)
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	c := h.controller(ctx, chatID)

	if !c.CheckExpiry(ctx) {
		h.reply(ctx, b, chatID, FormatStatus(c.Snapshot(), c.IsReadOnly()), nil)
		return
	}
	if _, err := c.CheckSession(ctx); err != nil {
		h.replyError(ctx, b, chatID, "check session", err)
		return
	}
	h.reply(ctx, b, chatID, FormatStatus(c.Snapshot(), c.IsReadOnly()), nil)
}

func (h *Handler) handleReset(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	h.controller(ctx, chatID).ResetSession(ctx)
	h.reply(ctx, b, chatID, "🔄 Session cleared. Send me a news article link to begin.", nil)
}

func (h *Handler) handleRestart(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := callback(ctx, b, update)
	if !ok {
		return
	}
	dropKeyboard(ctx, b, update)
	h.controller(ctx, chatID).ResetSession(ctx)
	h.reply(ctx, b, chatID, "🔄 Session cleared. Send me a news article link to begin.", nil)
}


// handleStats is an admin-only overview of the running bot.
func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || !h.cfg.IsAdmin(update.Message.From.ID) {
		return
	}
	active := 0
	h.registry.Each(func(_ int64, c *debate.Controller) {
		if c.Snapshot().Active() {
			active++
		}
	})
	h.reply(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"📊 Chats loaded: %d\nActive sessions: %d\nStorage: %s",
		h.registry.Len(), active, h.cfg.StorageDriver), nil)
}
