package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/debate"
	"github.com/set-night/newscuss/internal/telegram"
)

func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	c := h.controller(ctx, chatID)
	if err := c.RequireSession(); err != nil {
		h.replyError(ctx, b, chatID, "history", err)
		return
	}
	snap := c.Snapshot()
	h.reply(ctx, b, chatID, FormatHistory(snap.Messages), telegram.HistoryKeyboard(snap.HasMoreMessages))
}

// handleHistoryMore loads one more page of older messages and shows just
// that page.
func (h *Handler) handleHistoryMore(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := callback(ctx, b, update)
	if !ok {
		return
	}
	dropKeyboard(ctx, b, update)

	c := h.controller(ctx, chatID)
	added, err := c.LoadMoreMessages(ctx)
	if err != nil {
		h.replyError(ctx, b, chatID, "load more messages", err)
		return
	}
	if added == 0 {
		h.reply(ctx, b, chatID, "That's the beginning of the discussion.", nil)
		return
	}
	snap := c.Snapshot()
	h.reply(ctx, b, chatID, FormatHistory(snap.Messages[:added]), telegram.HistoryKeyboard(snap.HasMoreMessages))
}

// handleView shows the whole stored discussion through a read-only
// controller, leaving the chat's live window untouched.
func (h *Handler) handleView(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if h.viewer == nil {
		h.handleHistory(ctx, b, update)
		return
	}

	v := h.viewer(chatID)
	if !v.Restore(ctx) {
		h.replyError(ctx, b, chatID, "view", v.RequireSession())
		return
	}
	if err := loadAll(ctx, v); err != nil {
		h.replyError(ctx, b, chatID, "view", err)
		return
	}
	snap := v.Snapshot()
	header := "👀 " + snap.Topic + "\n\n"
	if snap.Topic == "" {
		header = ""
	}
	if err := telegram.SendLongMessage(ctx, b, chatID, telegram.EscapeMarkdown(header+FormatHistory(snap.Messages)), nil); err != nil {
		h.replyError(ctx, b, chatID, "view", err)
	}
}

func loadAll(ctx context.Context, c *debate.Controller) error {
	for c.Snapshot().HasMoreMessages {
		n, err := c.LoadMoreMessages(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}
