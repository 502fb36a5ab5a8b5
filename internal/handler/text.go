package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/domain"
	"github.com/set-night/newscuss/internal/telegram"
)

// HandleText processes plain text: a bare link starts a new article,
// anything else is a debate turn.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message

	// Skip commands
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	chatID := msg.Chat.ID
	c := h.controller(ctx, chatID)

	if LooksLikeURL(msg.Text) && !c.Snapshot().Started() {
		h.submitArticle(ctx, b, chatID, strings.TrimSpace(msg.Text))
		return
	}

	if !c.CheckExpiry(ctx) {
		h.replyError(ctx, b, chatID, "send message", domain.ErrNoSession)
		return
	}
	if err := c.RequireDiscussion(); err != nil {
		h.replyError(ctx, b, chatID, "send message", err)
		return
	}

	placeholder := h.reply(ctx, b, chatID, "🤖 ...", nil)
	if placeholder == nil {
		return
	}
	stopTyping := telegram.StartTyping(ctx, b, chatID)
	defer stopTyping()

	editor := telegram.NewStreamEditor(b, chatID, placeholder.ID, h.cfg.StreamEditInterval)
	final, err := c.SendMessage(ctx, msg.Text, func(m domain.Message) {
		if m.IsStreaming {
			editor.Update(ctx, m.Text)
		}
	})
	if err != nil {
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: placeholder.ID})
		h.replyError(ctx, b, chatID, "send message", err)
		return
	}

	if err := editor.Finish(ctx, final.Text, nil); err != nil {
		slog.Error("finish streamed reply", "chat_id", chatID, "error", err)
	}
}
