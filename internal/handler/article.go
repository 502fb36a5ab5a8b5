package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/article"
	"github.com/set-night/newscuss/internal/telegram"
)

func (h *Handler) handleURL(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	link := CommandArg(update.Message.Text)
	if link == "" {
		h.reply(ctx, b, chatID, "Usage: /url <article link>", nil)
		return
	}
	h.submitArticle(ctx, b, chatID, link)
}

// submitArticle shows a preview of the page, then hands the link to the
// backend. A failed preview never stops the submission.
func (h *Handler) submitArticle(ctx context.Context, b *bot.Bot, chatID int64, link string) {
	if err := article.ValidateURL(link); err != nil {
		h.replyError(ctx, b, chatID, "submit url", err)
		return
	}

	if h.previewer != nil {
		if p, err := h.previewer.Preview(ctx, link); err != nil {
			slog.Debug("article preview failed", "url", link, "error", err)
		} else {
			h.replyMarkdown(ctx, b, chatID, FormatPreview(p), nil)
		}
	}

	status := h.reply(ctx, b, chatID, "🔎 Reading the article...", nil)
	stopTyping := telegram.StartTyping(ctx, b, chatID)
	res, err := h.controller(ctx, chatID).SubmitURL(ctx, link)
	stopTyping()
	if status != nil {
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: status.ID})
	}
	if err != nil {
		h.replyError(ctx, b, chatID, "submit url", err)
		return
	}
	h.replyMarkdown(ctx, b, chatID, FormatAnalysis(res), nil)
}
