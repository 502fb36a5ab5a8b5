package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/debate"
	"github.com/set-night/newscuss/internal/telegram"
)

const summaryPollInterval = 2 * time.Second

func (h *Handler) handleSummary(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.summarize(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) handleSummaryRetry(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := callback(ctx, b, update)
	if !ok {
		return
	}
	dropKeyboard(ctx, b, update)
	h.summarize(ctx, b, chatID)
}

// summarize shows the discussion summary, starting the background request
// if needed and reporting its progress while it runs.
func (h *Handler) summarize(ctx context.Context, b *bot.Bot, chatID int64) bool {
	c := h.controller(ctx, chatID)
	if err := c.RequireDiscussion(); err != nil {
		h.replyError(ctx, b, chatID, "summary", err)
		return false
	}
	if summary, ok := c.CachedSummary(ctx); ok {
		h.replyMarkdown(ctx, b, chatID, FormatSummary(summary), nil)
		return true
	}

	c.StartBackgroundSummary(ctx)
	status := h.reply(ctx, b, chatID, progressText(c), nil)

	summary, err := h.waitWithProgress(ctx, b, chatID, c, status)
	if status != nil {
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: status.ID})
	}
	if err != nil {
		text, markup := ErrorReply(err)
		if markup == nil {
			markup = telegram.SummaryRetryKeyboard()
		}
		if IsBackendError(err) {
			h.tgLogger.LogError(err, "summary", chatID)
		}
		h.reply(ctx, b, chatID, text, markup)
		return false
	}
	h.replyMarkdown(ctx, b, chatID, FormatSummary(summary), nil)
	return true
}

func (h *Handler) waitWithProgress(ctx context.Context, b *bot.Bot, chatID int64, c *debate.Controller, status *models.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.SummaryTimeout+config.RequestTimeout)
	defer cancel()

	type result struct {
		summary string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.WaitForSummary(ctx)
		done <- result{s, err}
	}()

	ticker := time.NewTicker(summaryPollInterval)
	defer ticker.Stop()
	last := ""
	for {
		select {
		case r := <-done:
			return r.summary, r.err
		case <-ticker.C:
			if status == nil {
				continue
			}
			if text := progressText(c); text != last {
				last = text
				b.EditMessageText(ctx, &bot.EditMessageTextParams{
					ChatID:    chatID,
					MessageID: status.ID,
					Text:      text,
				})
			}
		}
	}
}

func progressText(c *debate.Controller) string {
	return fmt.Sprintf("📋 Summarizing the discussion... %d%%", c.Snapshot().SummaryProgress)
}

func (h *Handler) handleFeedback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	refresh := CommandArg(update.Message.Text) == "refresh"
	h.feedback(ctx, b, chatID, refresh)
}

func (h *Handler) feedback(ctx context.Context, b *bot.Bot, chatID int64, refresh bool) {
	c := h.controller(ctx, chatID)
	if err := c.RequireDiscussion(); err != nil {
		h.replyError(ctx, b, chatID, "feedback", err)
		return
	}
	stopTyping := telegram.StartTyping(ctx, b, chatID)
	report, err := c.GetFeedback(ctx, refresh)
	stopTyping()
	if err != nil {
		h.replyError(ctx, b, chatID, "feedback", err)
		return
	}
	h.replyMarkdown(ctx, b, chatID, FormatFeedback(report), telegram.RestartKeyboard())
}

func (h *Handler) handleEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	c := h.controller(ctx, chatID)
	if err := c.RequireDiscussion(); err != nil {
		h.replyError(ctx, b, chatID, "end discussion", err)
		return
	}
	if c.NeedsEndConfirmation(ctx) {
		h.reply(ctx, b, chatID,
			"🤔 You have barely argued yet. The summary and feedback will be thin. End anyway?",
			telegram.EndConfirmKeyboard())
		return
	}
	h.finish(ctx, b, chatID)
}

func (h *Handler) handleEndConfirm(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := callback(ctx, b, update)
	if !ok {
		return
	}
	dropKeyboard(ctx, b, update)
	h.finish(ctx, b, chatID)
}

func (h *Handler) handleEndCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := callback(ctx, b, update)
	if !ok {
		return
	}
	dropKeyboard(ctx, b, update)
	h.reply(ctx, b, chatID, "💪 Carry on, write your next argument.", nil)
}

// finish closes the discussion with its summary followed by the feedback
// report.
func (h *Handler) finish(ctx context.Context, b *bot.Bot, chatID int64) {
	h.reply(ctx, b, chatID, "🏁 Discussion finished.", nil)
	if !h.summarize(ctx, b, chatID) {
		return
	}
	h.feedback(ctx, b, chatID, false)
}
