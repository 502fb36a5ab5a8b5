package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/domain"
	"github.com/set-night/newscuss/internal/telegram"
)

func (h *Handler) handleTopic(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.generateTopic(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) handleNewTopic(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := callback(ctx, b, update)
	if !ok {
		return
	}
	dropKeyboard(ctx, b, update)
	h.generateTopic(ctx, b, chatID)
}

func (h *Handler) generateTopic(ctx context.Context, b *bot.Bot, chatID int64) {
	c := h.controller(ctx, chatID)
	if err := c.RequireSession(); err != nil {
		h.replyError(ctx, b, chatID, "generate topic", err)
		return
	}

	stopTyping := telegram.StartTyping(ctx, b, chatID)
	topic, err := c.GenerateTopic(ctx)
	stopTyping()
	if err != nil {
		h.replyError(ctx, b, chatID, "generate topic", err)
		return
	}
	h.replyMarkdown(ctx, b, chatID, FormatTopic(topic), telegram.PositionKeyboard())
}

// handlePositionSelect handles pos_<position>.
func (h *Handler) handlePositionSelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := callback(ctx, b, update)
	if !ok {
		return
	}
	raw := strings.TrimPrefix(update.CallbackQuery.Data, telegram.CallbackPositionPrefix)
	position, err := domain.ParsePosition(raw)
	if err != nil {
		h.replyError(ctx, b, chatID, "select position", err)
		return
	}
	if err := h.controller(ctx, chatID).RequireTopic(); err != nil {
		h.replyError(ctx, b, chatID, "select position", err)
		return
	}

	dropKeyboard(ctx, b, update)
	h.reply(ctx, b, chatID, "You argue "+position.Label()+". Choose the difficulty:",
		telegram.DifficultyKeyboard(strings.ToLower(position.Label())))
}

// handleDifficultySelect handles diff_<position>_<level> and opens the
// discussion.
func (h *Handler) handleDifficultySelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := callback(ctx, b, update)
	if !ok {
		return
	}
	raw := strings.TrimPrefix(update.CallbackQuery.Data, telegram.CallbackDifficultyPrefix)
	rawPosition, rawLevel, _ := strings.Cut(raw, "_")
	position, err := domain.ParsePosition(rawPosition)
	if err != nil {
		h.replyError(ctx, b, chatID, "start discussion", err)
		return
	}
	difficulty, err := domain.ParseDifficulty(rawLevel)
	if err != nil {
		h.replyError(ctx, b, chatID, "start discussion", err)
		return
	}

	dropKeyboard(ctx, b, update)
	c := h.controller(ctx, chatID)
	stopTyping := telegram.StartTyping(ctx, b, chatID)
	res, err := c.StartDiscussion(ctx, position, difficulty)
	stopTyping()
	if err != nil {
		h.replyError(ctx, b, chatID, "start discussion", err)
		return
	}

	snap := c.Snapshot()
	h.tgLogger.LogDiscussionStarted(chatID, snap.SessionID, snap.Topic)
	h.reply(ctx, b, chatID, "⚖️ Debate on! You: "+position.Label()+" · AI: "+snap.AIPosition.Label()+
		" · "+string(difficulty)+"\nWrite your arguments; /end when you are done.", nil)
	h.replyMarkdown(ctx, b, chatID, "🤖 "+res.AIMessage, nil)
}
