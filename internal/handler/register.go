package handler

import (
	"github.com/go-telegram/bot"

	"github.com/set-night/newscuss/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
// The catch-all text handler is registered separately by main, after
// everything else.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/url", bot.MatchTypePrefix, h.handleURL)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/topic", bot.MatchTypePrefix, h.handleTopic)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypePrefix, h.handleHistory)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/view", bot.MatchTypePrefix, h.handleView)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/summary", bot.MatchTypePrefix, h.handleSummary)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/feedback", bot.MatchTypePrefix, h.handleFeedback)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, h.handleStatus)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/end", bot.MatchTypePrefix, h.handleEnd)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reset", bot.MatchTypePrefix, h.handleReset)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, h.handleStats)

	// Discussion setup callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackPositionPrefix, bot.MatchTypePrefix, h.handlePositionSelect)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackDifficultyPrefix, bot.MatchTypePrefix, h.handleDifficultySelect)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackNewTopic, bot.MatchTypeExact, h.handleNewTopic)

	// History callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackHistoryMore, bot.MatchTypeExact, h.handleHistoryMore)

	// End-of-discussion callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackEndConfirm, bot.MatchTypeExact, h.handleEndConfirm)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackEndCancel, bot.MatchTypeExact, h.handleEndCancel)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackRetrySummary, bot.MatchTypeExact, h.handleSummaryRetry)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackRestart, bot.MatchTypeExact, h.handleRestart)
}
