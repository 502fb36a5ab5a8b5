package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/article"
	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/debate"
	"github.com/set-night/newscuss/internal/middleware"
	"github.com/set-night/newscuss/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot       *bot.Bot
	cfg       *config.Config
	registry  *debate.Registry
	viewer    func(chatID int64) *debate.Controller
	previewer *article.Previewer
	tgLogger  *telegram.Logger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot      *bot.Bot
	Cfg      *config.Config
	Registry *debate.Registry
	// Viewer builds a read-only controller over a chat's stored session.
	Viewer    func(chatID int64) *debate.Controller
	Previewer *article.Previewer
	TgLogger  *telegram.Logger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:       deps.Bot,
		cfg:       deps.Cfg,
		registry:  deps.Registry,
		viewer:    deps.Viewer,
		previewer: deps.Previewer,
		tgLogger:  deps.TgLogger,
	}
}

// controller returns the chat's controller, loading it if the middleware
// did not.
func (h *Handler) controller(ctx context.Context, chatID int64) *debate.Controller {
	if c := middleware.GetController(ctx); c != nil {
		return c
	}
	return h.registry.Get(ctx, chatID)
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) *models.Message {
	msg, err := telegram.SendPlain(ctx, b, chatID, text, markup)
	if err != nil {
		slog.Error("reply", "chat_id", chatID, "error", err)
		return nil
	}
	return msg
}

func (h *Handler) replyMarkdown(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	if err := telegram.SendLongMessage(ctx, b, chatID, text, markup); err != nil {
		slog.Error("reply markdown", "chat_id", chatID, "error", err)
	}
}

// replyError answers with the user-facing text for err and the matching
// recovery keyboard. Backend failures are mirrored to the operator chat.
func (h *Handler) replyError(ctx context.Context, b *bot.Bot, chatID int64, op string, err error) {
	text, markup := ErrorReply(err)
	if IsBackendError(err) {
		h.tgLogger.LogError(err, op, chatID)
	}
	h.reply(ctx, b, chatID, text, markup)
}

// callback acknowledges a callback query and returns the chat it came from.
func callback(ctx context.Context, b *bot.Bot, update *models.Update) (chatID int64, ok bool) {
	if update.CallbackQuery == nil {
		return 0, false
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})
	chatID = middleware.ChatID(update)
	return chatID, chatID != 0
}

// dropKeyboard removes the inline keyboard from the message a callback
// came from, so a choice cannot be made twice.
func dropKeyboard(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.CallbackQuery.Message.Message
	if msg == nil {
		return
	}
	b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	})
}
