package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/config"
)

// Logger mirrors notable events into forum topics of an operator chat.
type Logger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewLogger(b *bot.Bot, cfg *config.Config) *Logger {
	return &Logger{bot: b, cfg: cfg}
}

type LogType string

const (
	LogTypeError   LogType = "error"
	LogTypeSession LogType = "session"
)

func (l *Logger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}
	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       models.ParseModeMarkdownV1,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *Logger) LogError(err error, context string, chatID int64) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Chat:* `%d`\n*Error:* `%s`\n*Time:* %s",
		context, chatID, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *Logger) LogDiscussionStarted(chatID int64, sessionID, topic string) {
	msg := fmt.Sprintf("🗣 *Discussion started*\n\n*Chat:* `%d`\n*Session:* `%s`\n*Topic:* %s",
		chatID, sessionID, EscapeMarkdown(topic))
	l.Log(LogTypeSession, msg)
}

func (l *Logger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeSession:
		return l.cfg.LogTopicSession
	default:
		return 0
	}
}
