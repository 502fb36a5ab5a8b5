package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/config"
)

const MaxMessageLen = config.MaxTelegramMessageLen

// Messenger is the part of *bot.Bot used to post and rewrite messages.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
}

// SendLongMessage sends text split into as many messages as needed. The
// markup, if any, goes on the last part. Markdown that Telegram rejects is
// resent as plain text.
func SendLongMessage(ctx context.Context, m Messenger, chatID int64, text string, markup models.ReplyMarkup) error {
	parts := SplitMessage(FixMarkdown(text), MaxMessageLen)
	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeMarkdownV1,
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		if _, err := m.SendMessage(ctx, params); err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			if _, err := m.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}

// SendPlain sends a short plain-text message.
func SendPlain(ctx context.Context, m Messenger, chatID int64, text string, markup models.ReplyMarkup) (*models.Message, error) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	msg, err := m.SendMessage(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

// EditLongMessage rewrites a message, truncating text that no longer fits.
func EditLongMessage(ctx context.Context, m Messenger, chatID int64, messageID int, text string, markup models.ReplyMarkup) error {
	text = truncate(FixMarkdown(text), MaxMessageLen)
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := m.EditMessageText(ctx, params); err != nil {
		params.ParseMode = ""
		if _, err := m.EditMessageText(ctx, params); err != nil {
			return fmt.Errorf("edit message: %w", err)
		}
	}
	return nil
}

func truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	return string([]rune(text)[:maxLen-3]) + "..."
}

// StartTyping sends "typing..." every 4 seconds until the returned cancel
// function is called.
func StartTyping(ctx context.Context, b *bot.Bot, chatID int64) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		b.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.SendChatAction(ctx, &bot.SendChatActionParams{
					ChatID: chatID,
					Action: models.ChatActionTyping,
				})
			}
		}
	}()
	return cancel
}

const streamCursor = " ▌"

// StreamEditor rewrites one message as a reply streams in, at most once per
// interval.
type StreamEditor struct {
	m         Messenger
	chatID    int64
	messageID int
	interval  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	lastEdit time.Time
	lastText string
}

func NewStreamEditor(m Messenger, chatID int64, messageID int, interval time.Duration) *StreamEditor {
	return &StreamEditor{
		m:         m,
		chatID:    chatID,
		messageID: messageID,
		interval:  interval,
		now:       time.Now,
	}
}

// Update shows the partial text if the interval has passed since the last
// edit. It reports whether an edit was sent.
func (e *StreamEditor) Update(ctx context.Context, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if text == "" || text == e.lastText || now.Sub(e.lastEdit) < e.interval {
		return false
	}

	_, err := e.m.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    e.chatID,
		MessageID: e.messageID,
		Text:      truncate(text, MaxMessageLen-len([]rune(streamCursor))) + streamCursor,
	})
	if err != nil {
		slog.Debug("stream edit failed", "chat_id", e.chatID, "error", err)
		return false
	}
	e.lastEdit = now
	e.lastText = text
	return true
}

// Finish writes the complete reply. The first part replaces the streamed
// message; any overflow follows as new messages.
func (e *StreamEditor) Finish(ctx context.Context, text string, markup models.ReplyMarkup) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	parts := SplitMessage(FixMarkdown(text), MaxMessageLen)
	var first models.ReplyMarkup
	if len(parts) == 1 {
		first = markup
	}
	if err := EditLongMessage(ctx, e.m, e.chatID, e.messageID, parts[0], first); err != nil {
		return err
	}
	e.lastText = text
	if len(parts) == 1 {
		return nil
	}
	for i, part := range parts[1:] {
		var mk models.ReplyMarkup
		if i == len(parts)-2 {
			mk = markup
		}
		if err := SendLongMessage(ctx, e.m, e.chatID, part, mk); err != nil {
			return err
		}
	}
	return nil
}
