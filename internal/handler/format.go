package handler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/set-night/newscuss/internal/apierr"
	"github.com/set-night/newscuss/internal/domain"
	"github.com/set-night/newscuss/internal/telegram"
)

const helpText = `📰 *Newscuss*: debate the news.

1. Send me a news article link (or /url <link>).
2. /topic: get a debate topic and pick your side.
3. Write your arguments; I argue the other side.
4. /end: finish and get a summary and feedback.

Other commands:
/history: recent messages
/view: the whole discussion, read-only
/summary: discussion summary
/feedback: your scores
/status: where you are
/reset: start over`

// FormatPreview renders what was scraped from the article page.
func FormatPreview(p *domain.ArticlePreview) string {
	var sb strings.Builder
	sb.WriteString("🔗 ")
	if p.SiteName != "" {
		sb.WriteString("_" + telegram.EscapeMarkdown(p.SiteName) + "_\n")
	}
	if p.Title != "" {
		sb.WriteString("*" + telegram.EscapeMarkdown(p.Title) + "*\n")
	}
	if p.Description != "" {
		sb.WriteString(telegram.EscapeMarkdown(p.Description) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatAnalysis(a *domain.ArticleAnalysis) string {
	var sb strings.Builder
	sb.WriteString("📝 *Article summary*\n\n")
	sb.WriteString(telegram.EscapeMarkdown(a.Summary))
	if len(a.Keywords) > 0 {
		tags := make([]string, len(a.Keywords))
		for i, k := range a.Keywords {
			tags[i] = "#" + strings.ReplaceAll(telegram.EscapeMarkdown(k), " ", "\\_")
		}
		sb.WriteString("\n\n🏷 " + strings.Join(tags, " "))
	}
	sb.WriteString("\n\nUse /topic to get a debate topic.")
	return sb.String()
}

func FormatTopic(t *domain.GeneratedTopic) string {
	var sb strings.Builder
	sb.WriteString("🎯 *Topic:* " + telegram.EscapeMarkdown(t.Topic))
	if t.Description != "" {
		sb.WriteString("\n\n" + telegram.EscapeMarkdown(t.Description))
	}
	sb.WriteString("\n\nWhich side are you on?")
	return sb.String()
}

// FormatMessage renders one log entry as plain text.
func FormatMessage(m domain.Message) string {
	who := "🧑 You"
	switch m.Sender {
	case domain.SenderAI:
		who = "🤖 AI"
	case domain.SenderSystem:
		who = "ℹ️"
	}
	text := m.Text
	if m.IsStreaming {
		text += " ▌"
	}
	if m.Time != "" {
		return fmt.Sprintf("%s [%s]\n%s", who, m.Time, text)
	}
	return who + "\n" + text
}

func FormatHistory(messages []domain.Message) string {
	if len(messages) == 0 {
		return "No messages yet."
	}
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = FormatMessage(m)
	}
	return strings.Join(parts, "\n\n")
}

func FormatFeedback(f *domain.FeedbackReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 *Overall score: %d/100*\n", f.OverallScore)
	for _, c := range f.Categories() {
		fmt.Fprintf(&sb, "\n*%s*: %d/100", c.Name, c.Score.Score)
		if c.Score.Comment != "" {
			sb.WriteString("\n" + telegram.EscapeMarkdown(c.Score.Comment))
		}
		sb.WriteString("\n")
	}
	if f.OverallComment != "" {
		sb.WriteString("\n💬 " + telegram.EscapeMarkdown(f.OverallComment))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatSummary(summary string) string {
	return "📋 *Discussion summary*\n\n" + summary
}

// FormatStatus describes where the chat is in the debate flow.
func FormatStatus(s domain.Session, readOnly bool) string {
	if !s.Active() {
		return "No active session. Send me a news article link to begin."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\n", s.SessionID)
	if len(s.Keywords) > 0 {
		fmt.Fprintf(&sb, "Keywords: %s\n", strings.Join(s.Keywords, ", "))
	}
	if s.Topic == "" {
		sb.WriteString("Topic: not chosen yet (/topic)\n")
	} else {
		fmt.Fprintf(&sb, "Topic: %s\n", s.Topic)
	}
	if s.Started() {
		fmt.Fprintf(&sb, "You: %s · AI: %s · Difficulty: %s\n",
			s.UserPosition.Label(), s.AIPosition.Label(), s.Difficulty)
		fmt.Fprintf(&sb, "Messages loaded: %d", len(s.Messages))
		if s.HasMoreMessages {
			sb.WriteString(" (older ones stored)")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Summary: %s", s.SummaryStatus)
	if s.SummaryStatus == domain.SummarySummarizing {
		fmt.Fprintf(&sb, " (%d%%)", s.SummaryProgress)
	}
	if readOnly {
		sb.WriteString("\nRead-only")
	}
	return sb.String()
}

// LooksLikeURL reports whether text is a single http(s) link.
func LooksLikeURL(text string) bool {
	text = strings.TrimSpace(text)
	if strings.ContainsAny(text, " \n\t") {
		return false
	}
	u, err := url.Parse(text)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CommandArg returns the text after the command word.
func CommandArg(text string) string {
	_, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(arg)
}

// IsBackendError reports whether err came from the backend rather than a
// local precondition.
func IsBackendError(err error) bool {
	var e *apierr.Error
	return errors.As(err, &e)
}

// ErrorReply returns the text and keyboard shown for err.
func ErrorReply(err error) (string, models.ReplyMarkup) {
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return "📰 No active session. Send me a news article link to begin.", nil
	case errors.Is(err, domain.ErrNoTopic):
		return "🎯 No topic yet. Use /topic to get one.", nil
	case errors.Is(err, domain.ErrNoDiscussion):
		return "⚖️ Pick a side first: use /topic.", nil
	case errors.Is(err, domain.ErrSendInFlight):
		return "⏳ Wait for the reply to your previous message.", nil
	case errors.Is(err, domain.ErrInvalidURL):
		return "❌ That doesn't look like a valid http(s) link.", nil
	case errors.Is(err, domain.ErrReadOnly):
		return "👀 This discussion is read-only.", nil
	case errors.Is(err, domain.ErrEmptyMessage):
		return "✏️ Write something first.", nil
	case errors.Is(err, domain.ErrSummaryNotStarted):
		return "📋 No summary yet. Use /summary to request one.", nil
	case errors.Is(err, context.DeadlineExceeded):
		return "⏳ That is taking longer than expected. Please try again.", nil
	}

	e := apierr.Normalize(err)
	text := "❌ " + apierr.FriendlyMessage(e)
	switch e.Recovery() {
	case apierr.RecoveryRetry:
		if !strings.Contains(text, "try again") {
			text += "\nPlease try again."
		}
		return text, nil
	case apierr.RecoveryRestart:
		return text, telegram.RestartKeyboard()
	}
	return text, nil
}
