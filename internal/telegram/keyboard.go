package telegram

import (
	"github.com/go-telegram/bot/models"
)

// Callback data shared by keyboards and handlers.
const (
	CallbackPositionPrefix   = "pos_"
	CallbackDifficultyPrefix = "diff_"
	CallbackHistoryMore      = "history_more"
	CallbackEndConfirm       = "end_confirm"
	CallbackEndCancel        = "end_cancel"
	CallbackNewTopic         = "topic_new"
	CallbackRetrySummary     = "summary_retry"
	CallbackRestart          = "restart"
)

func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// PositionKeyboard offers both stances plus a fresh topic.
func PositionKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(
		ButtonRow(
			InlineButton("👍 FOR", CallbackPositionPrefix+"for"),
			InlineButton("👎 AGAINST", CallbackPositionPrefix+"against"),
		),
		ButtonRow(InlineButton("🔄 Another topic", CallbackNewTopic)),
	)
}

// DifficultyKeyboard carries the chosen stance in each button.
func DifficultyKeyboard(position string) *models.InlineKeyboardMarkup {
	prefix := CallbackDifficultyPrefix + position + "_"
	return InlineKeyboard(ButtonRow(
		InlineButton("🟢 Easy", prefix+"easy"),
		InlineButton("🟡 Medium", prefix+"medium"),
		InlineButton("🔴 Hard", prefix+"hard"),
	))
}

// HistoryKeyboard returns a nil interface when there is nothing older to
// show, so it can be passed straight into send params.
func HistoryKeyboard(hasMore bool) models.ReplyMarkup {
	if !hasMore {
		return nil
	}
	return InlineKeyboard(ButtonRow(InlineButton("⬆️ Older messages", CallbackHistoryMore)))
}

func EndConfirmKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(ButtonRow(
		InlineButton("✅ End anyway", CallbackEndConfirm),
		InlineButton("↩️ Keep debating", CallbackEndCancel),
	))
}

func SummaryRetryKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(
		ButtonRow(InlineButton("🔁 Try again", CallbackRetrySummary)),
		ButtonRow(InlineButton("🆕 Start over", CallbackRestart)),
	)
}

func RestartKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(ButtonRow(InlineButton("🆕 Start over", CallbackRestart)))
}
