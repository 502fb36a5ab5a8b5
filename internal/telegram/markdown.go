package telegram

import (
	"strings"
)

const fence = "```"

// SplitMessage cuts text into parts of at most maxLen runes. A part ends
// after the last newline in its second half when there is one.
func SplitMessage(text string, maxLen int) []string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(runes) > maxLen {
		cut := maxLen
		for i := maxLen - 1; i >= maxLen/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// FixMarkdown closes code blocks and inline code left open, which
// Telegram would otherwise reject.
func FixMarkdown(text string) string {
	if strings.Count(text, fence)%2 != 0 {
		text += "\n" + fence
	}
	return closeInlineCode(text)
}

// closeInlineCode balances backticks in every segment between fences.
func closeInlineCode(text string) string {
	segments := strings.Split(text, fence)
	for i := 0; i < len(segments); i += 2 {
		if strings.Count(segments[i], "`")%2 != 0 {
			segments[i] += "`"
		}
	}
	return strings.Join(segments, fence)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown makes backend or user text safe inside legacy Markdown.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
