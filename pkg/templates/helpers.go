package templates

import (
	"strings"
)

// EscapeMarkdown escapes the characters Telegram's legacy Markdown
// parser treats as entity markers. This is a shared helper used by both
// templates and the telegram package; an unpaired marker in a team or
// player name makes Telegram reject the whole message.
func EscapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(text)
}

// FenceText sanitizes text for use inside a ``` block, where a stray
// backtick would terminate the fence early. Backslash escapes do not
// work inside fences, so backticks are swapped for apostrophes.
func FenceText(text string) string {
	text = strings.ToValidUTF8(text, "")
	return strings.ReplaceAll(text, "`", "'")
}

// SafeText sanitizes text for interpolation into a Markdown message:
// 1. Removes invalid UTF-8 sequences
// 2. Escapes legacy Markdown entity markers
func SafeText(text string) string {
	text = strings.ToValidUTF8(text, "")
	return EscapeMarkdown(text)
}
