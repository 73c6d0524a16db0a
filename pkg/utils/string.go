package utils

import (
	"strings"
	"unicode"
)

// SanitizeMessage strips control characters and Unicode tag characters from
// a raw chat line. Some Twitch clients append a run of tag characters
// (U+E0000..U+E007F) to duplicate messages to bypass the identical-message
// filter; those must not reach the tokenizer.
func SanitizeMessage(s string) string {
	s = strings.Map(func(r rune) rune {
		if r >= 0xE0000 && r <= 0xE007F {
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// TruncateRunes truncates a string to at most maxLen runes, appending "..."
// when anything was cut.
func TruncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// MaskSensitive masks all but the first visibleChars characters, for logging
// tokens and keys.
func MaskSensitive(s string, visibleChars int) string {
	if len(s) <= visibleChars {
		return strings.Repeat("*", len(s))
	}
	return s[:visibleChars] + strings.Repeat("*", len(s)-visibleChars)
}
