package compose

import "strings"

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeMarkup escapes the characters the notification body-markup format
// treats specially. Callers only apply it when the server reports markup
// support; otherwise text is passed through untouched.
func EscapeMarkup(s string) string {
	return markupEscaper.Replace(s)
}

func isDateSep(c byte) bool {
	return c == '-' || c == '.' || c == '/' || c == ' '
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// yearOf extracts YYYY from a YYYY-MM-DD shaped date for display purposes.
// Anything else is returned as-is.
func yearOf(s string) (string, bool) {
	if len(s) != 10 {
		return s, false
	}
	if isDigit(s[0]) && isDigit(s[1]) && isDigit(s[2]) && isDigit(s[3]) &&
		isDateSep(s[4]) && isDigit(s[5]) && isDigit(s[6]) &&
		isDateSep(s[7]) && isDigit(s[8]) && isDigit(s[9]) {
		return s[:4], true
	}
	return s, false
}
