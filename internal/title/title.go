// Package title derives short display labels for threads from message text.
package title

import "strings"

// Sentinel is the label of a thread that has no human turn yet.
const Sentinel = "New Chat"

// DefaultMaxLen is the default display length before truncation.
const DefaultMaxLen = 30

var markdown = strings.NewReplacer("#", "", "*", "", "`", "")

// Derive produces a display title from arbitrary message text using the
// default length limit. It is pure and never fails.
func Derive(text string) string {
	return DeriveMax(text, DefaultMaxLen)
}

// DeriveMax keeps only the first line, strips markdown emphasis characters
// and surrounding whitespace, and truncates to maxLen runes with an ellipsis.
// Empty input, or input that is empty after cleaning, yields the sentinel.
func DeriveMax(text string, maxLen int) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(markdown.Replace(line))
	if line == "" {
		return Sentinel
	}
	runes := []rune(line)
	if len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen])) + "..."
	}
	return line
}
