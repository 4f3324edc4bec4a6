// Package util holds small text helpers shared by the terminal views.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks text that was cut short.
const Ellipsis = "…"

// Truncate shortens s to at most n runes, replacing the tail with an
// ellipsis. It ignores ANSI escapes; use FitWidth for styled text.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n == 1 {
		return Ellipsis
	}
	return string(runes[:n-1]) + Ellipsis
}

// FitWidth shortens s to width terminal columns. ANSI escapes are kept and
// wide runes (CJK readings) count as two columns. A width of zero or less
// means the terminal size is unknown and s is returned unchanged.
func FitWidth(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, Ellipsis)
}

// FirstLine returns the first non-blank line of s, trimmed. Model replies
// often wrap a one-line reason in blank lines.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
