// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// JoinNonEmpty joins the non-empty parts with a single space after sanitizing
// each one. Used to assemble profile embedding text.
func JoinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := SanitizeText(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

// Snippet truncates s to max runes, appending an ellipsis when cut.
func Snippet(s string, max int) string {
	s = SanitizeText(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
