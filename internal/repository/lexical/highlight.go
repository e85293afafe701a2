package lexical

import (
	"strings"
	"unicode/utf8"
)

const (
	highlightOpen  = "<em>"
	highlightClose = "</em>"

	maxFragments = 3
	fragmentLen  = 150
)

// stripTags removes highlight tags, restoring the stored field value.
func stripTags(s string) string {
	if !strings.Contains(s, highlightOpen) {
		return s
	}
	s = strings.ReplaceAll(s, highlightOpen, "")
	return strings.ReplaceAll(s, highlightClose, "")
}

// extractFragments cuts up to maxFragments windows of roughly
// fragmentLen bytes around tagged matches. Tags are kept inside the
// fragments so callers can render emphasis.
func extractFragments(s string) []string {
	var frags []string
	searchFrom := 0

	for len(frags) < maxFragments {
		idx := strings.Index(s[searchFrom:], highlightOpen)
		if idx < 0 {
			break
		}
		idx += searchFrom

		start := idx - fragmentLen/3
		if start < 0 {
			start = 0
		}
		end := start + fragmentLen
		if end > len(s) {
			end = len(s)
		}

		// never cut through the closing tag of the match itself
		if rel := strings.Index(s[idx:], highlightClose); rel >= 0 {
			if closeEnd := idx + rel + len(highlightClose); closeEnd > end {
				end = closeEnd
			}
		}
		if end > len(s) {
			end = len(s)
		}

		start = snapRuneStart(s, start)
		end = snapRuneStart(s, end)

		frag := strings.TrimSpace(s[start:end])
		if frag != "" {
			frags = append(frags, frag)
		}
		searchFrom = end
		if searchFrom >= len(s) {
			break
		}
	}

	return frags
}

// snapRuneStart moves i back to the nearest rune boundary.
func snapRuneStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
