package guard

import (
	"regexp"
	"strings"
)

// RedactionMarker replaces secret-shaped substrings in sanitized output.
const RedactionMarker = "[REDACTED]"

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	jsURIPattern   = regexp.MustCompile(`(?i)javascript:`)

	// secretPatterns match API-key-shaped tokens, bare hex secrets, and
	// credential assignments in model output.
	secretPatterns = []*regexp.Regexp{
		regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		regexp.MustCompile(`\b[a-fA-F0-9]{32,}\b`),
		regexp.MustCompile(`(?i)(password|token|secret|key)\s*[:=]\s*['"]?\S+`),
	}
)

// SanitizeOutput scrubs model output before it reaches the caller: strips
// HTML-tag-like substrings, removes javascript: URI prefixes, and redacts
// secret-shaped tokens. Never fails; unmatched input passes through trimmed.
func SanitizeOutput(text string) string {
	s := htmlTagPattern.ReplaceAllString(text, "")
	s = jsURIPattern.ReplaceAllString(s, "")
	for _, pattern := range secretPatterns {
		s = pattern.ReplaceAllString(s, RedactionMarker)
	}
	return strings.TrimSpace(s)
}
