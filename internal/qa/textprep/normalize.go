// Package textprep prepares free text for prompt construction: Unicode
// normalization and whitespace canonicalization, plus length clipping on
// sentence boundaries. All functions are pure and idempotent.
package textprep

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// quoteReplacer maps typographic quote and dash variants to plain ASCII.
var quoteReplacer = strings.NewReplacer(
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"–", "-", // en dash
	"—", "-", // em dash
)

// Normalize applies NFKC normalization, maps smart quotes and dashes to
// ASCII, collapses whitespace runs (including newlines and tabs) to single
// spaces, and trims the result. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = quoteReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
