package textprep

import "unicode"

// boundaryLookback is how far back from the truncation point Clip searches
// for a sentence terminator, in characters.
const boundaryLookback = 200

// sentence-terminal punctuation recognized by Clip.
func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' }

// Clip bounds text to maxChars characters, preferring a cut on a sentence
// boundary. Scanning backward from the truncation point within the
// look-back window, the rightmost terminator followed by whitespace (or
// sitting at the cut itself) wins; failing that, the cut falls on the
// nearest preceding whitespace, and as a last resort at maxChars exactly.
// Character counts are rune counts, so multi-byte text never splits
// mid-character. The result never exceeds maxChars characters.
func Clip(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	clipped := runes[:maxChars]

	start := len(clipped) - boundaryLookback
	if start < 0 {
		start = 0
	}
	for i := len(clipped) - 1; i >= start; i-- {
		if !isTerminal(clipped[i]) {
			continue
		}
		if i == len(clipped)-1 || unicode.IsSpace(clipped[i+1]) {
			return string(clipped[:i+1])
		}
	}

	// No sentence boundary in the window; back up to whitespace instead.
	for i := len(clipped) - 1; i >= 0; i-- {
		if unicode.IsSpace(clipped[i]) {
			end := i
			for end > 0 && unicode.IsSpace(clipped[end-1]) {
				end--
			}
			if end > 0 {
				return string(clipped[:end])
			}
			break
		}
	}

	return string(clipped)
}
