package session

import (
	"fmt"
	"strings"
)

// Deterministic pre-submission screen. Runs before any model call and
// only produces advisory hints; it never blocks a submission.

// maxSentenceWords is the length past which a sentence gets flagged.
const maxSentenceWords = 30

// jargonTerms are hedge words and filler that usually signal an
// explanation leaning on vocabulary instead of understanding.
var jargonTerms = []string{
	"basically",
	"essentially",
	"paradigm",
	"leverage",
	"utilize",
	"synerg",
	"holistic",
	"heuristically",
	"fundamentally",
	"intrinsically",
}

// JargonHints scans a submission for readability problems: overlong
// sentences, filler jargon, and a high share of long words. Pure
// function, stable output order.
func JargonHints(text string) []string {
	var hints []string

	lower := strings.ToLower(text)
	for _, term := range jargonTerms {
		if strings.Contains(lower, term) {
			hints = append(hints, fmt.Sprintf("%q often hides a gap, try saying it plainly", term))
		}
	}

	for _, sentence := range splitSentences(text) {
		words := strings.Fields(sentence)
		if len(words) > maxSentenceWords {
			hints = append(hints, fmt.Sprintf("a %d-word sentence is hard to follow, split it up", len(words)))
		}
	}

	if ratio := longWordRatio(text); ratio > 0.3 {
		hints = append(hints, "lots of long words here, a twelve-year-old should be able to read this")
	}

	return hints
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

// longWordRatio is the share of words with more than 8 letters.
func longWordRatio(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	long := 0
	for _, w := range words {
		if len(strings.Trim(w, ".,;:!?()\"'")) > 8 {
			long++
		}
	}
	return float64(long) / float64(len(words))
}
