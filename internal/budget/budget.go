// Package budget estimates model token usage from conversation turns.
package budget

import "github.com/feynlab/feynlab/pkg/types"

// DefaultCharsPerToken is the approximation ratio shared with the
// compression thresholds. Roughly right for English prose; close enough
// for budgeting, which only needs to be consistent, not exact.
const DefaultCharsPerToken = 4

// Estimator converts turns into an approximate token count. It is a
// pure function of the turns' text content; construct one per session
// (or test) rather than sharing a global.
type Estimator struct {
	charsPerToken int
}

// NewEstimator creates an estimator with the given ratio. A ratio of
// zero or less falls back to the default.
func NewEstimator(charsPerToken int) *Estimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &Estimator{charsPerToken: charsPerToken}
}

// Estimate returns the approximate token count for the given turns.
// Role and text both count: the role tag is serialized into the request
// alongside the text. Always non-negative, never errors.
func (e *Estimator) Estimate(turns []types.Turn) int {
	chars := 0
	for _, t := range turns {
		chars += len(t.Role) + len(t.Text)
	}
	return chars / e.charsPerToken
}

// EstimateText returns the approximate token count for a single string.
func (e *Estimator) EstimateText(text string) int {
	return len(text) / e.charsPerToken
}
