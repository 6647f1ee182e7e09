package types

// Verdict is the structured result of validating one field submission.
// It arrives from the model boundary already parsed; the core never sees
// the raw response body.
type Verdict struct {
	Status     FieldStatus `json:"status"` // approved | needs_revision | analyzing
	Issues     []string    `json:"issues,omitempty"`
	Strengths  []string    `json:"strengths,omitempty"`
	Suggestion *string     `json:"suggestion,omitempty"`

	// TokensUsed is the provider-reported usage for this exchange.
	// Recorded for display; the budget estimate is always recomputed
	// from the history itself.
	TokensUsed int `json:"tokensUsed"`
}

// Conclusive reports whether the verdict actually settles the
// submission. An analyzing status or an unknown status is inconclusive
// and must not be recorded as an attempt.
func (v *Verdict) Conclusive() bool {
	return v.Status == StatusApproved || v.Status == StatusNeedsRevision
}
