package session

import (
	"fmt"

	"github.com/feynlab/feynlab/pkg/types"
)

// Frustration tracking is advisory: repeated revision verdicts on one
// field feed a counter and occasionally an encouraging message. Nothing
// else in the session couples to it.

// frustrationThreshold is the attempt count on a single field at which
// encouragement starts.
const frustrationThreshold = 3

var encouragements = []string{
	"Revising is the technique working, not failing. Every rewrite sharpens the idea.",
	"You're circling in on it. Try explaining this part out loud to an imaginary student.",
	"This field is the hard one for most people. Smaller words, shorter sentences.",
}

// noteFrustrationLocked records a revision-streak signal and returns an
// encouragement when the streak is long enough. Caller holds s.mu.
func (s *Service) noteFrustrationLocked(id types.FieldID, attempts int) string {
	if attempts < frustrationThreshold {
		return ""
	}
	s.state.Emotional.FrustrationSignals = append(
		s.state.Emotional.FrustrationSignals,
		fmt.Sprintf("%s:%d attempts", id, attempts),
	)
	msg := encouragements[s.state.Emotional.EncouragementsSent%len(encouragements)]
	s.state.Emotional.EncouragementsSent++
	return msg
}
