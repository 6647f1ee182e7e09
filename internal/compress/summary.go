package compress

import (
	"fmt"
	"strings"

	"github.com/feynlab/feynlab/pkg/types"
)

// summarizeTurns produces the soft-tier synthetic turn body for a run
// of dropped turns. Deliberately separate from ExtractSnapshot: this is
// a flat prose digest of what happened in the gap, not a structured
// state reconstruction, and the two drift independently.
func summarizeTurns(dropped []types.Turn) string {
	attempts := make(map[string]int)
	var attemptOrder []string
	var approvals []string
	seen := make(map[string]bool)

	for _, turn := range dropped {
		if turn.Role == "user" {
			if m := fieldRe.FindStringSubmatch(turn.Text); m != nil {
				if attempts[m[1]] == 0 {
					attemptOrder = append(attemptOrder, m[1])
				}
				attempts[m[1]]++
			}
		}
		for _, m := range approvedRe.FindAllStringSubmatch(turn.Text, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				approvals = append(approvals, m[1])
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%d earlier turns summarized]", len(dropped))
	if len(attemptOrder) > 0 {
		parts := make([]string, 0, len(attemptOrder))
		for _, f := range attemptOrder {
			parts = append(parts, fmt.Sprintf("%s (%d attempts)", f, attempts[f]))
		}
		fmt.Fprintf(&b, " Fields worked on: %s.", strings.Join(parts, ", "))
	}
	if len(approvals) > 0 {
		fmt.Fprintf(&b, " Approved in this span: %s.", strings.Join(approvals, ", "))
	}
	return b.String()
}
