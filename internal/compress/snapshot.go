package compress

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/feynlab/feynlab/pkg/types"
)

// Snapshot is the compact learning-state summary rebuilt from history
// text after aggressive compression. Every field is best-effort: a
// marker missing from the history leaves its field empty, never errors.
type Snapshot struct {
	Concept         string   `json:"concept,omitempty"`
	CurrentField    string   `json:"currentField,omitempty"`
	CompletedFields []string `json:"completedFields,omitempty"`
	ApprovedCount   int      `json:"approvedCount"`
	TotalFields     int      `json:"totalFields"`
	LastAttempt     string   `json:"lastAttempt,omitempty"`
	Misconceptions  []string `json:"misconceptions,omitempty"`
}

// Markers written into history turns by the session service. Snapshot
// extraction mines rendered text rather than structured metadata; the
// regexes here are the single place that convention lives.
var (
	conceptRe       = regexp.MustCompile(`(?m)^Concept:\s*(.+)$`)
	fieldRe         = regexp.MustCompile(`(?m)^Field:\s*([a-z_]+)\s*$`)
	approvedRe      = regexp.MustCompile(`(?m)^APPROVED:\s*([a-z_]+)`)
	misconceptionRe = regexp.MustCompile(`(?m)^Misconception caught:\s*(.+)$`)
)

// ExtractSnapshot scans turns for the known markers and assembles a
// Snapshot. Tolerant by construction: a missing marker leaves the
// corresponding field zero-valued.
func ExtractSnapshot(turns []types.Turn) Snapshot {
	snap := Snapshot{TotalFields: len(types.FieldOrder)}

	approved := make(map[string]bool)
	for _, turn := range turns {
		if m := conceptRe.FindStringSubmatch(turn.Text); m != nil {
			snap.Concept = strings.TrimSpace(m[1])
		}
		for _, m := range approvedRe.FindAllStringSubmatch(turn.Text, -1) {
			if !approved[m[1]] {
				approved[m[1]] = true
				snap.CompletedFields = append(snap.CompletedFields, m[1])
			}
		}
		for _, m := range misconceptionRe.FindAllStringSubmatch(turn.Text, -1) {
			snap.Misconceptions = append(snap.Misconceptions, strings.TrimSpace(m[1]))
		}
		if turn.Role == "user" {
			if m := fieldRe.FindStringSubmatch(turn.Text); m != nil {
				snap.CurrentField = m[1]
				if idx := fieldRe.FindStringIndex(turn.Text); idx != nil {
					attempt := strings.TrimSpace(turn.Text[idx[1]:])
					if attempt != "" {
						snap.LastAttempt = attempt
					}
				}
			}
		}
	}
	snap.ApprovedCount = len(snap.CompletedFields)

	return snap
}

// Render formats the snapshot as a single synthetic turn body. The
// output re-uses the marker conventions so that a snapshot surviving in
// history remains minable by a later extraction pass.
func (s Snapshot) Render() string {
	var b strings.Builder
	b.WriteString("Learning state restored from compressed context.\n")
	if s.Concept != "" {
		fmt.Fprintf(&b, "Concept: %s\n", s.Concept)
	}
	if s.CurrentField != "" {
		fmt.Fprintf(&b, "Current field: %s\n", s.CurrentField)
	}
	fmt.Fprintf(&b, "Progress: %d/%d fields approved", s.ApprovedCount, s.TotalFields)
	if len(s.CompletedFields) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(s.CompletedFields, ", "))
	}
	b.WriteString("\n")
	for _, m := range s.Misconceptions {
		fmt.Fprintf(&b, "Misconception caught: %s\n", m)
	}
	if s.LastAttempt != "" {
		attempt := s.LastAttempt
		if len(attempt) > 400 {
			attempt = attempt[:400] + "..."
		}
		fmt.Fprintf(&b, "Most recent attempt:\n%s\n", attempt)
	}
	return strings.TrimRight(b.String(), "\n")
}
