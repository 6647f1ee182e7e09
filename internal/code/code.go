// Package code implements the portable session code: a compact textual
// encoding of just enough session state to resume learning on another
// device. Codes look like FEYN-CMP17-<payload> and travel over any
// plain-text channel.
package code

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/feynlab/feynlab/pkg/types"
)

// Tag is the fixed human-legible discriminator at the front of every code.
const Tag = "FEYN"

// ErrBadCode is returned for any malformed, truncated, or tampered
// code. Decoding never produces a partially-populated state.
var ErrBadCode = errors.New("invalid session code")

// essentialField is the per-field projection carried in a code.
// Attempts are dropped: resuming needs current value, status, and lock
// state, not revision history.
type essentialField struct {
	Value    string `cbor:"v"`
	Status   string `cbor:"s"`
	Unlocked bool   `cbor:"u"`
}

// essentialState is the projection serialized into a code. Conversation
// history is dropped entirely; a resumed session rebuilds context from
// the learning-state snapshot shape, which this subset reconstructs.
type essentialState struct {
	Version     string                    `cbor:"ver"`
	Concept     string                    `cbor:"c"`
	ModuleIndex int                       `cbor:"m"`
	Fields      map[string]essentialField `cbor:"f"`
	Tokens      int                       `cbor:"t"`
	StartTime   int64                     `cbor:"st"`
}

var validStatuses = map[string]bool{
	string(types.StatusLocked):        true,
	string(types.StatusPending):       true,
	string(types.StatusAnalyzing):     true,
	string(types.StatusNeedsRevision): true,
	string(types.StatusApproved):      true,
}

// Encode projects state to its essential subset and produces a portable
// code. The payload is deterministic for a given state; only the short
// human-readable label varies.
func Encode(state *types.SessionState) (string, error) {
	if state == nil {
		return "", fmt.Errorf("encode: nil state")
	}

	ess := essentialState{
		Version:     state.Version,
		Concept:     state.Concept,
		ModuleIndex: state.CurrentModuleIndex,
		Fields:      make(map[string]essentialField, len(types.FieldOrder)),
		Tokens:      state.TokenEstimate,
		StartTime:   state.StartTime,
	}
	for _, id := range types.FieldOrder {
		rec := state.Fields[id]
		if rec == nil {
			return "", fmt.Errorf("encode: state missing field %s", id)
		}
		ess.Fields[string(id)] = essentialField{
			Value:    rec.Value,
			Status:   string(rec.Status),
			Unlocked: rec.Unlocked,
		}
	}

	raw, err := cbor.Marshal(ess)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	// Raw standard alphabet: the URL-safe one contains '-', which
	// would collide with the code's hyphen framing.
	payload := base64.RawStdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf("%s-%s%02d-%s", Tag, abbreviate(state.Concept), rand.Intn(100), payload), nil
}

// Decode inverts Encode. The middle human-readable segment carries no
// decoding semantics, so the payload is always the final hyphen-split
// segment; everything before it only has to start with the right tag.
func Decode(codeStr string) (*types.SessionState, error) {
	trimmed := strings.TrimSpace(codeStr)
	if !strings.HasPrefix(trimmed, Tag+"-") {
		return nil, fmt.Errorf("%w: missing %s tag", ErrBadCode, Tag)
	}

	segments := strings.Split(trimmed, "-")
	payload := segments[len(segments)-1]
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrBadCode)
	}

	compressed, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCode, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCode, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCode, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCode, err)
	}

	var ess essentialState
	if err := cbor.Unmarshal(raw, &ess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCode, err)
	}

	return inflate(ess)
}

// inflate rebuilds a full SessionState from the essential subset,
// filling everything dropped at encode time with empty defaults.
func inflate(ess essentialState) (*types.SessionState, error) {
	if len(ess.Fields) != len(types.FieldOrder) {
		return nil, fmt.Errorf("%w: expected %d fields, found %d", ErrBadCode, len(types.FieldOrder), len(ess.Fields))
	}

	state := types.NewSessionState()
	state.Version = ess.Version
	state.Concept = ess.Concept
	state.CurrentModuleIndex = ess.ModuleIndex
	state.TokenEstimate = ess.Tokens
	state.StartTime = ess.StartTime

	for _, id := range types.FieldOrder {
		f, ok := ess.Fields[string(id)]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %s", ErrBadCode, id)
		}
		if !validStatuses[f.Status] {
			return nil, fmt.Errorf("%w: unknown status %q for %s", ErrBadCode, f.Status, id)
		}
		state.Fields[id] = &types.FieldRecord{
			Value:    f.Value,
			Status:   types.FieldStatus(f.Status),
			Unlocked: f.Unlocked,
		}
	}

	// Attempts, history, and emotional counters were dropped at encode
	// time; NewSessionState already zeroed them and stamped a fresh
	// LastUpdateTime.
	return state, nil
}

// abbreviate derives the short label from the concept's consonants, up
// to three uppercase letters. Purely for human recognizability when
// juggling multiple codes.
func abbreviate(concept string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(concept) {
		if r >= 'A' && r <= 'Z' && !strings.ContainsRune("AEIOU", r) {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "SSN"
	}
	return b.String()
}
