// Package compress decides how much conversation history goes out with
// the next model request. The canonical history is never mutated; the
// engine returns a reduced copy chosen by a tiered policy keyed on the
// current token estimate.
package compress

import (
	"fmt"

	"github.com/feynlab/feynlab/pkg/types"
)

// Level is the compression tier in effect for a given token estimate.
type Level int

const (
	// LevelNormal passes the full history through unchanged.
	LevelNormal Level = iota
	// LevelSoft keeps the framing and recent turns verbatim and folds
	// the middle into a single synthetic summary turn.
	LevelSoft
	// LevelHard discards the history and sends a state snapshot plus
	// only the most recent raw turns.
	LevelHard
	// LevelEmergency sends nothing but the snapshot and advises the
	// caller to checkpoint immediately.
	LevelEmergency
)

// String returns the tier name for logs.
func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelSoft:
		return "soft"
	case LevelHard:
		return "hard"
	case LevelEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

const (
	// softKeepHead and softKeepTail bound the verbatim turns at soft
	// tier; everything strictly between them is summarized.
	softKeepHead = 2
	softKeepTail = 6

	// hardKeepTail is the raw turns kept after the snapshot at hard tier.
	hardKeepTail = 3
)

// Thresholds are the ascending token boundaries between tiers.
type Thresholds struct {
	Soft      int
	Hard      int
	Emergency int
}

// DefaultThresholds suit a model with a moderate context window using
// the default chars-per-token ratio.
var DefaultThresholds = Thresholds{
	Soft:      6000,
	Hard:      12000,
	Emergency: 20000,
}

// Valid reports whether the thresholds are strictly ascending and positive.
func (t Thresholds) Valid() bool {
	return t.Soft > 0 && t.Soft < t.Hard && t.Hard < t.Emergency
}

// Advice is the read-only result of a tier query. It lets a caller (the
// UI, for instance) know what the next Compress call would do without
// forcing one.
type Advice struct {
	Level          Level `json:"level"`
	ShouldCompress bool  `json:"shouldCompress"`
	MustCheckpoint bool  `json:"mustCheckpoint"`
}

// Engine applies the tiered compression policy. Stateless between
// calls: every decision is a fresh function of (history, tokens), so
// repeated calls never accumulate compression artifacts.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates an engine with the given thresholds, falling back
// to the defaults if they are not strictly ascending.
func NewEngine(t Thresholds) *Engine {
	if !t.Valid() {
		t = DefaultThresholds
	}
	return &Engine{thresholds: t}
}

// AdviseLevel returns the tier for a token estimate without touching
// any history.
func (e *Engine) AdviseLevel(tokens int) Advice {
	level := e.levelFor(tokens)
	return Advice{
		Level:          level,
		ShouldCompress: level != LevelNormal,
		MustCheckpoint: level == LevelEmergency,
	}
}

func (e *Engine) levelFor(tokens int) Level {
	switch {
	case tokens >= e.thresholds.Emergency:
		return LevelEmergency
	case tokens >= e.thresholds.Hard:
		return LevelHard
	case tokens >= e.thresholds.Soft:
		return LevelSoft
	default:
		return LevelNormal
	}
}

// Compress returns the outbound message sequence for the given history
// and token estimate. The input slice is never modified. Idempotent:
// identical inputs always produce identical output.
func (e *Engine) Compress(history []types.Turn, tokens int) []types.Turn {
	switch e.levelFor(tokens) {
	case LevelSoft:
		return e.compressSoft(history)
	case LevelHard:
		return e.compressHard(history)
	case LevelEmergency:
		return e.compressEmergency(history)
	default:
		out := make([]types.Turn, len(history))
		copy(out, history)
		return out
	}
}

// compressSoft keeps the first softKeepHead and last softKeepTail turns
// verbatim and folds the rest into one synthetic summary turn. A history
// too short to have a middle passes through unchanged.
func (e *Engine) compressSoft(history []types.Turn) []types.Turn {
	if len(history) <= softKeepHead+softKeepTail {
		out := make([]types.Turn, len(history))
		copy(out, history)
		return out
	}

	middle := history[softKeepHead : len(history)-softKeepTail]
	out := make([]types.Turn, 0, softKeepHead+1+softKeepTail)
	out = append(out, history[:softKeepHead]...)
	out = append(out, types.Turn{Role: "system", Text: summarizeTurns(middle)})
	out = append(out, history[len(history)-softKeepTail:]...)
	return out
}

// compressHard replaces the history with a snapshot turn followed by
// the most recent hardKeepTail raw turns.
func (e *Engine) compressHard(history []types.Turn) []types.Turn {
	snap := ExtractSnapshot(history)
	tail := history
	if len(tail) > hardKeepTail {
		tail = tail[len(tail)-hardKeepTail:]
	}
	out := make([]types.Turn, 0, 1+len(tail))
	out = append(out, types.Turn{Role: "system", Text: snap.Render()})
	out = append(out, tail...)
	return out
}

// compressEmergency sends the snapshot alone. The paired AdviseLevel
// result carries MustCheckpoint so the caller knows to persist a
// recovery point; the engine itself performs no side effects.
func (e *Engine) compressEmergency(history []types.Turn) []types.Turn {
	snap := ExtractSnapshot(history)
	return []types.Turn{{Role: "system", Text: snap.Render()}}
}
