// Package persist is the durable save/restore gateway for session
// state. It writes a compacted projection (full fields and attempts,
// history capped to the most recent turns) and recovers from every
// storage failure with a defined fallback rather than an escalation.
package persist

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/feynlab/feynlab/internal/storage"
	"github.com/feynlab/feynlab/pkg/types"
)

// DefaultHistoryCap is the number of recent turns kept when saving.
const DefaultHistoryCap = 10

var (
	saveKey       = []string{"session", "current"}
	checkpointKey = []string{"session", "checkpoint"}
)

// RestoreOutcome says what actually happened on restore, so a version
// fallback is observable rather than mistaken for data loss.
type RestoreOutcome int

const (
	// RestoreAbsent means nothing was stored; a fresh state is returned.
	RestoreAbsent RestoreOutcome = iota
	// RestoreOK means the stored state was returned as-is.
	RestoreOK
	// RestoreVersionReset means the stored version did not match the
	// running version and a fresh state replaced it.
	RestoreVersionReset
)

// checkpointRecord is the compacted projection plus the moment it was
// taken. The checkpoint slot is independent of the auto-save slot: it
// marks a deliberate rollback point, not the latest keystroke.
type checkpointRecord struct {
	State         *types.SessionState `json:"state"`
	Timestamp     int64               `json:"timestamp"`
	TokenEstimate int                 `json:"tokenEstimate"`
}

// Gateway saves and restores session state through the KV store.
type Gateway struct {
	store      *storage.Store
	historyCap int
	log        zerolog.Logger
}

// New creates a gateway. A historyCap of zero or less falls back to the
// default.
func New(store *storage.Store, historyCap int, log zerolog.Logger) *Gateway {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Gateway{store: store, historyCap: historyCap, log: log}
}

// Save writes the compacted projection. The returned error is advisory:
// callers warn and continue in memory, they do not abort the session.
func (g *Gateway) Save(ctx context.Context, state *types.SessionState) error {
	if err := g.store.Put(ctx, saveKey, g.compact(state)); err != nil {
		g.log.Warn().Err(err).Msg("session save failed, continuing in memory")
		return err
	}
	return nil
}

// Restore reads back the saved projection. It never fails: a missing
// record, unreadable record, or version mismatch all yield a fresh
// initial state with the outcome saying which happened.
func (g *Gateway) Restore(ctx context.Context) (*types.SessionState, RestoreOutcome) {
	var state types.SessionState
	err := g.store.Get(ctx, saveKey, &state)
	switch {
	case err == storage.ErrNotFound:
		return types.NewSessionState(), RestoreAbsent
	case err != nil:
		g.log.Warn().Err(err).Msg("stored session unreadable, starting fresh")
		return types.NewSessionState(), RestoreAbsent
	case state.Version != types.Version:
		g.log.Info().
			Str("stored", state.Version).
			Str("current", types.Version).
			Msg("stored session version mismatch, resetting")
		return types.NewSessionState(), RestoreVersionReset
	}
	state.Touch()
	return &state, RestoreOK
}

// Checkpoint writes the recovery slot. Called when the compression
// engine advises an emergency checkpoint, or on an explicit user action.
func (g *Gateway) Checkpoint(ctx context.Context, state *types.SessionState) error {
	rec := checkpointRecord{
		State:         g.compact(state),
		Timestamp:     state.LastUpdateTime,
		TokenEstimate: state.TokenEstimate,
	}
	if err := g.store.Put(ctx, checkpointKey, rec); err != nil {
		g.log.Warn().Err(err).Msg("checkpoint write failed")
		return err
	}
	g.log.Debug().Int("tokens", rec.TokenEstimate).Msg("checkpoint written")
	return nil
}

// RestoreCheckpoint reads the recovery slot. Unlike Restore it reports
// absence distinctly: rolling back to a checkpoint that does not exist
// is a caller decision, not something to paper over with a fresh state.
func (g *Gateway) RestoreCheckpoint(ctx context.Context) (*types.SessionState, bool) {
	var rec checkpointRecord
	err := g.store.Get(ctx, checkpointKey, &rec)
	if err != nil || rec.State == nil {
		if err != nil && err != storage.ErrNotFound {
			g.log.Warn().Err(err).Msg("checkpoint unreadable")
		}
		return nil, false
	}
	if rec.State.Version != types.Version {
		g.log.Info().Str("stored", rec.State.Version).Msg("checkpoint version mismatch, ignoring")
		return nil, false
	}
	rec.State.Touch()
	return rec.State, true
}

// compact returns a shallow projection of state with the conversation
// history capped to the most recent turns. Fields, attempts, and
// modules are kept in full; the cap is the only lossy step.
func (g *Gateway) compact(state *types.SessionState) *types.SessionState {
	out := *state
	if len(out.ConversationHistory) > g.historyCap {
		tail := out.ConversationHistory[len(out.ConversationHistory)-g.historyCap:]
		out.ConversationHistory = make([]types.Turn, len(tail))
		copy(out.ConversationHistory, tail)
	}
	return &out
}
