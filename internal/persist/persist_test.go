package persist

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynlab/feynlab/internal/storage"
	"github.com/feynlab/feynlab/pkg/types"
)

func newGateway(t *testing.T) *Gateway {
	t.Helper()
	return New(storage.New(t.TempDir()), 0, zerolog.Nop())
}

func TestSaveAndRestore(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	s := types.NewSessionState()
	s.Concept = "recursion"
	s.Fields[types.FieldDefinition].Value = "a function calling itself"
	s.Fields[types.FieldDefinition].Attempts = []types.Attempt{{ID: "a1", Text: "try one"}}

	require.NoError(t, g.Save(ctx, s))

	got, outcome := g.Restore(ctx)
	assert.Equal(t, RestoreOK, outcome)
	assert.Equal(t, "recursion", got.Concept)
	// Attempts survive persistence, unlike the portable code.
	require.Len(t, got.Fields[types.FieldDefinition].Attempts, 1)
	assert.Equal(t, "try one", got.Fields[types.FieldDefinition].Attempts[0].Text)
}

func TestRestore_Absent(t *testing.T) {
	g := newGateway(t)

	got, outcome := g.Restore(context.Background())
	assert.Equal(t, RestoreAbsent, outcome)
	assert.True(t, got.Fields[types.FieldDefinition].Unlocked)
	assert.False(t, got.Fields[types.FieldMechanism].Unlocked)
}

func TestRestore_VersionMismatchFallsBackFresh(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	s := types.NewSessionState()
	s.Concept = "old concept"
	s.Version = "0.9.0"
	s.ApproveField(types.FieldDefinition)
	require.NoError(t, g.Save(ctx, s))

	got, outcome := g.Restore(ctx)
	assert.Equal(t, RestoreVersionReset, outcome)

	// Fresh initial state: no concept, default field layout.
	fresh := types.NewSessionState()
	assert.Empty(t, got.Concept)
	for _, id := range types.FieldOrder {
		assert.Equal(t, fresh.Fields[id].Status, got.Fields[id].Status, "field %s", id)
		assert.Equal(t, fresh.Fields[id].Unlocked, got.Fields[id].Unlocked, "field %s", id)
	}
}

func TestSave_CapsHistory(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	s := types.NewSessionState()
	for i := 0; i < 25; i++ {
		s.AppendTurn("user", fmt.Sprintf("turn %d", i))
	}
	require.NoError(t, g.Save(ctx, s))

	got, outcome := g.Restore(ctx)
	require.Equal(t, RestoreOK, outcome)
	require.Len(t, got.ConversationHistory, DefaultHistoryCap)
	assert.Equal(t, "turn 15", got.ConversationHistory[0].Text)
	assert.Equal(t, "turn 24", got.ConversationHistory[len(got.ConversationHistory)-1].Text)

	// The in-memory state keeps its full history.
	assert.Len(t, s.ConversationHistory, 25)
}

func TestCheckpoint_IndependentSlot(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	early := types.NewSessionState()
	early.Concept = "waves"
	early.TokenEstimate = 500
	require.NoError(t, g.Checkpoint(ctx, early))

	later := types.NewSessionState()
	later.Concept = "waves"
	later.ApproveField(types.FieldDefinition)
	later.TokenEstimate = 9000
	require.NoError(t, g.Save(ctx, later))

	// Auto-save slot reflects the later state.
	saved, outcome := g.Restore(ctx)
	require.Equal(t, RestoreOK, outcome)
	assert.Equal(t, types.StatusApproved, saved.Fields[types.FieldDefinition].Status)

	// Checkpoint slot still holds the earlier rollback point.
	cp, ok := g.RestoreCheckpoint(ctx)
	require.True(t, ok)
	assert.Equal(t, 500, cp.TokenEstimate)
	assert.Equal(t, types.StatusPending, cp.Fields[types.FieldDefinition].Status)
}

func TestRestoreCheckpoint_Absent(t *testing.T) {
	g := newGateway(t)

	cp, ok := g.RestoreCheckpoint(context.Background())
	assert.False(t, ok)
	assert.Nil(t, cp)
}

func TestRestoreCheckpoint_VersionMismatchIgnored(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	s := types.NewSessionState()
	s.Version = "0.1.0"
	require.NoError(t, g.Checkpoint(ctx, s))

	_, ok := g.RestoreCheckpoint(ctx)
	assert.False(t, ok)
}
