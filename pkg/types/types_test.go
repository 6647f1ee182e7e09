package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionState(t *testing.T) {
	s := NewSessionState()

	require.Len(t, s.Fields, len(FieldOrder))
	for _, id := range FieldOrder {
		rec := s.Fields[id]
		require.NotNil(t, rec, "missing field %s", id)
		if id == FieldDefinition {
			assert.True(t, rec.Unlocked)
			assert.Equal(t, StatusPending, rec.Status)
		} else {
			assert.False(t, rec.Unlocked)
			assert.Equal(t, StatusLocked, rec.Status)
		}
	}
	assert.Equal(t, Version, s.Version)
	assert.Empty(t, s.ConversationHistory)
	assert.False(t, s.IsComplete())
}

func TestApproveField_UnlocksSuccessorOnly(t *testing.T) {
	s := NewSessionState()

	s.ApproveField(FieldDefinition)

	assert.Equal(t, StatusApproved, s.Fields[FieldDefinition].Status)
	assert.True(t, s.Fields[FieldMechanism].Unlocked)
	assert.Equal(t, StatusPending, s.Fields[FieldMechanism].Status)

	// Nothing past the immediate successor unlocks.
	for _, id := range FieldOrder[2:] {
		assert.False(t, s.Fields[id].Unlocked, "field %s unlocked early", id)
	}
}

func TestApproveField_FullOrder(t *testing.T) {
	s := NewSessionState()

	for i, id := range FieldOrder {
		rec := s.Fields[id]
		require.True(t, rec.Unlocked, "field %s should be unlocked at step %d", id, i)
		s.ApproveField(id)
	}

	assert.True(t, s.IsComplete())
	assert.Equal(t, FieldID(""), s.CurrentField())
	assert.Len(t, s.ApprovedFields(), 7)
}

func TestIsComplete_AnalyzingIsNotComplete(t *testing.T) {
	s := NewSessionState()
	for _, id := range FieldOrder {
		s.ApproveField(id)
	}
	s.Fields[FieldIntegration].Status = StatusAnalyzing

	assert.False(t, s.IsComplete())
}

func TestCurrentField(t *testing.T) {
	s := NewSessionState()
	assert.Equal(t, FieldDefinition, s.CurrentField())

	s.ApproveField(FieldDefinition)
	assert.Equal(t, FieldMechanism, s.CurrentField())
}

func TestSuccessor(t *testing.T) {
	assert.Equal(t, FieldMechanism, Successor(FieldDefinition))
	assert.Equal(t, FieldID(""), Successor(FieldIntegration))
	assert.Equal(t, FieldID(""), Successor(FieldID("bogus")))
}

func TestAppendTurn(t *testing.T) {
	s := NewSessionState()
	before := s.LastUpdateTime

	s.AppendTurn("user", "my definition attempt")

	require.Len(t, s.ConversationHistory, 1)
	assert.Equal(t, "user", s.ConversationHistory[0].Role)
	assert.GreaterOrEqual(t, s.LastUpdateTime, before)
}
