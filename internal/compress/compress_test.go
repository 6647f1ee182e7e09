package compress

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynlab/feynlab/pkg/types"
)

func makeHistory(n int) []types.Turn {
	turns := make([]types.Turn, 0, n)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		turns = append(turns, types.Turn{Role: role, Text: fmt.Sprintf("turn %d", i)})
	}
	return turns
}

func TestAdviseLevel_Tiers(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})

	cases := []struct {
		tokens int
		level  Level
	}{
		{0, LevelNormal},
		{99, LevelNormal},
		{100, LevelSoft},
		{199, LevelSoft},
		{200, LevelHard},
		{299, LevelHard},
		{300, LevelEmergency},
		{100000, LevelEmergency},
	}
	for _, tc := range cases {
		adv := e.AdviseLevel(tc.tokens)
		assert.Equal(t, tc.level, adv.Level, "tokens=%d", tc.tokens)
		assert.Equal(t, tc.level != LevelNormal, adv.ShouldCompress, "tokens=%d", tc.tokens)
		assert.Equal(t, tc.level == LevelEmergency, adv.MustCheckpoint, "tokens=%d", tc.tokens)
	}
}

func TestAdviseLevel_Monotonic(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})

	prev := LevelNormal
	for tokens := 0; tokens <= 400; tokens++ {
		level := e.AdviseLevel(tokens).Level
		assert.GreaterOrEqual(t, level, prev, "tier regressed at tokens=%d", tokens)
		prev = level
	}
}

func TestNewEngine_InvalidThresholdsFallBack(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 500, Hard: 100, Emergency: 50})
	assert.Equal(t, LevelNormal, e.AdviseLevel(DefaultThresholds.Soft-1).Level)
	assert.Equal(t, LevelSoft, e.AdviseLevel(DefaultThresholds.Soft).Level)
}

func TestCompress_NormalPassthrough(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})
	history := makeHistory(20)

	out := e.Compress(history, 99)

	assert.Equal(t, history, out)
	// Output is a copy, not an alias of the canonical history.
	out[0].Text = "mutated"
	assert.Equal(t, "turn 0", history[0].Text)
}

func TestCompress_SoftBoundaryScenario(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})
	history := makeHistory(20)

	// One below the threshold: unchanged.
	assert.Equal(t, history, e.Compress(history, 99))

	// At the threshold: first 2 + 1 synthetic + last 6 = 9 turns.
	out := e.Compress(history, 100)
	require.Len(t, out, 9)
	assert.Equal(t, history[0], out[0])
	assert.Equal(t, history[1], out[1])
	assert.Equal(t, "system", out[2].Role)
	assert.Contains(t, out[2].Text, "12 earlier turns summarized")
	assert.Equal(t, history[14:], out[3:])
}

func TestCompress_SoftShortHistoryPassthrough(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})
	history := makeHistory(8) // no middle to fold

	assert.Equal(t, history, e.Compress(history, 150))
}

func TestCompress_Hard(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})
	history := makeHistory(20)

	out := e.Compress(history, 200)

	require.Len(t, out, 4)
	assert.Equal(t, "system", out[0].Role)
	assert.Contains(t, out[0].Text, "Learning state")
	assert.Equal(t, history[17:], out[1:])
}

func TestCompress_EmergencySingleTurn(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})
	history := makeHistory(20)

	out := e.Compress(history, 300)

	require.Len(t, out, 1)
	assert.Equal(t, "system", out[0].Role)
	assert.True(t, e.AdviseLevel(300).MustCheckpoint)
}

func TestCompress_Idempotent(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})
	history := makeHistory(30)

	for _, tokens := range []int{50, 150, 250, 350} {
		first := e.Compress(history, tokens)
		second := e.Compress(history, tokens)
		assert.Equal(t, first, second, "tokens=%d", tokens)
	}
}

func TestCompress_DoesNotMutateHistory(t *testing.T) {
	e := NewEngine(Thresholds{Soft: 100, Hard: 200, Emergency: 300})
	history := makeHistory(20)
	snapshot := make([]types.Turn, len(history))
	copy(snapshot, history)

	e.Compress(history, 150)
	e.Compress(history, 250)
	e.Compress(history, 350)

	assert.Equal(t, snapshot, history)
}
