package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJargonHints_CleanTextNoHints(t *testing.T) {
	assert.Empty(t, JargonHints("Light bends when it enters water. That is why a straw looks broken."))
}

func TestJargonHints_FlagsFillerTerms(t *testing.T) {
	hints := JargonHints("Basically it essentially leverages a paradigm.")
	assert.GreaterOrEqual(t, len(hints), 3)
}

func TestJargonHints_FlagsLongSentence(t *testing.T) {
	sentence := strings.Repeat("word ", 35) + "."
	hints := JargonHints(sentence)
	assert.NotEmpty(t, hints)
	assert.Contains(t, hints[0], "35-word sentence")
}

func TestJargonHints_FlagsLongWordDensity(t *testing.T) {
	hints := JargonHints("Thermodynamic равновесие characterizes equilibrium throughout interconnected subsystems.")
	assert.NotEmpty(t, hints)
}

func TestJargonHints_EmptyInput(t *testing.T) {
	assert.Empty(t, JargonHints(""))
}

func TestNoteFrustration(t *testing.T) {
	s := newTestService(t, &scriptedValidator{})

	s.mu.Lock()
	assert.Empty(t, s.noteFrustrationLocked("definition", 1))
	assert.Empty(t, s.noteFrustrationLocked("definition", 2))
	first := s.noteFrustrationLocked("definition", 3)
	second := s.noteFrustrationLocked("definition", 4)
	s.mu.Unlock()

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)

	state := s.State()
	assert.Equal(t, 2, state.Emotional.EncouragementsSent)
	assert.Len(t, state.Emotional.FrustrationSignals, 2)
}
