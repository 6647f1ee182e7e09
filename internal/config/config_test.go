package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynlab/feynlab/internal/compress"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Model)
	assert.Equal(t, compress.DefaultThresholds.Soft, cfg.Budget.SoftThreshold)
	assert.Equal(t, 10, cfg.HistoryCap)
}

func TestLoad_ProjectFileWithComments(t *testing.T) {
	t.Setenv("HOME", t.TempDir()) // keep real user config out of the test
	dir := t.TempDir()
	content := `{
		// project overrides
		"model": "openai/gpt-4o",
		"budget": { "softThreshold": 1000, "hardThreshold": 2000, "emergencyThreshold": 3000 }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feynlab.jsonc"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", cfg.Model)
	assert.Equal(t, 1000, cfg.Budget.SoftThreshold)
	assert.Equal(t, 3000, cfg.Budget.EmergencyThreshold)
	// Untouched values keep their defaults.
	assert.Equal(t, 10, cfg.HistoryCap)
}

func TestLoad_EnvInterpolation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TEST_FEYNLAB_KEY", "sk-from-env")
	dir := t.TempDir()
	content := `{"apiKey": "{env:TEST_FEYNLAB_KEY}"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feynlab.json"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.APIKey)
}

func TestLoad_EnvOverridesBeatFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	content := `{"model": "openai/from-file"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feynlab.json"), []byte(content), 0o644))
	t.Setenv("FEYNLAB_MODEL", "openai/from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai/from-env", cfg.Model)
}

func TestLoad_BrokenThresholdsRepaired(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	content := `{"budget": {"softThreshold": 5000, "hardThreshold": 100, "emergencyThreshold": 10}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feynlab.json"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, compress.DefaultThresholds.Soft, cfg.Budget.SoftThreshold)
	assert.Equal(t, compress.DefaultThresholds.Hard, cfg.Budget.HardThreshold)
}

func TestLoad_MalformedFileSkipped(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feynlab.json"), []byte("{nope"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Model)
}
