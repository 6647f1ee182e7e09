// Package config loads application configuration from layered sources.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/feynlab/feynlab/internal/budget"
	"github.com/feynlab/feynlab/internal/compress"
	"github.com/feynlab/feynlab/internal/persist"
	"github.com/feynlab/feynlab/pkg/types"
)

// Load merges configuration in priority order:
//  1. built-in defaults
//  2. global config (~/.config/feynlab/feynlab.jsonc or .json)
//  3. project config (./feynlab.jsonc or .json)
//  4. FEYNLAB_* environment variables
func Load(directory string) (*types.Config, error) {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		globalDir := filepath.Join(home, ".config", "feynlab")
		loadFile(filepath.Join(globalDir, "feynlab.json"), cfg)
		loadFile(filepath.Join(globalDir, "feynlab.jsonc"), cfg)
	}
	if directory != "" {
		loadFile(filepath.Join(directory, "feynlab.json"), cfg)
		loadFile(filepath.Join(directory, "feynlab.jsonc"), cfg)
	}

	applyEnvOverrides(cfg)
	normalize(cfg)
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() *types.Config {
	dataDir := ".feynlab"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "feynlab")
	}
	return &types.Config{
		DataDir: dataDir,
		Model:   "openai/gpt-4o-mini",
		Budget: types.BudgetConfig{
			CharsPerToken:      budget.DefaultCharsPerToken,
			SoftThreshold:      compress.DefaultThresholds.Soft,
			HardThreshold:      compress.DefaultThresholds.Hard,
			EmergencyThreshold: compress.DefaultThresholds.Emergency,
		},
		HistoryCap: persist.DefaultHistoryCap,
		LogLevel:   "INFO",
	}
}

// loadFile merges one config file into cfg. Missing or unreadable files
// are skipped silently; config files are all optional.
func loadFile(path string, cfg *types.Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	data = jsonc.ToJSON(data)
	data = interpolateEnv(data)

	var file types.Config
	if err := json.Unmarshal(data, &file); err != nil {
		return
	}
	merge(cfg, &file)
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolateEnv expands {env:VAR} placeholders so API keys can live
// in the environment rather than the file.
func interpolateEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func merge(dst, src *types.Config) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.Budget.CharsPerToken > 0 {
		dst.Budget.CharsPerToken = src.Budget.CharsPerToken
	}
	if src.Budget.SoftThreshold > 0 {
		dst.Budget.SoftThreshold = src.Budget.SoftThreshold
	}
	if src.Budget.HardThreshold > 0 {
		dst.Budget.HardThreshold = src.Budget.HardThreshold
	}
	if src.Budget.EmergencyThreshold > 0 {
		dst.Budget.EmergencyThreshold = src.Budget.EmergencyThreshold
	}
	if src.HistoryCap > 0 {
		dst.HistoryCap = src.HistoryCap
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

func applyEnvOverrides(cfg *types.Config) {
	if v := os.Getenv("FEYNLAB_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("FEYNLAB_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("FEYNLAB_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.APIKey == "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("FEYNLAB_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("FEYNLAB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v, err := strconv.Atoi(os.Getenv("FEYNLAB_HISTORY_CAP")); err == nil && v > 0 {
		cfg.HistoryCap = v
	}
}

// normalize repairs threshold orderings a config file may have broken;
// the compression engine requires strictly ascending values.
func normalize(cfg *types.Config) {
	b := &cfg.Budget
	if b.CharsPerToken <= 0 {
		b.CharsPerToken = budget.DefaultCharsPerToken
	}
	if !(compress.Thresholds{Soft: b.SoftThreshold, Hard: b.HardThreshold, Emergency: b.EmergencyThreshold}).Valid() {
		b.SoftThreshold = compress.DefaultThresholds.Soft
		b.HardThreshold = compress.DefaultThresholds.Hard
		b.EmergencyThreshold = compress.DefaultThresholds.Emergency
	}
}
