package types

// Config is the application configuration, merged from defaults, config
// files, and environment overrides (see internal/config).
type Config struct {
	// DataDir is the directory for persisted session state.
	DataDir string `json:"dataDir,omitempty"`

	// Model selects the validation model, "provider/model" form
	// (e.g. "openai/gpt-4o-mini").
	Model string `json:"model,omitempty"`

	// APIKey authenticates against the model provider. Usually supplied
	// via environment rather than a config file.
	APIKey string `json:"apiKey,omitempty"`

	// BaseURL overrides the provider endpoint, for proxies and
	// compatible gateways.
	BaseURL string `json:"baseURL,omitempty"`

	// Budget tunes token estimation and compression thresholds.
	Budget BudgetConfig `json:"budget"`

	// HistoryCap is the number of recent turns kept when persisting.
	HistoryCap int `json:"historyCap,omitempty"`

	// LogLevel is DEBUG|INFO|WARN|ERROR.
	LogLevel string `json:"logLevel,omitempty"`
}

// BudgetConfig holds the numeric contract shared by the budget estimator
// and the compression engine. The thresholds must be strictly ascending.
type BudgetConfig struct {
	CharsPerToken      int `json:"charsPerToken,omitempty"`
	SoftThreshold      int `json:"softThreshold,omitempty"`
	HardThreshold      int `json:"hardThreshold,omitempty"`
	EmergencyThreshold int `json:"emergencyThreshold,omitempty"`
}
