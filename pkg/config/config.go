// Package config provides configuration loading and validation for the
// assistant. Configuration is loaded once at startup and passed by value;
// there is no mutable global state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// LLM provider identifiers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
)

// Default model names per provider.
const (
	ModelClaudeSonnetLatest = "claude-sonnet-4-5"
	ModelGPT4o              = "gpt-4o"
	ModelGeminiFlash        = "gemini-2.0-flash"
	ModelOllamaDefault      = "llama3.2"
)

// SchemaVersion tracks the config file format. Increment on breaking changes.
const SchemaVersion = 1

const configFileName = "assistant.config.json"

// Config holds all runtime settings.
//
//nolint:govet // field order follows the config file layout
type Config struct {
	SchemaVersion int `json:"schema_version"`

	// LLM collaborator.
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	OllamaHost string `json:"ollama_host,omitempty"`

	// Storage.
	DatabasePath string `json:"database_path"`

	// Orchestration.
	StepTimeoutSecs int `json:"step_timeout_secs"`

	// Routine library.
	RoutinesPath string `json:"routines_path,omitempty"`

	// Observability.
	PrometheusURL string `json:"prometheus_url,omitempty"`

	// Calendar scheduling window (24h clock, local to the user's timezone).
	WorkdayStartHour int `json:"workday_start_hour"`
	WorkdayEndHour   int `json:"workday_end_hour"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		SchemaVersion:    SchemaVersion,
		Provider:         ProviderMock,
		Model:            "",
		DatabasePath:     "assistant.db",
		StepTimeoutSecs:  30,
		WorkdayStartHour: 9,
		WorkdayEndHour:   17,
	}
}

// Load reads the config file from dir, falling back to defaults when the
// file does not exist, then applies environment overrides and validates.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if cfg.SchemaVersion != SchemaVersion {
			return Config{}, fmt.Errorf("unsupported config schema version %d (expected %d)",
				cfg.SchemaVersion, SchemaVersion)
		}
	case os.IsNotExist(err):
		// No config file: defaults apply.
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if cfg.Model == "" {
		cfg.Model = defaultModelFor(cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config file to dir.
func Save(dir string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Environment override variables.
const (
	EnvProvider    = "ASSISTANT_PROVIDER"
	EnvModel       = "ASSISTANT_MODEL"
	EnvDatabase    = "ASSISTANT_DB"
	EnvStepTimeout = "ASSISTANT_STEP_TIMEOUT_SECS"
	EnvOllamaHost  = "OLLAMA_HOST"
	EnvPrometheus  = "ASSISTANT_PROMETHEUS_URL"
)

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvProvider); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv(EnvStepTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.StepTimeoutSecs = secs
		}
	}
	if v := os.Getenv(EnvOllamaHost); v != "" {
		cfg.OllamaHost = v
	}
	if v := os.Getenv(EnvPrometheus); v != "" {
		cfg.PrometheusURL = v
	}
}

func defaultModelFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return ModelClaudeSonnetLatest
	case ProviderOpenAI:
		return ModelGPT4o
	case ProviderGoogle:
		return ModelGeminiFlash
	case ProviderOllama:
		return ModelOllamaDefault
	default:
		return ""
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama, ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.StepTimeoutSecs <= 0 {
		return fmt.Errorf("step_timeout_secs must be positive, got %d", c.StepTimeoutSecs)
	}
	if c.WorkdayStartHour < 0 || c.WorkdayEndHour > 24 || c.WorkdayStartHour >= c.WorkdayEndHour {
		return fmt.Errorf("invalid workday window %d-%d", c.WorkdayStartHour, c.WorkdayEndHour)
	}
	return nil
}
