// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// APIBaseURL is the marketplace backend base URL (e.g. https://api.example.com/api/v1). Required.
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// PollInterval is the KYC status poll interval (e.g. "30s").
	PollInterval string `mapstructure:"POLL_INTERVAL"`
	// AutosaveDebounce is the draft autosave quiet period (e.g. "800ms").
	AutosaveDebounce string `mapstructure:"AUTOSAVE_DEBOUNCE"`
	// DraftDBPath is the SQLite file for device-local storage (draft persistence).
	DraftDBPath string `mapstructure:"DRAFT_DB_PATH"`
	// HTTPTimeout is the per-request timeout for backend calls (e.g. "15s").
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`
	// OTLPEndpoint is the optional OTLP gRPC endpoint for traces (e.g. localhost:4317). Empty disables tracing.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// InitialURL is an optional launch URL to run through the deep-link resolver.
	InitialURL string `mapstructure:"INITIAL_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "")
	v.SetDefault("POLL_INTERVAL", "30s")
	v.SetDefault("AUTOSAVE_DEBOUNCE", "800ms")
	v.SetDefault("DRAFT_DB_PATH", "appcore.db")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("INITIAL_URL", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("config: API_BASE_URL must be set")
	}

	return &cfg, nil
}

// PollEvery parses PollInterval as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) PollEvery() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RequestTimeout parses HTTPTimeout as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Debounce parses AutosaveDebounce as a time.Duration. Returns 800ms if unset or invalid.
func (c *Config) Debounce() time.Duration {
	d, err := time.ParseDuration(c.AutosaveDebounce)
	if err != nil || d <= 0 {
		return 800 * time.Millisecond
	}
	return d
}
