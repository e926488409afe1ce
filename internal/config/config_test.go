package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("API_BASE_URL", "https://api.example.com/api/v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.com/api/v1" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.PollInterval != "30s" {
		t.Errorf("PollInterval = %q, want 30s", cfg.PollInterval)
	}
	if cfg.AutosaveDebounce != "800ms" {
		t.Errorf("AutosaveDebounce = %q, want 800ms", cfg.AutosaveDebounce)
	}
	if cfg.DraftDBPath != "appcore.db" {
		t.Errorf("DraftDBPath = %q, want appcore.db", cfg.DraftDBPath)
	}
	if cfg.OTLPEndpoint != "" {
		t.Errorf("OTLPEndpoint = %q, want empty", cfg.OTLPEndpoint)
	}
}

func TestLoad_RequiresBaseURL(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Error("Load without API_BASE_URL should fail")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("API_BASE_URL", "http://localhost:8000/api/v1")
	os.Setenv("POLL_INTERVAL", "5s")
	os.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollEvery() != 5*time.Second {
		t.Errorf("PollEvery = %v, want 5s", cfg.PollEvery())
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
}

func TestPollEvery_InvalidFallsBack(t *testing.T) {
	cfg := &Config{PollInterval: "nonsense"}
	if cfg.PollEvery() != 30*time.Second {
		t.Errorf("PollEvery = %v, want 30s fallback", cfg.PollEvery())
	}
}

func TestDebounce_InvalidFallsBack(t *testing.T) {
	cfg := &Config{AutosaveDebounce: "-5ms"}
	if cfg.Debounce() != 800*time.Millisecond {
		t.Errorf("Debounce = %v, want 800ms fallback", cfg.Debounce())
	}
}
