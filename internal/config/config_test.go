package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "LOG_FORMAT", "WS_BIND_ADDR", "WS_PATH",
		"AUTH_PROMPT_TIMEOUT_SECONDS", "CONN_RATE_PER_SEC", "CONN_BURST",
		"SHUTDOWN_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned an error on a bare environment: %v", err)
	}
	if cfg.WSBindAddr != ":8765" {
		t.Errorf("WSBindAddr = %q, want :8765", cfg.WSBindAddr)
	}
	if cfg.AuthPromptTimeout.Seconds() != 300 {
		t.Errorf("AuthPromptTimeout = %v, want 300s", cfg.AuthPromptTimeout)
	}
	if cfg.ConnRatePerSec != 50 {
		t.Errorf("ConnRatePerSec = %v, want 50", cfg.ConnRatePerSec)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WS_BIND_ADDR", ":9999")
	t.Setenv("CONN_RATE_PER_SEC", "12.5")
	t.Setenv("AUTH_PROMPT_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSBindAddr != ":9999" {
		t.Errorf("WSBindAddr = %q, want :9999", cfg.WSBindAddr)
	}
	if cfg.ConnRatePerSec != 12.5 {
		t.Errorf("ConnRatePerSec = %v, want 12.5", cfg.ConnRatePerSec)
	}
	if cfg.AuthPromptTimeout.Seconds() != 30 {
		t.Errorf("AuthPromptTimeout = %v, want 30s", cfg.AuthPromptTimeout)
	}
}
