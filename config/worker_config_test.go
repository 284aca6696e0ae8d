package config

import (
	"testing"
	"time"
)

func TestLoad_ScanDefaults(t *testing.T) {
	t.Setenv("SCAN_DATE_POLICY", "")
	t.Setenv("SCAN_MAX_RESULTS", "")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scan.MaxResults != 200 {
		t.Errorf("MaxResults = %d, want 200", cfg.Scan.MaxResults)
	}
	if cfg.Scan.MessageLimit != 150 {
		t.Errorf("MessageLimit = %d, want 150", cfg.Scan.MessageLimit)
	}
	if cfg.Scan.DatePolicy != DatePolicyStrict {
		t.Errorf("DatePolicy = %q, want strict", cfg.Scan.DatePolicy)
	}
	if cfg.Scan.MessageTimeout != 15*time.Second {
		t.Errorf("MessageTimeout = %v", cfg.Scan.MessageTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SCAN_DATE_POLICY", "lenient")
	t.Setenv("SCAN_MESSAGE_LIMIT", "40")
	t.Setenv("SCAN_INCLUDE_PENALTY_REASON", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scan.DatePolicy != DatePolicyLenient {
		t.Errorf("DatePolicy = %q", cfg.Scan.DatePolicy)
	}
	if cfg.Scan.MessageLimit != 40 {
		t.Errorf("MessageLimit = %d", cfg.Scan.MessageLimit)
	}
	if !cfg.Scan.IncludePenalty {
		t.Error("IncludePenalty should be true")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_RejectsUnknownDatePolicy(t *testing.T) {
	t.Setenv("SCAN_DATE_POLICY", "guess")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown date policy")
	}
}
