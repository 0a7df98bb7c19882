package config_test

import (
	"testing"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"depls/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()

	if cfg.InlayHints.NeedsUpdateText != "❌ {}" {
		t.Fatalf("unexpected update template %q", cfg.InlayHints.NeedsUpdateText)
	}
	if cfg.Diagnostics.OutdatedSeverity != "hint" {
		t.Fatalf("outdated severity default must be hint, got %q", cfg.Diagnostics.OutdatedSeverity)
	}
	if cfg.FetchTimeout() != 5*time.Second {
		t.Fatalf("unexpected fetch timeout %v", cfg.FetchTimeout())
	}
	if cfg.Cache.ServeStale {
		t.Fatal("serve stale must default off")
	}
}

func TestValidateClampsOutOfRange(t *testing.T) {
	cfg := config.Default()
	cfg.Fetch.TimeoutSeconds = 0
	cfg.Fetch.MaxConcurrent = 10000
	cfg.Cache.TTLSeconds = -5
	cfg.ColdStart.RatePerSec = 0
	cfg.Diagnostics.UnknownSeverity = "catastrophic"

	cfg.Validate()

	if cfg.Fetch.TimeoutSeconds < 1 {
		t.Fatalf("timeout not clamped: %d", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Fetch.MaxConcurrent > 100 {
		t.Fatalf("concurrency not clamped: %d", cfg.Fetch.MaxConcurrent)
	}
	if cfg.Cache.TTLSeconds < 10 {
		t.Fatalf("ttl not clamped: %d", cfg.Cache.TTLSeconds)
	}
	if cfg.ColdStart.RatePerSec < 1 {
		t.Fatalf("cold start rate not clamped: %d", cfg.ColdStart.RatePerSec)
	}
	if cfg.Diagnostics.UnknownSeverity != "warning" {
		t.Fatalf("invalid severity must fall back, got %q", cfg.Diagnostics.UnknownSeverity)
	}
}

func TestMergeInitializationOptions(t *testing.T) {
	cfg := config.Default()
	cfg.MergeInitializationOptions(map[string]any{
		"inlay_hints": map[string]any{"needs_update_text": "update: {}"},
		"fetch":       map[string]any{"timeout_seconds": 10},
	})

	if cfg.InlayHints.NeedsUpdateText != "update: {}" {
		t.Fatalf("template not merged, got %q", cfg.InlayHints.NeedsUpdateText)
	}
	if cfg.Fetch.TimeoutSeconds != 10 {
		t.Fatalf("timeout not merged, got %d", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Diagnostics.OutdatedSeverity != "hint" {
		t.Fatal("untouched fields must keep their defaults")
	}
}

func TestSeverityNames(t *testing.T) {
	cases := map[string]protocol.DiagnosticSeverity{
		"error":       protocol.DiagnosticSeverityError,
		"warning":     protocol.DiagnosticSeverityWarning,
		"information": protocol.DiagnosticSeverityInformation,
		"hint":        protocol.DiagnosticSeverityHint,
	}
	for name, want := range cases {
		if got := config.Severity(name); got != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
	}
}
