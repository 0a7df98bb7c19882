// Package config holds the server configuration. Defaults live in code;
// an optional TOML file and the client's initializationOptions override
// them. Out-of-bounds values are clamped with a log line naming the
// field, never rejected fatally.
package config

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Config is the full configuration surface.
type Config struct {
	InlayHints  InlayHints  `toml:"inlay_hints" json:"inlay_hints"`
	Diagnostics Diagnostics `toml:"diagnostics" json:"diagnostics"`
	Cache       Cache       `toml:"cache" json:"cache"`
	Fetch       Fetch       `toml:"fetch" json:"fetch"`
	ColdStart   ColdStart   `toml:"cold_start" json:"cold_start"`
}

// InlayHints controls the inline version annotations. The update
// template uses "{}" as the placeholder for the latest version.
type InlayHints struct {
	Enabled         bool   `toml:"enabled" json:"enabled"`
	UpToDateText    string `toml:"up_to_date_text" json:"up_to_date_text"`
	NeedsUpdateText string `toml:"needs_update_text" json:"needs_update_text"`
}

// Diagnostics carries one severity per diagnostic kind. Accepted values
// are "error", "warning", "information" and "hint".
type Diagnostics struct {
	OutdatedSeverity string `toml:"outdated_severity" json:"outdated_severity"`
	UnknownSeverity  string `toml:"unknown_severity" json:"unknown_severity"`
	YankedSeverity   string `toml:"yanked_severity" json:"yanked_severity"`
}

// Cache bounds the registry metadata cache.
type Cache struct {
	TTLSeconds int64 `toml:"ttl_seconds" json:"ttl_seconds"`
	MaxBytesMB int64 `toml:"max_bytes_mb" json:"max_bytes_mb"`
	ServeStale bool  `toml:"serve_stale" json:"serve_stale"`
}

// Fetch bounds the registry fetch orchestrator and the background
// refresh cycle.
type Fetch struct {
	TimeoutSeconds         int64 `toml:"timeout_seconds" json:"timeout_seconds"`
	MaxConcurrent          int64 `toml:"max_concurrent" json:"max_concurrent"`
	RefreshIntervalSeconds int64 `toml:"refresh_interval_seconds" json:"refresh_interval_seconds"`
}

// ColdStart controls synthetic open events for files the editor never
// reported open.
type ColdStart struct {
	Enabled      bool  `toml:"enabled" json:"enabled"`
	RatePerSec   int   `toml:"rate_per_sec" json:"rate_per_sec"`
	SweepSeconds int64 `toml:"sweep_seconds" json:"sweep_seconds"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		InlayHints: InlayHints{
			Enabled:         true,
			UpToDateText:    "✅",
			NeedsUpdateText: "❌ {}",
		},
		Diagnostics: Diagnostics{
			OutdatedSeverity: "hint",
			UnknownSeverity:  "warning",
			YankedSeverity:   "warning",
		},
		Cache: Cache{
			TTLSeconds: 300,
			MaxBytesMB: 64,
		},
		Fetch: Fetch{
			TimeoutSeconds:         5,
			MaxConcurrent:          20,
			RefreshIntervalSeconds: 300,
		},
		ColdStart: ColdStart{
			Enabled:      true,
			RatePerSec:   10,
			SweepSeconds: 60,
		},
	}
}

// LoadFile merges a TOML config file over the defaults. A missing or
// unreadable file keeps the defaults.
func LoadFile(path string) Config {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config: using defaults, cannot read %s: %v", path, err)
		return cfg
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		log.Printf("config: using defaults, cannot parse %s: %v", path, err)
		return Default()
	}
	cfg.Validate()
	return cfg
}

// MergeInitializationOptions applies the client's initializationOptions
// on top of the current values. Bad options keep the current values.
func (c *Config) MergeInitializationOptions(opts interface{}) {
	if opts == nil {
		return
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		log.Printf("config: ignoring initializationOptions: %v", err)
		return
	}
	if err := json.Unmarshal(raw, c); err != nil {
		log.Printf("config: ignoring initializationOptions: %v", err)
		return
	}
	c.Validate()
}

// Validate clamps every bounded field to its documented range and
// resets malformed enum fields, logging each correction by name.
func (c *Config) Validate() {
	c.Fetch.TimeoutSeconds = clampInt64("fetch.timeout_seconds", c.Fetch.TimeoutSeconds, 1, 300)
	c.Fetch.MaxConcurrent = clampInt64("fetch.max_concurrent", c.Fetch.MaxConcurrent, 1, 100)
	c.Fetch.RefreshIntervalSeconds = clampInt64("fetch.refresh_interval_seconds", c.Fetch.RefreshIntervalSeconds, 10, 3600)
	c.Cache.TTLSeconds = clampInt64("cache.ttl_seconds", c.Cache.TTLSeconds, 10, 86400)
	c.Cache.MaxBytesMB = clampInt64("cache.max_bytes_mb", c.Cache.MaxBytesMB, 1, 512)
	c.ColdStart.RatePerSec = int(clampInt64("cold_start.rate_per_sec", int64(c.ColdStart.RatePerSec), 1, 1000))
	c.ColdStart.SweepSeconds = clampInt64("cold_start.sweep_seconds", c.ColdStart.SweepSeconds, 10, 3600)

	c.Diagnostics.OutdatedSeverity = validSeverity("diagnostics.outdated_severity", c.Diagnostics.OutdatedSeverity, "hint")
	c.Diagnostics.UnknownSeverity = validSeverity("diagnostics.unknown_severity", c.Diagnostics.UnknownSeverity, "warning")
	c.Diagnostics.YankedSeverity = validSeverity("diagnostics.yanked_severity", c.Diagnostics.YankedSeverity, "warning")

	if c.InlayHints.UpToDateText == "" {
		c.InlayHints.UpToDateText = "✅"
	}
	if c.InlayHints.NeedsUpdateText == "" {
		c.InlayHints.NeedsUpdateText = "❌ {}"
	}
}

// FetchTimeout returns the per-fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RefreshInterval returns the background refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Fetch.RefreshIntervalSeconds) * time.Second
}

// CacheTTL returns the cache entry freshness window.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Severity converts a configured severity name to the protocol value.
func Severity(name string) protocol.DiagnosticSeverity {
	switch name {
	case "error":
		return protocol.DiagnosticSeverityError
	case "warning":
		return protocol.DiagnosticSeverityWarning
	case "information":
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}

func clampInt64(field string, v, lo, hi int64) int64 {
	switch {
	case v < lo:
		log.Printf("config: %s=%d below minimum, using %d", field, v, lo)
		return lo
	case v > hi:
		log.Printf("config: %s=%d above maximum, using %d", field, v, hi)
		return hi
	default:
		return v
	}
}

func validSeverity(field, v, fallback string) string {
	switch v {
	case "error", "warning", "information", "hint":
		return v
	}
	log.Printf("config: %s=%q is not a severity, using %q", field, v, fallback)
	return fallback
}
