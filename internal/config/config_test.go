// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Sync.FreshRatio != 0.6 {
		t.Errorf("fresh_ratio = %f, want 0.6", cfg.Sync.FreshRatio)
	}
	if cfg.Sync.RotationRatio != 0.6 {
		t.Errorf("rotation_ratio = %f, want 0.6", cfg.Sync.RotationRatio)
	}
	if cfg.Scoring.DiversityLambda != 0.65 {
		t.Errorf("diversity_lambda = %f, want 0.65", cfg.Scoring.DiversityLambda)
	}
	if cfg.Scoring.ThumbsUpBoost != 1.3 || cfg.Scoring.ThumbsDownPenalty != 0.3 {
		t.Errorf("rating multipliers = %f/%f, want 1.3/0.3",
			cfg.Scoring.ThumbsUpBoost, cfg.Scoring.ThumbsDownPenalty)
	}
	if cfg.Cache.MoodTTL != 24*time.Hour {
		t.Errorf("mood_ttl = %s, want 24h", cfg.Cache.MoodTTL)
	}
	if cfg.Sourcing.EnrichConcurrency < 4 || cfg.Sourcing.EnrichConcurrency > 8 {
		t.Errorf("enrich_concurrency = %d, want within 4-8", cfg.Sourcing.EnrichConcurrency)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"lambda above one", func(c *Config) { c.Scoring.DiversityLambda = 1.5 }},
		{"zero retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"max delay below initial", func(c *Config) { c.Retry.MaxDelay = time.Millisecond }},
		{"fresh ratio zero", func(c *Config) { c.Sync.FreshRatio = 0 }},
		{"bad aggressiveness", func(c *Config) { c.Fusion.Aggressiveness = "extreme" }},
		{"fallback mood ttl above mood ttl", func(c *Config) { c.Cache.FallbackMoodTTL = 48 * time.Hour }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"CURATARR_SYNC__FRESH_RATIO", "sync.fresh_ratio"},
		{"CURATARR_DATABASE__PATH", "database.path"},
		{"CURATARR_LOGGING__LEVEL", "logging.level"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.input); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
database:
  path: /tmp/from-file.duckdb
sync:
  fresh_ratio: 0.5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CURATARR_SYNC__ROTATION_RATIO", "0.4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Path != "/tmp/from-file.duckdb" {
		t.Errorf("file layer not applied: path = %q", cfg.Database.Path)
	}
	if cfg.Sync.FreshRatio != 0.5 {
		t.Errorf("file layer not applied: fresh_ratio = %f", cfg.Sync.FreshRatio)
	}
	if cfg.Sync.RotationRatio != 0.4 {
		t.Errorf("env layer not applied: rotation_ratio = %f", cfg.Sync.RotationRatio)
	}
	// Untouched settings keep defaults.
	if cfg.Scoring.TopK != 200 {
		t.Errorf("default not preserved: top_k = %d", cfg.Scoring.TopK)
	}
}
