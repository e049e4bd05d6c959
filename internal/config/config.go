// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package config loads and validates Curatarr configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an
// optional YAML file, then environment variables (CURATARR_ prefix,
// double-underscore nesting: CURATARR_SYNC__FRESH_RATIO=0.5).
package config

import "time"

// Config is the root configuration for the Curatarr daemon.
type Config struct {
	Logging  LoggingConfig  `koanf:"logging"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Catalog  ProviderConfig `koanf:"catalog"`
	Activity ProviderConfig `koanf:"activity"`
	Retry    RetryConfig    `koanf:"retry"`
	Sourcing SourcingConfig `koanf:"sourcing"`
	Scoring  ScoringConfig  `koanf:"scoring"`
	Fusion   FusionConfig   `koanf:"fusion"`
	Mood     MoodConfig     `koanf:"mood"`
	Sync     SyncConfig     `koanf:"sync"`
}

// LoggingConfig controls the zerolog pipeline.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig configures the healthz/metrics HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file, or ":memory:" for tests.
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	// Threads: 0 = runtime.NumCPU()
	Threads int `koanf:"threads" validate:"min=0"`
}

// CacheConfig configures the cache layer: the badger-backed search cache
// and the in-memory TTL caches for mood vectors and sync markers.
type CacheConfig struct {
	// Dir is the badger directory for the persistent search cache.
	Dir string `koanf:"dir" validate:"required"`

	// SearchTTL bounds candidate-search batch entries (hours scale).
	SearchTTL time.Duration `koanf:"search_ttl"`

	// MoodTTL bounds full mood vectors; FallbackMoodTTL bounds degraded
	// fallback vectors so they are recomputed sooner.
	MoodTTL         time.Duration `koanf:"mood_ttl"`
	FallbackMoodTTL time.Duration `koanf:"fallback_mood_ttl"`

	// MarkerTTL bounds sync-in-progress markers; markers are released
	// explicitly and the TTL only guards against crashed passes.
	MarkerTTL time.Duration `koanf:"marker_ttl"`
}

// ProviderConfig tunes one upstream provider client wrapper.
type ProviderConfig struct {
	// Provider names the registered client integration to use.
	Provider string `koanf:"provider" validate:"required"`

	// RequestsPerSecond and Burst feed the client-side rate limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"min=1"`

	// Timeout is the per-call deadline for bulk operations;
	// DetailTimeout is the shorter deadline for per-item detail fetches.
	Timeout       time.Duration `koanf:"timeout"`
	DetailTimeout time.Duration `koanf:"detail_timeout"`
}

// RetryConfig tunes the shared retry-with-backoff policy.
type RetryConfig struct {
	MaxAttempts  int           `koanf:"max_attempts" validate:"min=1"`
	InitialDelay time.Duration `koanf:"initial_delay"`
	MaxDelay     time.Duration `koanf:"max_delay"`

	// CooldownAfter consecutive exhausted retries per provider+user key,
	// calls are short-circuited for Cooldown.
	CooldownAfter int           `koanf:"cooldown_after" validate:"min=1"`
	Cooldown      time.Duration `koanf:"cooldown"`
}

// SourcingConfig tunes the candidate sourcing engine.
type SourcingConfig struct {
	// EnrichConcurrency bounds concurrent metadata enrichment calls.
	EnrichConcurrency int `koanf:"enrich_concurrency" validate:"min=1,max=32"`

	// WidenYears is the year tolerance added on the single widen retry.
	WidenYears int `koanf:"widen_years" validate:"min=0"`

	// StaleRetainFraction bounds how many already-listed items may be
	// re-sourced when fresh supply is short.
	StaleRetainFraction float64 `koanf:"stale_retain_fraction" validate:"min=0,max=1"`

	// PoolOversample multiplies the requested limit when querying the
	// local pool so in-memory genre filtering has headroom.
	PoolOversample int `koanf:"pool_oversample" validate:"min=1"`
}

// ScoringConfig tunes the scoring engine.
type ScoringConfig struct {
	// DiversityLambda is the MMR balance (1.0 = pure relevance).
	DiversityLambda float64 `koanf:"diversity_lambda" validate:"min=0,max=1"`

	// TopK bounds the candidate set before expensive feature work.
	TopK int `koanf:"top_k" validate:"min=1"`

	// ThumbsUpBoost and ThumbsDownPenalty are the user-rating multipliers.
	ThumbsUpBoost     float64 `koanf:"thumbs_up_boost" validate:"gt=0"`
	ThumbsDownPenalty float64 `koanf:"thumbs_down_penalty" validate:"gt=0"`
}

// FusionConfig tunes the fusion engine.
type FusionConfig struct {
	Enabled bool `koanf:"enabled"`

	// Aggressiveness is conservative, balanced or aggressive.
	Aggressiveness string `koanf:"aggressiveness" validate:"omitempty,oneof=conservative balanced aggressive"`

	// KeywordClusters is the k for history keyword clustering.
	KeywordClusters int `koanf:"keyword_clusters" validate:"min=1,max=16"`

	// TrendingLimit is how many trending entries to fetch per kind.
	TrendingLimit int `koanf:"trending_limit" validate:"min=1"`

	// DiversityLambda is the MMR lambda for the fused final selection.
	DiversityLambda float64 `koanf:"diversity_lambda" validate:"gt=0,lte=1"`
}

// MoodConfig tunes the mood estimator.
type MoodConfig struct {
	// HistoryDays and HistoryLimit bound the watch history considered.
	HistoryDays  int `koanf:"history_days" validate:"min=1"`
	HistoryLimit int `koanf:"history_limit" validate:"min=1"`
}

// SyncConfig tunes the list sync reconciler and scheduler.
type SyncConfig struct {
	// TickInterval is how often the scheduler scans for due lists.
	TickInterval time.Duration `koanf:"tick_interval"`

	// FreshRatio is the share of freshly sourced items in an incremental
	// pass; the remainder is retained valid items. Tuned constant from
	// operations, kept as configuration.
	FreshRatio float64 `koanf:"fresh_ratio" validate:"gt=0,max=1"`

	// RotationRatio is the share of valid unchanged items randomly
	// rotated out on each incremental pass.
	RotationRatio float64 `koanf:"rotation_ratio" validate:"min=0,max=1"`

	// DefaultFullSyncDays applies to lists without their own setting.
	DefaultFullSyncDays int `koanf:"default_full_sync_days" validate:"min=1"`

	// RotationWindow is how many recent passes of shown items are
	// excluded when sourcing fresh candidates.
	RotationWindow int `koanf:"rotation_window" validate:"min=1"`

	// Seed feeds the rotation RNG; 0 selects a fixed default so test
	// runs are reproducible.
	Seed int64 `koanf:"seed"`

	// MaxConcurrent bounds simultaneous list sync passes.
	MaxConcurrent int `koanf:"max_concurrent" validate:"min=1"`
}

// defaultConfig returns a Config with every default applied. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3858,
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/curatarr.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Cache: CacheConfig{
			Dir:             "/data/cache",
			SearchTTL:       6 * time.Hour,
			MoodTTL:         24 * time.Hour,
			FallbackMoodTTL: 6 * time.Hour,
			MarkerTTL:       time.Hour,
		},
		Catalog: ProviderConfig{
			Provider:          "tmdb",
			RequestsPerSecond: 4,
			Burst:             8,
			Timeout:           20 * time.Second,
			DetailTimeout:     5 * time.Second,
		},
		Activity: ProviderConfig{
			Provider:          "trakt",
			RequestsPerSecond: 2,
			Burst:             4,
			Timeout:           20 * time.Second,
			DetailTimeout:     5 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:   4,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      15 * time.Second,
			CooldownAfter: 3,
			Cooldown:      10 * time.Minute,
		},
		Sourcing: SourcingConfig{
			EnrichConcurrency:   6,
			WidenYears:          15,
			StaleRetainFraction: 0.25,
			PoolOversample:      3,
		},
		Scoring: ScoringConfig{
			DiversityLambda:   0.65,
			TopK:              200,
			ThumbsUpBoost:     1.3,
			ThumbsDownPenalty: 0.3,
		},
		Fusion: FusionConfig{
			Enabled:         false,
			Aggressiveness:  "balanced",
			KeywordClusters: 5,
			TrendingLimit:   50,
			DiversityLambda: 0.65,
		},
		Mood: MoodConfig{
			HistoryDays:  90,
			HistoryLimit: 500,
		},
		Sync: SyncConfig{
			TickInterval:        5 * time.Minute,
			FreshRatio:          0.6,
			RotationRatio:       0.6,
			DefaultFullSyncDays: 14,
			RotationWindow:      3,
			Seed:                0,
			MaxConcurrent:       4,
		},
	}
}
