// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package metrics defines the Prometheus collectors for Curatarr.
// Collectors are package-level promauto variables, exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sourcing metrics.

	SourcingCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatarr_sourcing_candidates",
			Help:    "Candidates returned per sourcing pass",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"source"}, // "pool", "external"
	)

	SourcingFanoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_sourcing_fanout_failures_total",
			Help: "External discovery/search sub-fetches that failed and were absorbed",
		},
		[]string{"strategy"},
	)

	EnrichmentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_enrichment_calls_total",
			Help: "Per-item metadata enrichment calls by outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	// Provider metrics.

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_provider_retries_total",
			Help: "Retry attempts against upstream providers by error kind",
		},
		[]string{"provider", "kind"},
	)

	ProviderCooldowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_provider_cooldowns_total",
			Help: "Calls short-circuited by the per provider+user cooldown",
		},
		[]string{"provider"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curatarr_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Cache metrics.

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_cache_hits_total",
			Help: "Cache hits by cache name",
		},
		[]string{"cache"}, // "search", "mood"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_cache_misses_total",
			Help: "Cache misses by cache name",
		},
		[]string{"cache"},
	)

	// Sync metrics.

	SyncPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_sync_passes_total",
			Help: "List sync passes by type and terminal status",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatarr_sync_duration_seconds",
			Help:    "Duration of list sync passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	SyncItemsRotated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatarr_sync_items_rotated_total",
			Help: "Valid unchanged items rotated out for freshness",
		},
	)

	MirrorOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_mirror_operations_total",
			Help: "Mirror diff operations applied",
		},
		[]string{"op"}, // "add", "remove"
	)
)
