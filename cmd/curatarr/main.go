// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package main is the entry point for the Curatarr daemon.
//
// Curatarr maintains personalized media watch-lists: it estimates a
// per-user mood vector from watch activity, sources candidates from a
// catalog provider into a local DuckDB pool, scores and ranks them, and
// reconciles each list on a schedule, rotating stale picks out and
// fresh picks in, optionally mirroring the result to an external list.
//
// # Application Architecture
//
// Startup wires components in dependency order:
//
//  1. Configuration: layered Koanf v2 (defaults, config.yaml, CURATARR_* env)
//  2. Logging: zerolog, with an slog bridge for the supervisor
//  3. Store: DuckDB candidate pool, lists, and rotation log
//  4. Caches: BadgerDB search cache plus in-memory mood/marker cache
//  5. Providers: registered catalog/activity clients wrapped in rate
//     limit, retry, and circuit-breaker decorators
//  6. Engines: mood estimator, scoring, fusion, sourcing, reconciler
//  7. Supervision: suture tree running the sync scheduler and the
//     healthz/metrics HTTP server
//
// Provider clients are not compiled into this package; integrations
// register themselves with the providers registry (see
// providers.RegisterCatalog) and are selected by name via
// CURATARR_CATALOG__PROVIDER and CURATARR_ACTIVITY__PROVIDER.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context; the supervisor tree shuts
// services down gracefully within its configured timeout before the
// store and caches are closed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tomtom215/curatarr/internal/cache"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/fusion"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/mood"
	"github.com/tomtom215/curatarr/internal/providers"
	"github.com/tomtom215/curatarr/internal/reconcile"
	"github.com/tomtom215/curatarr/internal/scheduler"
	"github.com/tomtom215/curatarr/internal/scoring"
	"github.com/tomtom215/curatarr/internal/sourcing"
	"github.com/tomtom215/curatarr/internal/store"
	"github.com/tomtom215/curatarr/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config not yet available.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("catalog", cfg.Catalog.Provider).
		Str("activity", cfg.Activity.Provider).
		Dur("tick_interval", cfg.Sync.TickInterval).
		Msg("Starting Curatarr")

	db, err := store.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	search, err := cache.OpenSearch(filepath.Join(cfg.Cache.Dir, "search"), cfg.Cache.SearchTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open search cache")
	}
	defer func() {
		if err := search.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing search cache")
		}
	}()

	// One in-memory cache backs both mood vectors and sync markers;
	// entries are namespaced by key prefix.
	mem := cache.NewMemory(cfg.Cache.MoodTTL)
	markers := cache.NewMarkers(mem, cfg.Cache.MarkerTTL)

	retrier := providers.NewRetrier(cfg.Retry, cfg.Sync.Seed)

	catalog, err := providers.NewCatalog(cfg.Catalog, retrier)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build catalog provider")
	}
	activity, err := providers.NewActivity(cfg.Activity, retrier)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build activity provider")
	}

	moods := mood.NewEstimator(activity, db, mem, cfg.Mood, cfg.Cache)
	scorer := scoring.NewEngine(activity, moods, cfg.Scoring)

	var fuser reconcile.Fuser
	if cfg.Fusion.Enabled {
		fuser = fusion.NewEngine(scorer, activity, cfg.Fusion, cfg.Sync.Seed)
		logging.Info().Str("aggressiveness", cfg.Fusion.Aggressiveness).Msg("Fusion ranking enabled")
	}

	sourcer := sourcing.NewEngine(db, catalog, search, cfg.Sourcing)
	reconciler := reconcile.New(db, sourcer, scorer, fuser, activity, catalog, markers, cfg.Sync)
	sched := scheduler.New(db, reconciler, cfg.Sync)

	tree, err := supervisor.NewTree(logging.Slog(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddSyncService(sched)
	tree.AddAPIService(supervisor.NewHTTPService(cfg.Server, db))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Curatarr stopped")
}
