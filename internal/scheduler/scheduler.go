// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package scheduler periodically scans for lists whose sync is due and
// dispatches reconciliation passes with bounded concurrency. It runs as
// a supervised service under the suture tree.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
)

// Syncer runs one sync pass; *reconcile.Reconciler satisfies it.
type Syncer interface {
	SyncList(ctx context.Context, listID uuid.UUID, forceFull bool) error
}

// DueLister reports lists whose sync interval elapsed; *store.Store
// satisfies it.
type DueLister interface {
	ListsDueForSync(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// Scheduler is the periodic sync dispatcher.
type Scheduler struct {
	lists  DueLister
	syncer Syncer
	cfg    config.SyncConfig

	log zerolog.Logger
	now func() time.Time
}

// New wires a scheduler.
func New(lists DueLister, syncer Syncer, cfg config.SyncConfig) *Scheduler {
	return &Scheduler{
		lists:  lists,
		syncer: syncer,
		cfg:    cfg,
		log:    logging.Component("scheduler"),
		now:    time.Now,
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string { return "sync-scheduler" }

// Serve implements suture.Service: one immediate scan, then one per
// tick, until the context is canceled.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick scans for due lists and syncs them. Per-list failures are logged
// and never abort the scan; the reconciler records its own terminal
// state per list.
func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.lists.ListsDueForSync(ctx, s.now())
	if err != nil {
		s.log.Warn().Err(err).Msg("Due-list scan failed")
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Debug().Int("count", len(due)).Msg("Dispatching sync passes")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)
	for _, id := range due {
		g.Go(func() error {
			if err := s.syncer.SyncList(gctx, id, false); err != nil {
				s.log.Warn().Err(err).Str("list_id", id.String()).Msg("Sync pass failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}
