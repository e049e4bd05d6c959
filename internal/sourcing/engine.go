// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package sourcing gathers recommendation candidates: local pool first,
// then external provider discovery/search fan-out when the pool runs
// short, with deduplication, bounded enrichment, and async persist-back.
package sourcing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/curatarr/internal/cache"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
	"github.com/tomtom215/curatarr/internal/store"
)

// ErrSourcingUnavailable means zero usable candidates survived every
// fallback strategy. Reconciliation treats it as no_candidates, never as
// a reason to wipe existing list state.
var ErrSourcingUnavailable = errors.New("sourcing: no usable candidates after all fallback strategies")

// persistTimeout bounds the async pool write-back.
const persistTimeout = 30 * time.Second

// Pool is the local candidate-pool contract; *store.Store satisfies it.
type Pool interface {
	QueryPool(ctx context.Context, q store.PoolQuery) ([]models.Candidate, error)
	UpsertCandidates(ctx context.Context, candidates []models.Candidate) error
}

// Engine is the candidate sourcing engine.
type Engine struct {
	pool    Pool
	catalog providers.Catalog
	search  *cache.SearchCache
	cfg     config.SourcingConfig

	log zerolog.Logger
	now func() time.Time
}

// NewEngine wires the sourcing engine. The search cache may be nil, in
// which case bulk fan-out results are simply not cached.
func NewEngine(pool Pool, catalog providers.Catalog, search *cache.SearchCache, cfg config.SourcingConfig) *Engine {
	return &Engine{
		pool:    pool,
		catalog: catalog,
		search:  search,
		cfg:     cfg,
		log:     logging.Component("sourcing"),
		now:     time.Now,
	}
}

// Request parameterizes one sourcing pass.
type Request struct {
	Kind    models.MediaKind
	Limit   int
	Mode    models.DiscoveryMode
	Filters models.ListFilters

	// ExcludeKeys are candidate keys that must never be returned
	// (already watched, recently shown).
	ExcludeKeys map[string]struct{}

	// ExistingListKeys are keys already on the list. They are excluded
	// unless fresh supply runs short, in which case a bounded fraction
	// of stale-but-valid items is retained.
	ExistingListKeys map[string]struct{}

	// PersistentOnly disables the external provider fallback.
	PersistentOnly bool
}

// GetCandidates returns up to req.Limit deduplicated, enriched and
// strictly filtered candidates. Partial upstream failures degrade
// completeness; only a zero-candidate outcome is an error.
func (e *Engine) GetCandidates(ctx context.Context, req Request) ([]models.Candidate, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("sourcing: non-positive limit %d", req.Limit)
	}

	set := newDedupSet()

	// Step 1: the local pool, ordered by the discovery-mode heuristic.
	poolBatch, err := e.queryPool(ctx, req, false)
	if err != nil {
		e.log.Warn().Err(err).Msg("Pool query failed, continuing with external sourcing")
	}
	set.addBatch(poolBatch)
	metrics.SourcingCandidates.WithLabelValues("pool").Observe(float64(len(poolBatch)))

	// Step 2: widen once when short: year tolerance up, rating floor
	// dropped.
	if set.freshCount(req) < req.Limit {
		widened, err := e.queryPool(ctx, req, true)
		if err == nil {
			set.addBatch(widened)
		}
	}

	// Step 3: external fan-out fallback.
	if !req.PersistentOnly && set.freshCount(req) < req.Limit {
		external := e.externalFanout(ctx, req)
		set.addBatch(external)
		metrics.SourcingCandidates.WithLabelValues("external").Observe(float64(len(external)))
	}

	// Step 4: exclusions with bounded stale retention.
	fresh, stale := set.partition(req)
	selected := fresh
	if len(selected) < req.Limit {
		maxStale := int(e.cfg.StaleRetainFraction * float64(req.Limit))
		if len(stale) < maxStale {
			maxStale = len(stale)
		}
		selected = append(selected, stale[:maxStale]...)
	}
	if len(selected) > req.Limit*2 {
		// Enrichment headroom: strict filters will cut items, but there
		// is no point enriching the long tail.
		selected = selected[:req.Limit*2]
	}

	// Step 5: bounded-concurrency enrichment, then async persist-back.
	e.enrich(ctx, selected)
	e.persistAsync(selected)

	// Step 6: strict post-enrichment filters.
	final := make([]models.Candidate, 0, req.Limit)
	for i := range selected {
		if !passesStrictFilters(&selected[i], &req.Filters) {
			continue
		}
		final = append(final, selected[i])
		if len(final) == req.Limit {
			break
		}
	}

	if len(final) == 0 {
		return nil, ErrSourcingUnavailable
	}
	return final, nil
}

// queryPool runs the cheap indexed pool query plus the in-memory genre
// filter. The widened variant raises year tolerance and drops the
// rating floor.
func (e *Engine) queryPool(ctx context.Context, req Request, widened bool) ([]models.Candidate, error) {
	f := req.Filters
	q := store.PoolQuery{
		Kind:         req.Kind,
		Languages:    f.Languages,
		YearMin:      f.YearMin,
		YearMax:      f.YearMax,
		MinRating:    f.MinRating,
		IncludeAdult: f.AllowAdult,
		Mode:         req.Mode,
		Limit:        req.Limit * e.cfg.PoolOversample,
	}
	if widened {
		if q.YearMin > 0 {
			q.YearMin -= e.cfg.WidenYears
		}
		if q.YearMax > 0 {
			q.YearMax += e.cfg.WidenYears
		}
		q.MinRating = 0
	}

	batch, err := e.pool.QueryPool(ctx, q)
	if err != nil {
		return nil, err
	}

	// Genre matching happens here, not in SQL, so synonym normalization
	// applies. Items with no genre metadata yet pass this loose cut; the
	// strict post-enrichment filter decides their fate.
	if len(f.Genres) == 0 {
		return batch, nil
	}
	out := batch[:0]
	for i := range batch {
		if len(batch[i].Genres) == 0 || models.MatchesGenres(batch[i].Genres, f.Genres, f.GenreMode) {
			out = append(out, batch[i])
		}
	}
	return out, nil
}

// enrich fills missing genre/overview/poster metadata via per-item
// detail fetches bounded by a concurrency semaphore. Failures are
// absorbed; the strict filter decides the item's fate afterwards.
func (e *Engine) enrich(ctx context.Context, candidates []models.Candidate) {
	sem := semaphore.NewWeighted(int64(e.cfg.EnrichConcurrency))
	for i := range candidates {
		if candidates[i].HasMetadata() || candidates[i].CatalogID <= 0 {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context cancelled; still wait for in-flight fetches
		}
		go func(c *models.Candidate) {
			defer sem.Release(1)
			detail, err := e.catalog.Detail(ctx, c.Kind, c.CatalogID)
			if err != nil {
				metrics.EnrichmentCalls.WithLabelValues("error").Inc()
				e.log.Debug().Err(err).Int64("catalog_id", c.CatalogID).
					Msg("Enrichment fetch failed")
				return
			}
			metrics.EnrichmentCalls.WithLabelValues("ok").Inc()
			mergeDetail(c, detail)
		}(&candidates[i])
	}
	// Wait for in-flight fetches.
	_ = sem.Acquire(context.Background(), int64(e.cfg.EnrichConcurrency))
}

// mergeDetail copies authoritative metadata onto the candidate, filling
// gaps without clobbering already-known fields.
func mergeDetail(c *models.Candidate, detail *models.Candidate) {
	if detail == nil {
		return
	}
	if len(c.Genres) == 0 {
		c.Genres = models.NormalizeGenres(detail.Genres)
	}
	if len(c.Keywords) == 0 {
		c.Keywords = detail.Keywords
	}
	if c.Overview == "" {
		c.Overview = detail.Overview
	}
	if c.Language == "" {
		c.Language = detail.Language
	}
	if c.Year == 0 {
		c.Year = detail.Year
	}
	if c.Rating == 0 {
		c.Rating = detail.Rating
		c.VoteCount = detail.VoteCount
	}
	if c.PosterURL == "" {
		c.PosterURL = detail.PosterURL
	}
	if c.BackdropURL == "" {
		c.BackdropURL = detail.BackdropURL
	}
	c.LastRefreshed = time.Now().UTC()
}

// persistAsync writes newly confirmed candidates back to the pool so
// future passes need less external traffic. Runs detached from the pass
// with its own deadline.
func (e *Engine) persistAsync(candidates []models.Candidate) {
	toPersist := make([]models.Candidate, 0, len(candidates))
	for i := range candidates {
		if candidates[i].CatalogID > 0 && candidates[i].HasMetadata() {
			c := candidates[i]
			c.Active = true
			toPersist = append(toPersist, c)
		}
	}
	if len(toPersist) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := e.pool.UpsertCandidates(ctx, toPersist); err != nil {
			e.log.Warn().Err(err).Int("count", len(toPersist)).
				Msg("Async pool persist-back failed")
		}
	}()
}

// passesStrictFilters enforces language and genre from authoritative
// metadata. With an active filter, an item still missing the relevant
// field after enrichment is excluded even though it passed the loose
// pre-enrichment pass.
func passesStrictFilters(c *models.Candidate, f *models.ListFilters) bool {
	if c.Adult && !f.AllowAdult {
		return false
	}
	if len(f.Languages) > 0 {
		if c.Language == "" || !containsFold(f.Languages, c.Language) {
			return false
		}
	}
	if len(f.Genres) > 0 {
		if len(c.Genres) == 0 || !models.MatchesGenres(c.Genres, f.Genres, f.GenreMode) {
			return false
		}
	}
	return true
}
