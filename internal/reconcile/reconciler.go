// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package reconcile

import (
	"context"
	"encoding/binary"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatarr/internal/cache"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
	"github.com/tomtom215/curatarr/internal/scoring"
	"github.com/tomtom215/curatarr/internal/sourcing"
	"github.com/tomtom215/curatarr/internal/store"
)

// Store is the persistence surface the reconciler needs; *store.Store
// satisfies it.
type Store interface {
	GetList(ctx context.Context, id uuid.UUID) (*models.ListSnapshot, error)
	SetListStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errMsg string) error
	RecordSyncOutcome(ctx context.Context, id uuid.UUID, status models.SyncStatus, errMsg string, at time.Time, full bool) error
	ApplyListDelta(ctx context.Context, listID uuid.UUID, delta *store.ListDelta) error
	ReplaceListItems(ctx context.Context, listID uuid.UUID, items []models.ListItem) error
	RecordShown(ctx context.Context, listID uuid.UUID, keys []string, at time.Time) error
	RecentShownKeys(ctx context.Context, listID uuid.UUID, window int) (map[string]struct{}, error)
	GetCandidate(ctx context.Context, kind models.MediaKind, catalogID int64) (*models.Candidate, error)
	UpsertCandidates(ctx context.Context, candidates []models.Candidate) error
	MarkInactive(ctx context.Context, kind models.MediaKind, catalogIDs []int64) error
}

// Sourcer supplies fresh candidates; *sourcing.Engine satisfies it.
type Sourcer interface {
	GetCandidates(ctx context.Context, req sourcing.Request) ([]models.Candidate, error)
}

// Scorer is the base ranking contract; *scoring.Engine satisfies it.
type Scorer interface {
	Score(ctx context.Context, req scoring.Request, candidates []models.Candidate) []models.ScoredCandidate
}

// Fuser is the fusion ranking contract; *fusion.Engine satisfies it.
type Fuser interface {
	Fuse(ctx context.Context, req scoring.Request, candidates []models.Candidate) []models.ScoredCandidate
}

// Reconciler drives per-list sync passes.
type Reconciler struct {
	lists    Store
	sourcer  Sourcer
	scorer   Scorer
	fuser    Fuser
	activity providers.Activity
	catalog  providers.Catalog
	markers  *cache.Markers
	cfg      config.SyncConfig

	log zerolog.Logger
	now func() time.Time
}

// New wires a reconciler. The fuser may be nil; lists with fusion
// enabled then fall back to the base scorer.
func New(lists Store, sourcer Sourcer, scorer Scorer, fuser Fuser, activity providers.Activity, catalog providers.Catalog, markers *cache.Markers, cfg config.SyncConfig) *Reconciler {
	return &Reconciler{
		lists:    lists,
		sourcer:  sourcer,
		scorer:   scorer,
		fuser:    fuser,
		activity: activity,
		catalog:  catalog,
		markers:  markers,
		cfg:      cfg,
		log:      logging.Component("reconcile"),
		now:      time.Now,
	}
}

// SyncList runs one sync pass for a list: decide, mark in-flight,
// execute, record the terminal state, mirror. Concurrent passes on the
// same list lose the marker claim and back off silently.
func (r *Reconciler) SyncList(ctx context.Context, listID uuid.UUID, forceFull bool) error {
	list, err := r.lists.GetList(ctx, listID)
	if err != nil {
		return err
	}

	syncType := DecideSyncType(list, r.now(), forceFull, r.cfg.DefaultFullSyncDays)
	if syncType == models.SyncSkip {
		metrics.SyncPasses.WithLabelValues(string(syncType), string(models.StatusSkipped)).Inc()
		return r.lists.SetListStatus(ctx, listID, models.StatusSkipped, "")
	}

	if !r.markers.Acquire(listID) {
		r.log.Debug().Str("list_id", listID.String()).Msg("Sync already in flight, backing off")
		return nil
	}
	defer r.markers.Release(listID)

	if err := r.lists.SetListStatus(ctx, listID, models.StatusSyncing, ""); err != nil {
		return err
	}

	start := time.Now()
	var (
		status models.SyncStatus
		items  []models.ListItem
	)
	if syncType == models.SyncFull {
		status, items, err = r.full(ctx, list)
	} else {
		status, items, err = r.incremental(ctx, list)
	}

	errMsg := ""
	if err != nil {
		status = models.StatusError
		errMsg = err.Error()
		r.log.Error().Err(err).Str("list_id", listID.String()).
			Str("sync_type", string(syncType)).Msg("Sync pass failed")
	}
	metrics.SyncPasses.WithLabelValues(string(syncType), string(status)).Inc()
	metrics.SyncDuration.WithLabelValues(string(syncType)).Observe(time.Since(start).Seconds())

	if recErr := r.lists.RecordSyncOutcome(ctx, listID, status, errMsg, r.now(), syncType == models.SyncFull); recErr != nil {
		if err == nil {
			err = recErr
		}
	}

	if status == models.StatusComplete && list.MirrorID != "" {
		r.syncMirror(ctx, list.MirrorID, items)
	}
	return err
}

// full rebuilds the list from scratch: source wide, rank, keep the top
// items, enrich artwork eagerly, replace atomically.
func (r *Reconciler) full(ctx context.Context, list *models.ListSnapshot) (models.SyncStatus, []models.ListItem, error) {
	watched := r.watchedKeys(ctx, list)

	candidates, err := r.source(ctx, list, watched, nil)
	if errors.Is(err, sourcing.ErrSourcingUnavailable) {
		// Existing items stay untouched; an empty sourcing result must
		// never wipe a list.
		return models.StatusNoCandidates, nil, nil
	}
	if err != nil {
		return models.StatusError, nil, err
	}

	ranked := r.rank(ctx, list, candidates)
	if len(ranked) == 0 {
		return models.StatusNoCandidates, nil, nil
	}
	if len(ranked) > list.ItemLimit {
		ranked = ranked[:list.ItemLimit]
	}

	r.enrichArtwork(ctx, ranked)

	at := r.now()
	items := make([]models.ListItem, 0, len(ranked))
	keys := make([]string, 0, len(ranked))
	for i := range ranked {
		item := itemFromScored(&ranked[i], at)
		items = append(items, item)
		keys = append(keys, item.Key)
	}

	if err := r.lists.ReplaceListItems(ctx, list.ID, items); err != nil {
		return models.StatusError, nil, err
	}
	if err := r.lists.RecordShown(ctx, list.ID, keys, at); err != nil {
		r.log.Warn().Err(err).Str("list_id", list.ID.String()).Msg("Shown-history write failed")
	}
	return models.StatusComplete, items, nil
}

// incremental refreshes the list in place: revalidate what is there,
// source fresh items excluding the recent rotation window, blend fresh
// and retained by the configured ratio, and apply one delta.
func (r *Reconciler) incremental(ctx context.Context, list *models.ListSnapshot) (models.SyncStatus, []models.ListItem, error) {
	watched := r.watchedKeys(ctx, list)

	shown, err := r.lists.RecentShownKeys(ctx, list.ID, r.cfg.RotationWindow)
	if err != nil {
		r.log.Warn().Err(err).Str("list_id", list.ID.String()).Msg("Shown-history read failed")
		shown = nil
	}

	valid, validMeta, invalidKeys := r.revalidate(ctx, list, watched)

	// Current items are in the shown window by construction; exempting
	// them here keeps the rotation window from blocking their own
	// re-rank. Watched keys stay excluded unconditionally.
	existing := list.ItemKeys()
	exclude := make(map[string]struct{}, len(watched)+len(shown))
	for k := range watched {
		exclude[k] = struct{}{}
	}
	for k := range shown {
		if _, listed := existing[k]; listed {
			continue
		}
		exclude[k] = struct{}{}
	}

	candidates, err := r.source(ctx, list, exclude, existing)
	if errors.Is(err, sourcing.ErrSourcingUnavailable) {
		return models.StatusNoCandidates, nil, nil
	}
	if err != nil {
		return models.StatusError, nil, err
	}

	// Rank retained items alongside the sourced batch so their scores
	// refresh against the user's current taste.
	sourced := make(map[string]struct{}, len(candidates))
	for i := range candidates {
		sourced[candidates[i].Key()] = struct{}{}
	}
	for i := range validMeta {
		if _, ok := sourced[validMeta[i].Key()]; ok {
			continue
		}
		candidates = append(candidates, validMeta[i])
	}

	ranked := r.rank(ctx, list, candidates)
	fresh := make([]models.ScoredCandidate, 0, len(ranked))
	staleScores := make(map[string]float64)
	for i := range ranked {
		key := ranked[i].Candidate.Key()
		if _, listed := existing[key]; listed {
			staleScores[key] = ranked[i].Score
			continue
		}
		fresh = append(fresh, ranked[i])
	}
	if len(fresh) == 0 && len(valid) == 0 {
		return models.StatusNoCandidates, nil, nil
	}

	// Re-ranked retained items carry their refreshed score forward.
	for i := range valid {
		if score, ok := staleScores[valid[i].Key]; ok {
			valid[i].Score = score
		}
	}

	at := r.now()
	inserts, retained, rotatedOut := composePass(fresh, valid, list.ItemLimit, r.cfg.FreshRatio, r.cfg.RotationRatio, r.rng(list.ID), at)

	delta := &store.ListDelta{
		Update:     retained,
		DeleteKeys: append(invalidKeys, rotatedOut...),
		Insert:     inserts,
	}
	if err := r.lists.ApplyListDelta(ctx, list.ID, delta); err != nil {
		return models.StatusError, nil, err
	}
	metrics.SyncItemsRotated.Add(float64(len(rotatedOut)))

	items := make([]models.ListItem, 0, len(inserts)+len(retained))
	items = append(items, inserts...)
	items = append(items, retained...)
	keys := make([]string, 0, len(items))
	for i := range items {
		keys = append(keys, items[i].Key)
	}
	if err := r.lists.RecordShown(ctx, list.ID, keys, at); err != nil {
		r.log.Warn().Err(err).Str("list_id", list.ID.String()).Msg("Shown-history write failed")
	}
	return models.StatusComplete, items, nil
}

// composePass blends freshly ranked candidates with retained valid items
// under the fresh ratio. Retention is a seeded random draw over the
// valid items so long-lived entries rotate out over time; the draw never
// shrinks the list when fresh supply can backfill, and never rotates out
// more than the rotation ratio of the valid items in one pass.
func composePass(fresh []models.ScoredCandidate, valid []models.ListItem, limit int, freshRatio, rotationRatio float64, rng *rand.Rand, at time.Time) (inserts, retained []models.ListItem, rotatedOut []string) {
	freshTarget := int(freshRatio*float64(limit) + 0.5)
	if freshTarget > len(fresh) {
		freshTarget = len(fresh)
	}
	retainTarget := limit - freshTarget

	// Bounded forced rotation: fresh pressure alone may not rotate out
	// more than rotationRatio of the current valid items.
	maxRotate := int(rotationRatio*float64(len(valid)) + 0.5)
	if minRetain := len(valid) - maxRotate; retainTarget < minRetain {
		retainTarget = minRetain
		if retainTarget > limit {
			retainTarget = limit
		}
		if freshTarget > limit-retainTarget {
			freshTarget = limit - retainTarget
		}
	}

	shuffled := make([]models.ListItem, len(valid))
	copy(shuffled, valid)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if retainTarget > len(shuffled) {
		retainTarget = len(shuffled)
	}
	retained = shuffled[:retainTarget]
	for _, item := range shuffled[retainTarget:] {
		rotatedOut = append(rotatedOut, item.Key)
	}

	// Backfill with extra fresh items when retention came up short.
	if room := limit - len(retained); freshTarget < room && len(fresh) > freshTarget {
		freshTarget = room
		if freshTarget > len(fresh) {
			freshTarget = len(fresh)
		}
	}

	inserts = make([]models.ListItem, 0, freshTarget)
	for i := 0; i < freshTarget; i++ {
		inserts = append(inserts, itemFromScored(&fresh[i], at))
	}
	return inserts, retained, rotatedOut
}

// revalidate checks every current item against watched state and the
// list's current filters using authoritative pool metadata. An item that
// cannot be disproven (no metadata anywhere) stays valid. Valid items
// with known metadata are also returned as candidates so the caller can
// re-rank them.
func (r *Reconciler) revalidate(ctx context.Context, list *models.ListSnapshot, watched map[string]struct{}) (valid []models.ListItem, validMeta []models.Candidate, invalidKeys []string) {
	for _, item := range list.Items {
		if _, w := watched[item.Key]; w {
			invalidKeys = append(invalidKeys, item.Key)
			continue
		}
		if !list.Filters.AllowsKind(item.Kind) {
			invalidKeys = append(invalidKeys, item.Key)
			continue
		}

		c := r.lookupCandidate(ctx, &item)
		if c != nil && !itemStillValid(c, &list.Filters) {
			invalidKeys = append(invalidKeys, item.Key)
			continue
		}
		valid = append(valid, item)
		if c != nil {
			validMeta = append(validMeta, *c)
		}
	}
	return valid, validMeta, invalidKeys
}

// lookupCandidate resolves authoritative metadata for an item: the local
// pool first, the catalog as fallback. Nil means unknown.
func (r *Reconciler) lookupCandidate(ctx context.Context, item *models.ListItem) *models.Candidate {
	if item.CatalogID <= 0 {
		return nil
	}
	if c, err := r.lists.GetCandidate(ctx, item.Kind, item.CatalogID); err == nil && c != nil {
		return c
	}
	c, err := r.catalog.Detail(ctx, item.Kind, item.CatalogID)
	if err != nil {
		var apiErr *providers.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusGone) {
			// The catalog no longer knows this id; retire the pool row
			// so future pool queries skip it.
			if mErr := r.lists.MarkInactive(ctx, item.Kind, []int64{item.CatalogID}); mErr != nil {
				r.log.Warn().Err(mErr).Int64("catalog_id", item.CatalogID).Msg("Pool retire failed")
			}
			return &models.Candidate{CatalogID: item.CatalogID, Kind: item.Kind, Active: false}
		}
		return nil
	}
	return c
}

// itemStillValid applies the list's current filters to authoritative
// candidate metadata.
func itemStillValid(c *models.Candidate, f *models.ListFilters) bool {
	if !c.Active {
		return false
	}
	if c.Adult && !f.AllowAdult {
		return false
	}
	if len(f.Languages) > 0 && c.Language != "" && !containsFold(f.Languages, c.Language) {
		return false
	}
	if len(f.Genres) > 0 && len(c.Genres) > 0 && !models.MatchesGenres(c.Genres, f.Genres, f.GenreMode) {
		return false
	}
	if f.YearMin > 0 && c.Year > 0 && c.Year < f.YearMin {
		return false
	}
	if f.YearMax > 0 && c.Year > 0 && c.Year > f.YearMax {
		return false
	}
	if f.MinRating > 0 && c.Rating > 0 && c.Rating < f.MinRating {
		return false
	}
	return true
}

// source pulls candidates per allowed kind, splitting the limit evenly
// with ranking headroom. A kind-level failure degrades; only an entirely
// empty result propagates.
func (r *Reconciler) source(ctx context.Context, list *models.ListSnapshot, exclude, existing map[string]struct{}) ([]models.Candidate, error) {
	kinds := list.Filters.AllowedKinds()
	perKind := ((list.ItemLimit + len(kinds) - 1) / len(kinds)) * 2

	var out []models.Candidate
	var lastErr error
	for _, kind := range kinds {
		batch, err := r.sourcer.GetCandidates(ctx, sourcing.Request{
			Kind:             kind,
			Limit:            perKind,
			Mode:             list.Filters.Mode(),
			Filters:          list.Filters,
			ExcludeKeys:      exclude,
			ExistingListKeys: existing,
		})
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, batch...)
	}
	if len(out) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, sourcing.ErrSourcingUnavailable
	}
	return out, nil
}

// rank routes candidates through the fusion engine when the list asks
// for it, the base scorer otherwise.
func (r *Reconciler) rank(ctx context.Context, list *models.ListSnapshot, candidates []models.Candidate) []models.ScoredCandidate {
	req := scoring.Request{
		UserID:    list.UserID,
		Mode:      list.Mode,
		Filters:   list.Filters,
		ItemLimit: list.ItemLimit,
	}
	if list.Filters.FusionEnabled && r.fuser != nil {
		return r.fuser.Fuse(ctx, req, candidates)
	}
	return r.scorer.Score(ctx, req, candidates)
}

// watchedKeys collects the user's watched items as candidate keys.
// Provider failure degrades to an empty exclusion set for that kind.
func (r *Reconciler) watchedKeys(ctx context.Context, list *models.ListSnapshot) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, kind := range list.Filters.AllowedKinds() {
		ids, err := r.activity.WatchedIDs(ctx, list.UserID, kind)
		if err != nil {
			r.log.Warn().Err(err).Str("kind", string(kind)).
				Msg("Watched IDs unavailable, syncing without watch exclusion")
			continue
		}
		for id := range ids {
			c := models.Candidate{CatalogID: id, Kind: kind}
			keys[c.Key()] = struct{}{}
		}
	}
	return keys
}

// enrichArtwork fetches poster and backdrop for selected items that lack
// them and persists the refreshed rows back to the pool. Full syncs do
// this eagerly so list consumers never render empty art.
func (r *Reconciler) enrichArtwork(ctx context.Context, ranked []models.ScoredCandidate) {
	var refreshed []models.Candidate
	for i := range ranked {
		c := &ranked[i].Candidate
		if c.PosterURL != "" || c.CatalogID <= 0 {
			continue
		}
		detail, err := r.catalog.Detail(ctx, c.Kind, c.CatalogID)
		if err != nil {
			r.log.Debug().Err(err).Int64("catalog_id", c.CatalogID).Msg("Artwork fetch failed")
			continue
		}
		c.PosterURL = detail.PosterURL
		c.BackdropURL = detail.BackdropURL
		refreshed = append(refreshed, *c)
	}
	if len(refreshed) == 0 {
		return
	}
	if err := r.lists.UpsertCandidates(ctx, refreshed); err != nil {
		r.log.Warn().Err(err).Msg("Artwork persist-back failed")
	}
}

// rng returns the rotation RNG, seeded per list so rotation picks are
// reproducible but differ across lists.
func (r *Reconciler) rng(listID uuid.UUID) *rand.Rand {
	seed := r.cfg.Seed
	if seed == 0 {
		seed = 1
	}
	seed ^= int64(binary.BigEndian.Uint64(listID[:8]))
	return rand.New(rand.NewSource(seed))
}

func itemFromScored(sc *models.ScoredCandidate, at time.Time) models.ListItem {
	c := &sc.Candidate
	return models.ListItem{
		Key:         c.Key(),
		CatalogID:   c.CatalogID,
		ActivityID:  c.ActivityID,
		Kind:        c.Kind,
		Title:       c.Title,
		Score:       sc.Score,
		Explanation: sc.Rationale,
		AddedAt:     at,
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
