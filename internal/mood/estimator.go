// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package mood derives a per-user taste vector over a fixed set of mood
// axes from recent watch activity, with a list-derived fallback for
// users without history and a cached neutral vector as the last resort.
package mood

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatarr/internal/cache"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
)

// Recency buckets for watch-history contributions.
const (
	recentWeight = 1.0 // watched within 7 days
	midWeight    = 0.7 // within 30 days
	oldWeight    = 0.4 // older
)

// neutralTTL caches the last-resort neutral vector briefly so a user
// with no signal at all does not trigger recomputation on every pass.
const neutralTTL = 15 * time.Minute

// ListSource yields a user's lists for the no-history fallback.
type ListSource interface {
	ListsForUser(ctx context.Context, userID string) ([]models.ListSnapshot, error)
}

// Estimator computes and caches per-user mood vectors.
type Estimator struct {
	activity providers.Activity
	lists    ListSource
	cache    cache.Cacher
	cfg      config.MoodConfig

	moodTTL     time.Duration
	fallbackTTL time.Duration

	log zerolog.Logger
	now func() time.Time
}

// NewEstimator wires the estimator. The cache is shared with the sync
// markers; keys are namespaced with a "mood:" prefix.
func NewEstimator(activity providers.Activity, lists ListSource, c cache.Cacher, cfg config.MoodConfig, cacheCfg config.CacheConfig) *Estimator {
	return &Estimator{
		activity:    activity,
		lists:       lists,
		cache:       c,
		cfg:         cfg,
		moodTTL:     cacheCfg.MoodTTL,
		fallbackTTL: cacheCfg.FallbackMoodTTL,
		log:         logging.Component("mood"),
		now:         time.Now,
	}
}

func moodKey(userID string) string {
	return "mood:" + userID
}

// EnsureMood returns the user's mood vector, computing and caching it if
// absent. It never returns an error: every failure path degrades to a
// weaker signal, ending at the neutral vector.
func (e *Estimator) EnsureMood(ctx context.Context, userID string) models.MoodVector {
	if cached, ok := e.cache.Get(moodKey(userID)); ok {
		if v, ok := cached.(models.MoodVector); ok {
			return v.Clone()
		}
	}

	if v := e.fromHistory(ctx, userID); !v.IsZero() {
		e.cache.SetWithTTL(moodKey(userID), v.Clone(), e.moodTTL)
		return v
	}

	if v := e.fromLists(ctx, userID); !v.IsZero() {
		e.log.Debug().Str("user_id", userID).Msg("Using list-derived mood fallback")
		e.cache.SetWithTTL(moodKey(userID), v.Clone(), e.fallbackTTL)
		return v
	}

	neutral := models.NewMoodVector()
	e.cache.SetWithTTL(moodKey(userID), neutral.Clone(), neutralTTL)
	return neutral
}

// Invalidate drops the cached vector, forcing recomputation on the next
// EnsureMood call.
func (e *Estimator) Invalidate(userID string) {
	e.cache.Delete(moodKey(userID))
}

// fromHistory aggregates mood contributions from recent watch history,
// weighted by recency bucket and a gentle position decay.
func (e *Estimator) fromHistory(ctx context.Context, userID string) models.MoodVector {
	now := e.now()
	cutoff := now.AddDate(0, 0, -e.cfg.HistoryDays)

	var history []providers.HistoryEntry
	for _, kind := range []models.MediaKind{models.MediaMovie, models.MediaShow} {
		entries, err := e.activity.WatchHistory(ctx, userID, kind, e.cfg.HistoryLimit)
		if err != nil {
			e.log.Warn().Err(err).Str("user_id", userID).Str("kind", string(kind)).
				Msg("Watch history unavailable for mood estimation")
			continue
		}
		history = append(history, entries...)
	}

	v := models.NewMoodVector()
	count := 0
	for i := range history {
		entry := &history[i]
		if entry.WatchedAt.Before(cutoff) {
			continue
		}
		if count >= e.cfg.HistoryLimit {
			break
		}

		weight := recencyWeight(now.Sub(entry.WatchedAt)) * positionDecay(count)
		v.Add(Derive(entry.Genres, entry.Keywords), weight)
		count++
	}

	v.Normalize()
	return v
}

func recencyWeight(age time.Duration) float64 {
	switch {
	case age <= 7*24*time.Hour:
		return recentWeight
	case age <= 30*24*time.Hour:
		return midWeight
	default:
		return oldWeight
	}
}

// positionDecay discounts items further down the history so a binge of
// one genre months of entries deep does not dominate.
func positionDecay(pos int) float64 {
	return 1.0 / (1.0 + 0.01*float64(pos))
}

// fromLists derives a fallback vector from the user's list genre filters
// (weighted by list age) and mood keywords appearing in list names and
// anchor texts.
func (e *Estimator) fromLists(ctx context.Context, userID string) models.MoodVector {
	v := models.NewMoodVector()

	lists, err := e.lists.ListsForUser(ctx, userID)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("List lookup failed for mood fallback")
		return v
	}

	now := e.now()
	for i := range lists {
		list := &lists[i]
		weight := listAgeWeight(now.Sub(list.CreatedAt))
		v.Add(Derive(list.Filters.Genres, list.Filters.Keywords), weight)
		matchTitleKeywords(v, list.Name, weight)
		if list.Filters.AnchorText != "" {
			matchTitleKeywords(v, list.Filters.AnchorText, weight)
		}
	}

	v.Normalize()
	return v
}

// listAgeWeight favors recently created lists as the stronger signal of
// current taste.
func listAgeWeight(age time.Duration) float64 {
	switch {
	case age <= 30*24*time.Hour:
		return 1.0
	case age <= 180*24*time.Hour:
		return 0.7
	default:
		return 0.4
	}
}
