// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package fusion blends ScoringEngine component scores with external
// trending signals and recent-history textual affinity into a single
// weighted score.
package fusion

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
	"github.com/tomtom215/curatarr/internal/scoring"
)

// historyFetchLimit bounds the history pulled for keyword clustering.
const historyFetchLimit = 100

// oversample asks the scorer for this multiple of the item limit so
// fused re-ranking has room to promote trending items the base ranking
// would have cut.
const oversample = 3

// Scorer is the base scoring contract; *scoring.Engine satisfies it.
type Scorer interface {
	Score(ctx context.Context, req scoring.Request, candidates []models.Candidate) []models.ScoredCandidate
}

// Engine is the fusion blender.
type Engine struct {
	scorer   Scorer
	activity providers.Activity
	cfg      config.FusionConfig
	seed     int64

	log zerolog.Logger
}

// NewEngine wires the fusion engine. The seed feeds cluster
// initialization so passes are reproducible.
func NewEngine(scorer Scorer, activity providers.Activity, cfg config.FusionConfig, seed int64) *Engine {
	return &Engine{
		scorer:   scorer,
		activity: activity,
		cfg:      cfg,
		seed:     seed,
		log:      logging.Component("fusion"),
	}
}

// fusionOrder fixes component iteration so score accumulation is
// reproducible.
var fusionOrder = []string{
	models.ComponentGenreOverlap,
	models.ComponentFilterAlignment,
	models.ComponentQuality,
	models.ComponentPopularity,
	models.ComponentNovelty,
	models.ComponentFreshness,
	models.ComponentSemantic,
	models.ComponentMood,
	models.ComponentTrending,
	models.ComponentHistoryAffinity,
}

// baseWeights is the balanced fusion weight table.
var baseWeights = map[string]float64{
	models.ComponentGenreOverlap:    0.15,
	models.ComponentFilterAlignment: 0.05,
	models.ComponentQuality:         0.15,
	models.ComponentPopularity:      0.05,
	models.ComponentNovelty:         0.10,
	models.ComponentFreshness:       0.05,
	models.ComponentSemantic:        0.15,
	models.ComponentMood:            0.10,
	models.ComponentTrending:        0.12,
	models.ComponentHistoryAffinity: 0.08,
}

// Aggressiveness rescale groups: conservative favors proven quality and
// genre fit; aggressive favors novelty, trending and history affinity.
var (
	safeComponents = []string{models.ComponentQuality, models.ComponentGenreOverlap}
	boldComponents = []string{models.ComponentNovelty, models.ComponentTrending, models.ComponentHistoryAffinity}
)

// weightsFor builds the aggressiveness-adjusted weight table,
// renormalized to sum to 1.
func weightsFor(aggressiveness string) map[string]float64 {
	w := make(map[string]float64, len(baseWeights))
	for k, v := range baseWeights {
		w[k] = v
	}

	switch aggressiveness {
	case "conservative":
		scale(w, safeComponents, 1.4)
		scale(w, boldComponents, 0.6)
	case "aggressive":
		scale(w, boldComponents, 1.5)
		scale(w, safeComponents, 0.7)
	}

	var sum float64
	for _, v := range w {
		sum += v
	}
	for k := range w {
		w[k] /= sum
	}
	return w
}

func scale(w map[string]float64, keys []string, factor float64) {
	for _, k := range keys {
		w[k] *= factor
	}
}

// Fuse ranks candidates through the base scorer and blends in trending
// and history-affinity signals. With fusion disabled it returns the
// plain scorer output.
func (e *Engine) Fuse(ctx context.Context, req scoring.Request, candidates []models.Candidate) []models.ScoredCandidate {
	if !e.cfg.Enabled {
		return e.scorer.Score(ctx, req, candidates)
	}
	if req.ItemLimit <= 0 || len(candidates) == 0 {
		return nil
	}

	// Oversampled pure-relevance base pass; diversity is applied after
	// the fused re-rank.
	baseReq := req
	baseReq.ItemLimit = req.ItemLimit * oversample
	baseReq.DiversityLambda = 1.0
	scored := e.scorer.Score(ctx, baseReq, candidates)
	if len(scored) == 0 {
		return nil
	}

	trending := e.trendingScores(ctx, req.Filters.AllowedKinds())
	clusters := e.historyClusters(ctx, req.UserID, req.Filters.AllowedKinds())

	weights := weightsFor(e.cfg.Aggressiveness)
	for i := range scored {
		c := &scored[i].Candidate
		scored[i].Components[models.ComponentTrending] = trending[c.Key()]
		scored[i].Components[models.ComponentHistoryAffinity] = clusterAffinity(candidateTerms(c), clusters)

		var total float64
		for _, name := range fusionOrder {
			total += weights[name] * scored[i].Components[name]
		}
		scored[i].Score = total
		if scored[i].Components[models.ComponentTrending] > 0.5 {
			scored[i].Rationale = appendRationale(scored[i].Rationale, "trending right now")
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Candidate.Key() < scored[j].Candidate.Key()
	})

	// Diversity-aware final selection over the fused ranking.
	lambda := req.DiversityLambda
	if lambda <= 0 {
		lambda = e.cfg.DiversityLambda
	}
	return scoring.SelectMMR(scored, req.ItemLimit, lambda)
}

// trendingScores fetches the public trending feed per kind and converts
// it to a normalized score: a blend of rank inverse and watcher count
// relative to the feed maximum. Feed failure degrades to zero trending
// contribution.
func (e *Engine) trendingScores(ctx context.Context, kinds []models.MediaKind) map[string]float64 {
	scores := make(map[string]float64)
	for _, kind := range kinds {
		entries, err := e.activity.Trending(ctx, kind, e.cfg.TrendingLimit)
		if err != nil {
			e.log.Warn().Err(err).Str("kind", string(kind)).
				Msg("Trending feed unavailable, fusing without trending signal")
			continue
		}
		if len(entries) == 0 {
			continue
		}

		maxWatchers := 0
		for _, entry := range entries {
			if entry.Watchers > maxWatchers {
				maxWatchers = entry.Watchers
			}
		}
		span := float64(len(entries))
		for _, entry := range entries {
			rankInv := (span - float64(entry.Rank-1)) / span
			var relWatchers float64
			if maxWatchers > 0 {
				relWatchers = float64(entry.Watchers) / float64(maxWatchers)
			}
			c := models.Candidate{CatalogID: entry.CatalogID, Kind: entry.Kind}
			scores[c.Key()] = 0.5*rankInv + 0.5*relWatchers
		}
	}
	return scores
}

// historyClusters pulls recent history and clusters its keywords.
// History failure degrades to zero affinity contribution.
func (e *Engine) historyClusters(ctx context.Context, userID string, kinds []models.MediaKind) []keywordCluster {
	var entries []providers.HistoryEntry
	for _, kind := range kinds {
		history, err := e.activity.WatchHistory(ctx, userID, kind, historyFetchLimit)
		if err != nil {
			e.log.Warn().Err(err).Str("user_id", userID).Str("kind", string(kind)).
				Msg("History unavailable, fusing without affinity signal")
			continue
		}
		entries = append(entries, history...)
	}
	return clusterHistory(entries, e.cfg.KeywordClusters, e.seed)
}

// candidateTerms reduces a candidate to the term set matched against
// taste clusters.
func candidateTerms(c *models.Candidate) map[string]struct{} {
	terms := make(map[string]struct{}, len(c.Keywords)+len(c.Genres))
	for _, k := range c.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			terms[k] = struct{}{}
		}
	}
	for _, g := range c.Genres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			terms[g] = struct{}{}
		}
	}
	return terms
}

func appendRationale(existing, extra string) string {
	if existing == "" {
		return strings.ToUpper(extra[:1]) + extra[1:]
	}
	return existing + "; " + extra
}
