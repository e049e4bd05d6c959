// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package scoring computes composite relevance scores for candidates and
// performs diversity-aware final selection.
//
// Scoring is deterministic: identical candidates, filters and mood
// vector produce identical ranked output. Provider failures degrade the
// profile (zero history is a supported state), never fail a pass.
package scoring

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/mood"
	"github.com/tomtom215/curatarr/internal/providers"
)

// historyFetchLimit bounds the watch history pulled for profile building.
const historyFetchLimit = 200

// preferredFromMood is how many genres the mood-to-genre mapping
// contributes when the user has no positively rated history.
const preferredFromMood = 5

// MoodSource yields the user's current taste vector.
type MoodSource interface {
	EnsureMood(ctx context.Context, userID string) models.MoodVector
}

// Engine scores candidate batches for one list pass.
type Engine struct {
	activity providers.Activity
	moods    MoodSource
	cfg      config.ScoringConfig

	log zerolog.Logger
	now func() time.Time
}

// NewEngine wires the scoring engine.
func NewEngine(activity providers.Activity, moods MoodSource, cfg config.ScoringConfig) *Engine {
	return &Engine{
		activity: activity,
		moods:    moods,
		cfg:      cfg,
		log:      logging.Component("scoring"),
		now:      time.Now,
	}
}

// Request parameterizes one scoring pass.
type Request struct {
	UserID    string
	Mode      models.ScoringMode
	Filters   models.ListFilters
	ItemLimit int

	// DiversityLambda overrides the configured MMR lambda when > 0.
	DiversityLambda float64
}

func (r *Request) lambda(fallback float64) float64 {
	if r.DiversityLambda > 0 {
		return r.DiversityLambda
	}
	return fallback
}

// componentOrder fixes the iteration order over score components so
// float accumulation is reproducible run to run.
var componentOrder = []string{
	models.ComponentGenreOverlap,
	models.ComponentFilterAlignment,
	models.ComponentQuality,
	models.ComponentPopularity,
	models.ComponentNovelty,
	models.ComponentFreshness,
	models.ComponentSemantic,
	models.ComponentMood,
}

// modeWeights are the per-list-type component weight tables. Discovery
// deliberately carries no genre-overlap term so it ranks correctly for
// users with zero watch history.
var modeWeights = map[models.ScoringMode]map[string]float64{
	models.ScoringDiscovery: {
		models.ComponentQuality:         0.35,
		models.ComponentPopularity:      0.25,
		models.ComponentNovelty:         0.20,
		models.ComponentFreshness:       0.10,
		models.ComponentFilterAlignment: 0.10,
	},
	models.ScoringTraditional: {
		models.ComponentGenreOverlap:    0.35,
		models.ComponentQuality:         0.25,
		models.ComponentPopularity:      0.15,
		models.ComponentFilterAlignment: 0.15,
		models.ComponentFreshness:       0.10,
	},
	models.ScoringSmartlist: {
		models.ComponentSemantic:     0.30,
		models.ComponentGenreOverlap: 0.20,
		models.ComponentMood:         0.15,
		models.ComponentQuality:      0.15,
		models.ComponentNovelty:      0.10,
		models.ComponentFreshness:    0.10,
	},
	models.ScoringMood: {
		models.ComponentMood:         0.35,
		models.ComponentGenreOverlap: 0.20,
		models.ComponentSemantic:     0.15,
		models.ComponentQuality:      0.15,
		models.ComponentNovelty:      0.075,
		models.ComponentFreshness:    0.075,
	},
	models.ScoringFusion: {
		models.ComponentSemantic:     0.30,
		models.ComponentGenreOverlap: 0.20,
		models.ComponentMood:         0.15,
		models.ComponentQuality:      0.15,
		models.ComponentNovelty:      0.10,
		models.ComponentFreshness:    0.10,
	},
	models.ScoringTheme: {
		models.ComponentSemantic:     0.40,
		models.ComponentGenreOverlap: 0.15,
		models.ComponentMood:         0.15,
		models.ComponentQuality:      0.15,
		models.ComponentNovelty:      0.075,
		models.ComponentFreshness:    0.075,
	},
	models.ScoringChat: {
		models.ComponentSemantic:     0.45,
		models.ComponentMood:         0.15,
		models.ComponentGenreOverlap: 0.10,
		models.ComponentQuality:      0.15,
		models.ComponentNovelty:      0.075,
		models.ComponentFreshness:    0.075,
	},
}

func weightsFor(m models.ScoringMode) map[string]float64 {
	if w, ok := modeWeights[m]; ok {
		return w
	}
	return modeWeights[models.ScoringTraditional]
}

// profile is the per-user signal bundle a scoring pass works from.
type profile struct {
	preferred   map[string]struct{}
	ratings     map[models.MediaKind]map[int64]providers.Rating
	historyText string
}

func (p *profile) rating(kind models.MediaKind, catalogID int64) providers.Rating {
	if byID, ok := p.ratings[kind]; ok {
		return byID[catalogID]
	}
	return providers.Unrated
}

// buildProfile assembles the user's preferred genres, ratings and
// history text. Provider failures are logged and leave the affected
// signal empty; a zero-history profile is valid.
func (e *Engine) buildProfile(ctx context.Context, userID string, kinds []models.MediaKind) *profile {
	p := &profile{
		preferred: make(map[string]struct{}),
		ratings:   make(map[models.MediaKind]map[int64]providers.Rating),
	}

	var historyParts []string
	for _, kind := range kinds {
		ratings, err := e.activity.Ratings(ctx, userID, kind)
		if err != nil {
			e.log.Warn().Err(err).Str("user_id", userID).Str("kind", string(kind)).
				Msg("Ratings unavailable for scoring profile")
		} else {
			p.ratings[kind] = ratings
		}

		history, err := e.activity.WatchHistory(ctx, userID, kind, historyFetchLimit)
		if err != nil {
			e.log.Warn().Err(err).Str("user_id", userID).Str("kind", string(kind)).
				Msg("Watch history unavailable for scoring profile")
			continue
		}
		for i := range history {
			entry := &history[i]
			historyParts = append(historyParts, entry.Title)
			historyParts = append(historyParts, entry.Keywords...)
			if p.ratings[kind][entry.CatalogID] == providers.ThumbsUp {
				for _, g := range models.NormalizeGenres(entry.Genres) {
					p.preferred[g] = struct{}{}
				}
			}
		}
	}

	p.historyText = strings.Join(historyParts, " ")
	return p
}

// Score ranks candidates for a list and returns at most req.ItemLimit
// scored results with component breakdowns and rationales.
func (e *Engine) Score(ctx context.Context, req Request, candidates []models.Candidate) []models.ScoredCandidate {
	if req.ItemLimit <= 0 || len(candidates) == 0 {
		return nil
	}

	// Step 1: hard filters.
	eligible := make([]models.Candidate, 0, len(candidates))
	for i := range candidates {
		if passesHardFilters(&candidates[i], &req.Filters) {
			eligible = append(eligible, candidates[i])
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	userMood := e.moods.EnsureMood(ctx, req.UserID)
	prof := e.buildProfile(ctx, req.UserID, req.Filters.AllowedKinds())
	if len(prof.preferred) == 0 {
		for _, g := range mood.GenresFor(userMood, preferredFromMood) {
			prof.preferred[g] = struct{}{}
		}
	}

	// Step 2: cheap features for every eligible candidate.
	scored := make([]models.ScoredCandidate, 0, len(eligible))
	for i := range eligible {
		c := eligible[i]
		components := map[string]float64{
			models.ComponentGenreOverlap:    genreOverlap(c.Genres, prof.preferred),
			models.ComponentFilterAlignment: filterAlignment(&c, &req.Filters),
			models.ComponentQuality:         qualityScore(&c),
			models.ComponentPopularity:      popularityScore(&c),
			models.ComponentNovelty:         clamp01(c.Obscurity),
			models.ComponentFreshness:       clamp01(c.Freshness),
		}
		scored = append(scored, models.ScoredCandidate{Candidate: c, Components: components})
	}

	// Step 3: bound expensive work to the top K by a fast composite.
	for i := range scored {
		scored[i].Score = fastComposite(scored[i].Components)
	}
	sortByScore(scored)
	if len(scored) > e.cfg.TopK {
		scored = scored[:e.cfg.TopK]
	}

	// Steps 4-5: mode-specific scoring.
	weights := weightsFor(req.Mode)
	if req.Mode.Advanced() {
		anchor := req.Filters.AnchorText
		if anchor == "" {
			anchor = prof.historyText
		}
		anchorVec := termVector(anchor)
		contextMood := mood.ContextAdjust(userMood, e.now())

		for i := range scored {
			c := &scored[i].Candidate
			scored[i].Components[models.ComponentSemantic] = cosineTF(anchorVec, termVector(c.ComposedText()))
			scored[i].Components[models.ComponentMood] = contextMood.Cosine(mood.CandidateVector(c))
		}
	}

	for i := range scored {
		var total float64
		for _, name := range componentOrder {
			total += weights[name] * scored[i].Components[name]
		}

		// Step 6: prior thumbs verdicts multiply the whole score.
		switch prof.rating(scored[i].Candidate.Kind, scored[i].Candidate.CatalogID) {
		case providers.ThumbsUp:
			total *= e.cfg.ThumbsUpBoost
		case providers.ThumbsDown:
			total *= e.cfg.ThumbsDownPenalty
		}

		scored[i].Score = total
		scored[i].Rationale = rationale(scored[i].Components, weights)
	}
	sortByScore(scored)

	// Step 7: diversity-aware final selection.
	return SelectMMR(scored, req.ItemLimit, req.lambda(e.cfg.DiversityLambda))
}

// fastComposite is the equal-weight cheap blend used only for the top-K
// pre-cut.
func fastComposite(components map[string]float64) float64 {
	return (components[models.ComponentGenreOverlap] +
		components[models.ComponentQuality] +
		components[models.ComponentPopularity] +
		components[models.ComponentFilterAlignment]) / 4
}

// sortByScore orders by score descending with the candidate key as a
// deterministic tie-break.
func sortByScore(items []models.ScoredCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Candidate.Key() < items[j].Candidate.Key()
	})
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// rationalePhrases maps components to user-facing fragments.
var rationalePhrases = map[string]string{
	models.ComponentGenreOverlap:    "matches your favorite genres",
	models.ComponentFilterAlignment: "fits the list filters well",
	models.ComponentQuality:         "highly rated",
	models.ComponentPopularity:      "widely watched",
	models.ComponentNovelty:         "a deeper cut",
	models.ComponentFreshness:       "recently released",
	models.ComponentSemantic:        "close to the list theme",
	models.ComponentMood:            "fits your current mood",
}

// rationale names the two strongest weighted contributions.
func rationale(components, weights map[string]float64) string {
	type contrib struct {
		name  string
		value float64
	}
	ranked := make([]contrib, 0, len(componentOrder))
	for _, name := range componentOrder {
		if v := weights[name] * components[name]; v > 0 {
			ranked = append(ranked, contrib{name, v})
		}
	}
	if len(ranked) == 0 {
		return ""
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].value > ranked[j].value })

	parts := []string{rationalePhrases[ranked[0].name]}
	if len(ranked) > 1 {
		parts = append(parts, rationalePhrases[ranked[1].name])
	}
	s := strings.Join(parts, " and ")
	return strings.ToUpper(s[:1]) + s[1:]
}
