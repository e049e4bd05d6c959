// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package models defines the core domain types shared across Curatarr:
// candidates, scored candidates, mood vectors, lists, and their filters.
package models

import (
	"fmt"
	"time"
)

// MediaKind identifies the candidate media type.
type MediaKind string

const (
	// MediaMovie is a feature film.
	MediaMovie MediaKind = "movie"
	// MediaShow is an episodic series.
	MediaShow MediaKind = "show"
)

// Valid reports whether the media kind is a known value.
func (k MediaKind) Valid() bool {
	return k == MediaMovie || k == MediaShow
}

// DiscoveryMode controls candidate-pool ordering and fallback breadth.
type DiscoveryMode string

const (
	// DiscoveryPopular favors mainstream, widely watched titles.
	DiscoveryPopular DiscoveryMode = "popular"
	// DiscoveryObscure favors low-popularity, rarely surfaced titles.
	DiscoveryObscure DiscoveryMode = "obscure"
	// DiscoveryBalanced blends freshness and mainstream appeal.
	DiscoveryBalanced DiscoveryMode = "balanced"
	// DiscoveryUltra is obscure mode with the widest external fallback.
	DiscoveryUltra DiscoveryMode = "ultra"
)

// Candidate is a movie or show eligible for recommendation, sourced from
// the local pool or an external catalog.
//
// Candidates are unique per (CatalogID, Kind) and are never hard-deleted:
// retirement flips the Active flag so external mirrors and historical
// scoring can still reference the row.
type Candidate struct {
	// CatalogID is the external catalog identifier (always set).
	CatalogID int64 `json:"catalog_id"`

	// ActivityID is the external activity-provider identifier.
	// Nil until resolved; never fabricated.
	ActivityID *int64 `json:"activity_id,omitempty"`

	// Kind is the media type (movie or show).
	Kind MediaKind `json:"kind"`

	Title    string `json:"title"`
	Year     int    `json:"year,omitempty"`
	Language string `json:"language,omitempty"`

	// Genres holds normalized genre names (see NormalizeGenre).
	Genres []string `json:"genres,omitempty"`

	// Keywords holds descriptive keywords from the catalog provider.
	Keywords []string `json:"keywords,omitempty"`

	// Overview is the descriptive text.
	Overview string `json:"overview,omitempty"`

	// Popularity is the raw provider popularity signal.
	Popularity float64 `json:"popularity,omitempty"`

	// Rating is the provider rating on a 0-10 scale.
	Rating float64 `json:"rating,omitempty"`

	// VoteCount is the number of votes behind Rating.
	VoteCount int `json:"vote_count,omitempty"`

	// Obscurity, Mainstream and Freshness are precomputed pool-ordering
	// scores in [0,1], refreshed whenever the row is refreshed.
	Obscurity  float64 `json:"obscurity,omitempty"`
	Mainstream float64 `json:"mainstream,omitempty"`
	Freshness  float64 `json:"freshness,omitempty"`

	PosterURL   string `json:"poster_url,omitempty"`
	BackdropURL string `json:"backdrop_url,omitempty"`

	Adult  bool `json:"adult,omitempty"`
	Active bool `json:"active"`

	// LastRefreshed is when metadata was last fetched from the catalog.
	LastRefreshed time.Time `json:"last_refreshed,omitempty"`
}

// Key returns the stable primary identifier used for deduplication and
// list-item identity. The catalog ID is preferred; an unresolved item is
// keyed by its activity ID or a synthetic title key, never a fabricated
// numeric ID.
func (c *Candidate) Key() string {
	switch {
	case c.CatalogID > 0:
		return fmt.Sprintf("catalog:%d:%s", c.CatalogID, c.Kind)
	case c.ActivityID != nil && *c.ActivityID > 0:
		return fmt.Sprintf("activity:%d:%s", *c.ActivityID, c.Kind)
	default:
		return fmt.Sprintf("title:%s:%d:%s", c.Title, c.Year, c.Kind)
	}
}

// HasMetadata reports whether the candidate carries the enriched fields
// (genres and overview) required by strict post-enrichment filters.
func (c *Candidate) HasMetadata() bool {
	return len(c.Genres) > 0 && c.Overview != ""
}

// ComposedText returns the text blob used for semantic similarity:
// title, overview, genres and keywords joined into one document.
func (c *Candidate) ComposedText() string {
	text := c.Title + " " + c.Overview
	for _, g := range c.Genres {
		text += " " + g
	}
	for _, k := range c.Keywords {
		text += " " + k
	}
	return text
}

// ScoreComponent names for the ScoredCandidate breakdown. FusionEngine
// reuses these keys when blending external signals.
const (
	ComponentGenreOverlap    = "genre_overlap"
	ComponentFilterAlignment = "filter_alignment"
	ComponentQuality         = "quality"
	ComponentPopularity      = "popularity"
	ComponentNovelty         = "novelty"
	ComponentFreshness       = "freshness"
	ComponentSemantic        = "semantic"
	ComponentMood            = "mood"
	ComponentTrending        = "trending"
	ComponentHistoryAffinity = "history_affinity"
)

// ScoredCandidate is a Candidate plus its score breakdown. It is a
// transient value produced per scoring pass and never persisted beyond
// the selected subset.
type ScoredCandidate struct {
	Candidate Candidate `json:"candidate"`

	// Score is the final combined score.
	Score float64 `json:"score"`

	// Components is the per-component contribution breakdown, keyed by
	// the Component* constants.
	Components map[string]float64 `json:"components,omitempty"`

	// Rationale is a short natural-language explanation.
	Rationale string `json:"rationale,omitempty"`
}
