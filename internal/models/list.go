// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package models

import (
	"time"

	"github.com/google/uuid"
)

// ScoringMode selects the scoring strategy for a list.
type ScoringMode string

const (
	// ScoringDiscovery blends only cheap features and must work with zero
	// watch history.
	ScoringDiscovery ScoringMode = "discovery"
	// ScoringTraditional is the default profile-weighted mode.
	ScoringTraditional ScoringMode = "traditional"
	// ScoringSmartlist, ScoringMood, ScoringFusion, ScoringTheme and
	// ScoringChat are the advanced modes that add semantic and mood terms.
	ScoringSmartlist ScoringMode = "smartlist"
	ScoringMood      ScoringMode = "mood"
	ScoringFusion    ScoringMode = "fusion"
	ScoringTheme     ScoringMode = "theme"
	ScoringChat      ScoringMode = "chat"
)

// Advanced reports whether the mode uses the semantic and mood terms.
func (m ScoringMode) Advanced() bool {
	switch m {
	case ScoringSmartlist, ScoringMood, ScoringFusion, ScoringTheme, ScoringChat:
		return true
	default:
		return false
	}
}

// SyncType is the reconciler's per-pass decision for a list.
type SyncType string

const (
	SyncFull        SyncType = "full"
	SyncIncremental SyncType = "incremental"
	SyncSkip        SyncType = "skip"
)

// SyncStatus is the persisted state of a list's sync lifecycle.
type SyncStatus string

const (
	StatusPending      SyncStatus = "pending"
	StatusSyncing      SyncStatus = "syncing"
	StatusComplete     SyncStatus = "complete"
	StatusSkipped      SyncStatus = "skipped"
	StatusNoCandidates SyncStatus = "no_candidates"
	StatusError        SyncStatus = "error"
)

// GenreMode controls how multiple genre filters combine.
type GenreMode string

const (
	// GenreAny matches candidates sharing at least one filter genre.
	GenreAny GenreMode = "any"
	// GenreAll requires every filter genre to be present.
	GenreAll GenreMode = "all"
)

// ListFilters is a list's filter configuration, stored as a JSON blob on
// the list row.
type ListFilters struct {
	Genres    []string  `json:"genres,omitempty"`
	GenreMode GenreMode `json:"genre_mode,omitempty"`
	Languages []string  `json:"languages,omitempty"`
	YearMin   int       `json:"year_min,omitempty"`
	YearMax   int       `json:"year_max,omitempty"`
	MinRating float64   `json:"min_rating,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`

	// Kinds lists the media kinds the list accepts. Empty means movie only.
	Kinds []MediaKind `json:"kinds,omitempty"`

	DiscoveryMode DiscoveryMode `json:"discovery_mode,omitempty"`

	// FusionEnabled routes ranking through the FusionEngine.
	FusionEnabled bool `json:"fusion_enabled,omitempty"`

	// ExcludeActors and ExcludeStudios are hard exclusions.
	ExcludeActors  []string `json:"exclude_actors,omitempty"`
	ExcludeStudios []string `json:"exclude_studios,omitempty"`

	// AllowAdult includes adult-flagged candidates. Off by default.
	AllowAdult bool `json:"allow_adult,omitempty"`

	// AnchorText is the profile text advanced modes score against
	// (theme description, chat prompt, smartlist seed).
	AnchorText string `json:"anchor_text,omitempty"`
}

// AllowedKinds returns the configured kinds, defaulting to movies.
func (f *ListFilters) AllowedKinds() []MediaKind {
	if len(f.Kinds) == 0 {
		return []MediaKind{MediaMovie}
	}
	return f.Kinds
}

// AllowsKind reports whether the given kind is permitted on the list.
func (f *ListFilters) AllowsKind(kind MediaKind) bool {
	for _, k := range f.AllowedKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Mode returns the discovery mode, defaulting to balanced.
func (f *ListFilters) Mode() DiscoveryMode {
	if f.DiscoveryMode == "" {
		return DiscoveryBalanced
	}
	return f.DiscoveryMode
}

// ListItem is one persisted entry of a list.
type ListItem struct {
	// Key is the item's stable primary identifier (Candidate.Key form).
	Key string `json:"key"`

	CatalogID  int64     `json:"catalog_id"`
	ActivityID *int64    `json:"activity_id,omitempty"`
	Kind       MediaKind `json:"kind"`
	Title      string    `json:"title"`

	// Score is the final score from the pass that selected the item.
	Score float64 `json:"score"`

	Watched   bool       `json:"watched"`
	WatchedAt *time.Time `json:"watched_at,omitempty"`

	// Explanation is the rationale from the selecting pass.
	Explanation string `json:"explanation,omitempty"`

	AddedAt time.Time `json:"added_at"`
}

// ListSnapshot is a persisted list with its filter configuration, sync
// bookkeeping and current item set.
//
// Invariants: len(Items) <= ItemLimit; every item's Kind is allowed by
// Filters.
type ListSnapshot struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"user_id"`
	Name   string    `json:"name"`

	// Mode is the scoring mode for the list.
	Mode ScoringMode `json:"mode"`

	Filters   ListFilters `json:"filters"`
	ItemLimit int         `json:"item_limit"`

	// SyncInterval is the minimum gap between incremental syncs.
	SyncInterval time.Duration `json:"sync_interval"`

	// FullSyncDays is the number of days between full rebuilds.
	FullSyncDays int `json:"full_sync_days"`

	// MirrorID identifies the external mirror list, empty when unmirrored.
	MirrorID string `json:"mirror_id,omitempty"`

	Status    SyncStatus `json:"status"`
	LastError string     `json:"last_error,omitempty"`

	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastFullSyncAt *time.Time `json:"last_full_sync_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Items []ListItem `json:"items,omitempty"`
}

// ItemKeys returns the set of item keys currently on the list.
func (l *ListSnapshot) ItemKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(l.Items))
	for i := range l.Items {
		keys[l.Items[i].Key] = struct{}{}
	}
	return keys
}
