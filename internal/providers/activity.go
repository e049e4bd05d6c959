// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package providers

import (
	"context"
	"time"

	"github.com/tomtom215/curatarr/internal/models"
)

// Rating is a user's thumbs verdict on an item.
type Rating int

const (
	ThumbsDown Rating = -1
	Unrated    Rating = 0
	ThumbsUp   Rating = 1
)

// HistoryEntry is one watched item from the activity provider.
type HistoryEntry struct {
	CatalogID  int64
	ActivityID int64
	Kind       models.MediaKind
	Title      string
	Genres     []string
	Keywords   []string
	WatchedAt  time.Time
}

// TrendingEntry is one row of the public trending feed.
type TrendingEntry struct {
	CatalogID int64
	Kind      models.MediaKind
	Rank      int
	Watchers  int
}

// MirrorItem is one entry of an externally mirrored list.
type MirrorItem struct {
	ActivityID int64
	CatalogID  int64
	Kind       models.MediaKind
}

// Activity is the external activity provider contract: identity
// resolution, watch history, ratings, trending, and mirrored list
// maintenance. Implementations must surface the package error taxonomy.
type Activity interface {
	// ResolveID maps a catalog ID to the provider's own ID.
	// A zero return with nil error means the item is unknown upstream;
	// callers must keep the field unset rather than fabricate one.
	ResolveID(ctx context.Context, kind models.MediaKind, catalogID int64) (int64, error)

	// WatchHistory returns the user's most recent watches, newest first.
	WatchHistory(ctx context.Context, userID string, kind models.MediaKind, limit int) ([]HistoryEntry, error)

	// WatchedIDs returns catalog IDs the user has watched, with times.
	WatchedIDs(ctx context.Context, userID string, kind models.MediaKind) (map[int64]time.Time, error)

	// Ratings returns the user's thumbs verdicts keyed by catalog ID.
	Ratings(ctx context.Context, userID string, kind models.MediaKind) (map[int64]Rating, error)

	// Trending returns the public trending feed for a kind.
	Trending(ctx context.Context, kind models.MediaKind, limit int) ([]TrendingEntry, error)

	// MirrorItems returns the actual current contents of a mirror list.
	MirrorItems(ctx context.Context, mirrorID string) ([]MirrorItem, error)

	// AddMirrorItems and RemoveMirrorItems apply a diff to a mirror
	// list. Callers never replace a mirror wholesale.
	AddMirrorItems(ctx context.Context, mirrorID string, items []MirrorItem) error
	RemoveMirrorItems(ctx context.Context, mirrorID string, items []MirrorItem) error
}
