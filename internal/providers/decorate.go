// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package providers

import (
	"context"
	"time"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
)

// withTimeout derives a per-attempt deadline; zero disables it.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// TimeoutCatalog applies the configured per-call deadlines: the bulk
// timeout for discover/search, the shorter detail timeout for per-item
// fetches. Sits innermost so every retry attempt gets a fresh deadline.
type TimeoutCatalog struct {
	inner Catalog
	cfg   config.ProviderConfig
}

// NewTimeoutCatalog wraps the catalog client.
func NewTimeoutCatalog(inner Catalog, cfg config.ProviderConfig) *TimeoutCatalog {
	return &TimeoutCatalog{inner: inner, cfg: cfg}
}

func (c *TimeoutCatalog) Discover(ctx context.Context, q DiscoverQuery) ([]models.Candidate, error) {
	ctx, cancel := withTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.inner.Discover(ctx, q)
}

func (c *TimeoutCatalog) Search(ctx context.Context, kind models.MediaKind, query string, page int) ([]models.Candidate, error) {
	ctx, cancel := withTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.inner.Search(ctx, kind, query, page)
}

func (c *TimeoutCatalog) Detail(ctx context.Context, kind models.MediaKind, catalogID int64) (*models.Candidate, error) {
	ctx, cancel := withTimeout(ctx, c.cfg.DetailTimeout)
	defer cancel()
	return c.inner.Detail(ctx, kind, catalogID)
}

// TimeoutActivity applies the configured per-call deadlines to activity
// calls; per-item id resolution uses the shorter detail timeout.
type TimeoutActivity struct {
	inner Activity
	cfg   config.ProviderConfig
}

// NewTimeoutActivity wraps the activity client.
func NewTimeoutActivity(inner Activity, cfg config.ProviderConfig) *TimeoutActivity {
	return &TimeoutActivity{inner: inner, cfg: cfg}
}

func (a *TimeoutActivity) ResolveID(ctx context.Context, kind models.MediaKind, catalogID int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, a.cfg.DetailTimeout)
	defer cancel()
	return a.inner.ResolveID(ctx, kind, catalogID)
}

func (a *TimeoutActivity) WatchHistory(ctx context.Context, userID string, kind models.MediaKind, limit int) ([]HistoryEntry, error) {
	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.inner.WatchHistory(ctx, userID, kind, limit)
}

func (a *TimeoutActivity) WatchedIDs(ctx context.Context, userID string, kind models.MediaKind) (map[int64]time.Time, error) {
	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.inner.WatchedIDs(ctx, userID, kind)
}

func (a *TimeoutActivity) Ratings(ctx context.Context, userID string, kind models.MediaKind) (map[int64]Rating, error) {
	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.inner.Ratings(ctx, userID, kind)
}

func (a *TimeoutActivity) Trending(ctx context.Context, kind models.MediaKind, limit int) ([]TrendingEntry, error) {
	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.inner.Trending(ctx, kind, limit)
}

func (a *TimeoutActivity) MirrorItems(ctx context.Context, mirrorID string) ([]MirrorItem, error) {
	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.inner.MirrorItems(ctx, mirrorID)
}

func (a *TimeoutActivity) AddMirrorItems(ctx context.Context, mirrorID string, items []MirrorItem) error {
	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.inner.AddMirrorItems(ctx, mirrorID, items)
}

func (a *TimeoutActivity) RemoveMirrorItems(ctx context.Context, mirrorID string, items []MirrorItem) error {
	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.inner.RemoveMirrorItems(ctx, mirrorID, items)
}

// RetryCatalog wraps a catalog with the shared retry policy.
type RetryCatalog struct {
	inner   Catalog
	retrier *Retrier
}

// NewRetryCatalog wraps the catalog client.
func NewRetryCatalog(inner Catalog, retrier *Retrier) *RetryCatalog {
	return &RetryCatalog{inner: inner, retrier: retrier}
}

func (c *RetryCatalog) Discover(ctx context.Context, q DiscoverQuery) ([]models.Candidate, error) {
	var out []models.Candidate
	err := c.retrier.Do(ctx, "catalog", "catalog:discover", "discover", func(ctx context.Context) error {
		var err error
		out, err = c.inner.Discover(ctx, q)
		return err
	})
	return out, err
}

func (c *RetryCatalog) Search(ctx context.Context, kind models.MediaKind, query string, page int) ([]models.Candidate, error) {
	var out []models.Candidate
	err := c.retrier.Do(ctx, "catalog", "catalog:search", "search", func(ctx context.Context) error {
		var err error
		out, err = c.inner.Search(ctx, kind, query, page)
		return err
	})
	return out, err
}

func (c *RetryCatalog) Detail(ctx context.Context, kind models.MediaKind, catalogID int64) (*models.Candidate, error) {
	var out *models.Candidate
	err := c.retrier.Do(ctx, "catalog", "catalog:detail", "detail", func(ctx context.Context) error {
		var err error
		out, err = c.inner.Detail(ctx, kind, catalogID)
		return err
	})
	return out, err
}

// RetryActivity wraps an activity provider with the shared retry policy.
// Per-user calls key failure memory by user so one broken account does
// not cool down the whole provider.
type RetryActivity struct {
	inner   Activity
	retrier *Retrier
}

// NewRetryActivity wraps the activity client.
func NewRetryActivity(inner Activity, retrier *Retrier) *RetryActivity {
	return &RetryActivity{inner: inner, retrier: retrier}
}

func (a *RetryActivity) do(ctx context.Context, key, op string, fn func(ctx context.Context) error) error {
	return a.retrier.Do(ctx, "activity", key, op, fn)
}

func (a *RetryActivity) ResolveID(ctx context.Context, kind models.MediaKind, catalogID int64) (int64, error) {
	var out int64
	err := a.do(ctx, "activity:resolve", "resolve_id", func(ctx context.Context) error {
		var err error
		out, err = a.inner.ResolveID(ctx, kind, catalogID)
		return err
	})
	return out, err
}

func (a *RetryActivity) WatchHistory(ctx context.Context, userID string, kind models.MediaKind, limit int) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := a.do(ctx, "activity:"+userID, "watch_history", func(ctx context.Context) error {
		var err error
		out, err = a.inner.WatchHistory(ctx, userID, kind, limit)
		return err
	})
	return out, err
}

func (a *RetryActivity) WatchedIDs(ctx context.Context, userID string, kind models.MediaKind) (map[int64]time.Time, error) {
	var out map[int64]time.Time
	err := a.do(ctx, "activity:"+userID, "watched_ids", func(ctx context.Context) error {
		var err error
		out, err = a.inner.WatchedIDs(ctx, userID, kind)
		return err
	})
	return out, err
}

func (a *RetryActivity) Ratings(ctx context.Context, userID string, kind models.MediaKind) (map[int64]Rating, error) {
	var out map[int64]Rating
	err := a.do(ctx, "activity:"+userID, "ratings", func(ctx context.Context) error {
		var err error
		out, err = a.inner.Ratings(ctx, userID, kind)
		return err
	})
	return out, err
}

func (a *RetryActivity) Trending(ctx context.Context, kind models.MediaKind, limit int) ([]TrendingEntry, error) {
	var out []TrendingEntry
	err := a.do(ctx, "activity:trending", "trending", func(ctx context.Context) error {
		var err error
		out, err = a.inner.Trending(ctx, kind, limit)
		return err
	})
	return out, err
}

func (a *RetryActivity) MirrorItems(ctx context.Context, mirrorID string) ([]MirrorItem, error) {
	var out []MirrorItem
	err := a.do(ctx, "activity:mirror", "mirror_items", func(ctx context.Context) error {
		var err error
		out, err = a.inner.MirrorItems(ctx, mirrorID)
		return err
	})
	return out, err
}

func (a *RetryActivity) AddMirrorItems(ctx context.Context, mirrorID string, items []MirrorItem) error {
	return a.do(ctx, "activity:mirror", "add_mirror_items", func(ctx context.Context) error {
		return a.inner.AddMirrorItems(ctx, mirrorID, items)
	})
}

func (a *RetryActivity) RemoveMirrorItems(ctx context.Context, mirrorID string, items []MirrorItem) error {
	return a.do(ctx, "activity:mirror", "remove_mirror_items", func(ctx context.Context) error {
		return a.inner.RemoveMirrorItems(ctx, mirrorID, items)
	})
}

// WrapCatalog composes the standard decorator chain around a raw catalog
// client: per-attempt timeouts innermost, then rate limiting, then
// retries, then the circuit breaker outermost so broken upstreams
// short-circuit before burning rate budget.
func WrapCatalog(client Catalog, cfg config.ProviderConfig, retrier *Retrier) Catalog {
	return NewBreakerCatalog(NewRetryCatalog(NewRateLimitedCatalog(NewTimeoutCatalog(client, cfg), cfg), retrier))
}

// WrapActivity composes the timeout and retry decorators around a raw
// activity client.
func WrapActivity(client Activity, cfg config.ProviderConfig, retrier *Retrier) Activity {
	return NewRetryActivity(NewTimeoutActivity(client, cfg), retrier)
}
