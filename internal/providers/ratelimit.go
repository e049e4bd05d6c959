// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package providers

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
)

// RateLimitedCatalog applies a client-side token bucket ahead of every
// catalog call so fan-out sourcing respects upstream limits regardless
// of how many sub-fetches run concurrently.
type RateLimitedCatalog struct {
	inner   Catalog
	limiter *rate.Limiter
}

// NewRateLimitedCatalog wraps the catalog client with a limiter built
// from provider configuration.
func NewRateLimitedCatalog(inner Catalog, cfg config.ProviderConfig) *RateLimitedCatalog {
	return &RateLimitedCatalog{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Discover implements Catalog.
func (r *RateLimitedCatalog) Discover(ctx context.Context, q DiscoverQuery) ([]models.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Discover(ctx, q)
}

// Search implements Catalog.
func (r *RateLimitedCatalog) Search(ctx context.Context, kind models.MediaKind, query string, page int) ([]models.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Search(ctx, kind, query, page)
}

// Detail implements Catalog.
func (r *RateLimitedCatalog) Detail(ctx context.Context, kind models.MediaKind, catalogID int64) (*models.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Detail(ctx, kind, catalogID)
}

var _ Catalog = (*RateLimitedCatalog)(nil)
