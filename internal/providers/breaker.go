// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package providers

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

// BreakerCatalog wraps a Catalog with a circuit breaker so a failing
// upstream short-circuits quickly and sourcing falls back to the local
// pool instead of queueing on a dead provider.
//
// The breaker uses real time for its interval and timeout accounting;
// tests exercise the wrapped client directly.
type BreakerCatalog struct {
	inner Catalog
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerCatalog wraps the catalog client. The breaker opens after a
// 60% failure rate over at least 10 requests, waits 2 minutes before
// probing half-open, and allows 3 probe requests.
func NewBreakerCatalog(inner Catalog) *BreakerCatalog {
	const name = "catalog"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			// Auth failures are a configuration problem, not upstream
			// health; they must not trip the breaker.
			return err == nil || Classify(err) == KindAuth
		},
	})

	return &BreakerCatalog{inner: inner, cb: cb}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// mapBreakerErr converts breaker refusals into the unavailable kind.
func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}

// Discover implements Catalog.
func (b *BreakerCatalog) Discover(ctx context.Context, q DiscoverQuery) ([]models.Candidate, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.Discover(ctx, q)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return out.([]models.Candidate), nil
}

// Search implements Catalog.
func (b *BreakerCatalog) Search(ctx context.Context, kind models.MediaKind, query string, page int) ([]models.Candidate, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.Search(ctx, kind, query, page)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return out.([]models.Candidate), nil
}

// Detail implements Catalog.
func (b *BreakerCatalog) Detail(ctx context.Context, kind models.MediaKind, catalogID int64) (*models.Candidate, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.Detail(ctx, kind, catalogID)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return out.(*models.Candidate), nil
}

var _ Catalog = (*BreakerCatalog)(nil)
