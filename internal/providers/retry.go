// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package providers

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
)

// genericRetryCap limits retries for generic API errors; transient
// network/availability errors get the full configured attempt budget.
const genericRetryCap = 2

// Retrier runs provider calls under the shared retry-with-backoff policy:
// exponential, jittered, capped. Repeated exhausted retries for the same
// provider+user key trip a cooldown so a broken upstream degrades
// gracefully instead of retry-storming.
type Retrier struct {
	cfg config.RetryConfig

	mu        sync.Mutex
	rng       *rand.Rand
	failures  map[string]int
	cooldowns map[string]time.Time

	now func() time.Time
}

// NewRetrier creates a retrier. Seed 0 selects a time-based seed; tests
// pass a fixed seed for deterministic jitter.
func NewRetrier(cfg config.RetryConfig, seed int64) *Retrier {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Retrier{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)), //nolint:gosec // jitter only
		failures:  make(map[string]int),
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Do runs fn under the retry policy. The key should combine provider and
// user ("catalog:u123") so failure memory is scoped per pair.
func (r *Retrier) Do(ctx context.Context, provider, key, op string, fn func(ctx context.Context) error) error {
	if until, cooling := r.coolingDown(key); cooling {
		metrics.ProviderCooldowns.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s: %s in cooldown until %s: %w",
			provider, key, until.Format(time.RFC3339), ErrUnavailable)
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			r.recordSuccess(key)
			return nil
		}
		lastErr = err

		kind := Classify(err)
		if kind == KindAuth {
			// Credentials will not fix themselves; surface immediately.
			return err
		}
		if kind == KindGeneric && attempt >= genericRetryCap {
			break
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		metrics.ProviderRetries.WithLabelValues(provider, string(kind)).Inc()
		delay := r.backoff(attempt)
		logging.Debug().
			Str("provider", provider).
			Str("op", op).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying provider call")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	r.recordFailure(key)
	return fmt.Errorf("%s: %s exhausted retries: %w", provider, op, lastErr)
}

// backoff returns the exponential delay for the given attempt with
// +/-25% jitter, capped at MaxDelay.
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := r.cfg.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
			break
		}
	}

	r.mu.Lock()
	jitter := 0.75 + r.rng.Float64()*0.5
	r.mu.Unlock()

	jittered := time.Duration(float64(delay) * jitter)
	if jittered > r.cfg.MaxDelay {
		jittered = r.cfg.MaxDelay
	}
	return jittered
}

func (r *Retrier) coolingDown(key string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.cooldowns[key]
	if !ok {
		return time.Time{}, false
	}
	if r.now().After(until) {
		delete(r.cooldowns, key)
		delete(r.failures, key)
		return time.Time{}, false
	}
	return until, true
}

func (r *Retrier) recordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, key)
}

func (r *Retrier) recordFailure(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[key]++
	if r.failures[key] >= r.cfg.CooldownAfter {
		r.cooldowns[key] = r.now().Add(r.cfg.Cooldown)
	}
}
