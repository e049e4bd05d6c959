// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags plus the cross-field constraints the tags
// cannot express.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("retry.initial_delay must be positive, got %s", c.Retry.InitialDelay)
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay %s must be >= retry.initial_delay %s",
			c.Retry.MaxDelay, c.Retry.InitialDelay)
	}
	if c.Cache.FallbackMoodTTL > c.Cache.MoodTTL {
		return fmt.Errorf("cache.fallback_mood_ttl %s must be <= cache.mood_ttl %s",
			c.Cache.FallbackMoodTTL, c.Cache.MoodTTL)
	}
	if c.Sync.TickInterval <= 0 {
		return fmt.Errorf("sync.tick_interval must be positive, got %s", c.Sync.TickInterval)
	}
	return nil
}
