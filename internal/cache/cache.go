// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package cache provides the Curatarr cache layer: an in-memory TTL
// cache for mood vectors and sync-in-progress markers, and a
// badger-backed persistent cache for expensive candidate-search batches.
package cache

import (
	"sync"
	"time"
)

// Cacher is the key-value contract the engines depend on.
type Cacher interface {
	// Get retrieves a value, reporting whether it was found unexpired.
	Get(key string) (any, bool)

	// Set stores a value with the default TTL.
	Set(key string, value any)

	// SetWithTTL stores a value with a custom TTL.
	SetWithTTL(key string, value any, ttl time.Duration)

	// SetIfAbsent stores a value only when the key is missing or
	// expired, reporting whether the store happened. The check and the
	// insert are one atomic operation.
	SetIfAbsent(key string, value any, ttl time.Duration) bool

	// Delete removes a value.
	Delete(key string)

	// Stats returns hit/miss counters.
	Stats() Stats
}

// Stats tracks cache performance.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int
}

// entry is a cached item with expiration and last-access bookkeeping.
type entry struct {
	data       any
	expiresAt  time.Time
	lastAccess time.Time
}

// Memory is a thread-safe in-memory TTL cache. A background goroutine
// sweeps expired entries every cleanup interval for the cache lifetime.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	statsMu sync.Mutex
	stats   Stats

	now func() time.Time
}

// cleanupInterval is how often the background sweep runs.
const cleanupInterval = 5 * time.Minute

// NewMemory creates an in-memory cache with the given default TTL and
// starts the background sweep.
func NewMemory(ttl time.Duration) *Memory {
	c := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	go c.cleanupLoop()
	return c
}

func (c *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.sweep()
	}
}

func (c *Memory) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			c.statsMu.Lock()
			c.stats.Evictions++
			c.statsMu.Unlock()
		}
	}
}

// Get implements Cacher.
func (c *Memory) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		c.statsMu.Lock()
		c.stats.Misses++
		c.statsMu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	e.lastAccess = c.now()
	c.entries[key] = e
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
	return e.data, true
}

// Set implements Cacher.
func (c *Memory) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL implements Cacher.
func (c *Memory) SetWithTTL(key string, value any, ttl time.Duration) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		data:       value,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
}

// SetIfAbsent implements Cacher.
func (c *Memory) SetIfAbsent(key string, value any, ttl time.Duration) bool {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !now.After(e.expiresAt) {
		return false
	}
	c.entries[key] = entry{
		data:       value,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	return true
}

// Delete implements Cacher.
func (c *Memory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Stats implements Cacher.
func (c *Memory) Stats() Stats {
	c.statsMu.Lock()
	s := c.stats
	c.statsMu.Unlock()

	c.mu.RLock()
	s.Keys = len(c.entries)
	c.mu.RUnlock()
	return s
}

var _ Cacher = (*Memory)(nil)
