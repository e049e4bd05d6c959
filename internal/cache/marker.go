// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package cache

import (
	"time"

	"github.com/google/uuid"
)

// markerPrefix namespaces sync-in-progress markers.
const markerPrefix = "syncing:"

// Markers is the per-list advisory lock used to make an in-flight sync
// visible and keep concurrent passes off the same list. The TTL is a
// crash guard only; a completing pass always releases explicitly.
type Markers struct {
	cache Cacher
	ttl   time.Duration
}

// NewMarkers creates a marker set on top of a Cacher.
func NewMarkers(c Cacher, ttl time.Duration) *Markers {
	return &Markers{cache: c, ttl: ttl}
}

// Acquire claims the marker for a list, reporting whether the claim won.
// The claim is a single atomic set-if-absent so concurrent acquirers
// cannot both win.
func (m *Markers) Acquire(listID uuid.UUID) bool {
	return m.cache.SetIfAbsent(markerPrefix+listID.String(), time.Now(), m.ttl)
}

// Release drops the marker. Safe to call on an unheld marker.
func (m *Markers) Release(listID uuid.UUID) {
	m.cache.Delete(markerPrefix + listID.String())
}

// Held reports whether a sync is currently marked in-flight.
func (m *Markers) Held(listID uuid.UUID) bool {
	_, held := m.cache.Get(markerPrefix + listID.String())
	return held
}
