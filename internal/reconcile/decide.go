// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package reconcile keeps persisted lists in sync with their
// configuration: it decides per pass between a full rebuild, an
// incremental refresh or a skip, applies the item delta, and mirrors the
// result to the external activity provider.
package reconcile

import (
	"time"

	"github.com/tomtom215/curatarr/internal/models"
)

// DecideSyncType is the per-list sync decision. In order: a list that
// never synced, is forced, or whose full-rebuild interval elapsed gets a
// full sync; a list past its incremental interval gets an incremental
// pass; everything else is skipped. defaultFullDays applies when the
// list carries no FullSyncDays of its own.
func DecideSyncType(list *models.ListSnapshot, now time.Time, forceFull bool, defaultFullDays int) models.SyncType {
	if list.LastSyncAt == nil || forceFull {
		return models.SyncFull
	}

	fullDays := list.FullSyncDays
	if fullDays <= 0 {
		fullDays = defaultFullDays
	}
	if list.LastFullSyncAt == nil ||
		now.Sub(*list.LastFullSyncAt) >= time.Duration(fullDays)*24*time.Hour {
		return models.SyncFull
	}

	if now.Sub(*list.LastSyncAt) >= list.SyncInterval {
		return models.SyncIncremental
	}
	return models.SyncSkip
}
