// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package store

import (
	"context"
	"fmt"
)

// All columns are defined in the initial CREATE TABLE statements; schema
// evolution appends ALTER TABLE statements guarded by IF NOT EXISTS.
var schemaStatements = []string{
	// The candidate pool. Rows are unique per (catalog_id, kind) and are
	// soft-deleted via the active flag, never removed.
	`CREATE TABLE IF NOT EXISTS candidates (
		catalog_id     BIGINT NOT NULL,
		kind           VARCHAR NOT NULL,
		activity_id    BIGINT,
		title          VARCHAR NOT NULL,
		year           INTEGER,
		language       VARCHAR,
		genres         VARCHAR,
		keywords       VARCHAR,
		overview       VARCHAR,
		popularity     DOUBLE DEFAULT 0,
		rating         DOUBLE DEFAULT 0,
		vote_count     INTEGER DEFAULT 0,
		obscurity      DOUBLE DEFAULT 0,
		mainstream     DOUBLE DEFAULT 0,
		freshness      DOUBLE DEFAULT 0,
		poster_url     VARCHAR,
		backdrop_url   VARCHAR,
		adult          BOOLEAN DEFAULT FALSE,
		active         BOOLEAN DEFAULT TRUE,
		last_refreshed TIMESTAMP,
		PRIMARY KEY (catalog_id, kind)
	)`,

	`CREATE TABLE IF NOT EXISTS lists (
		id                  VARCHAR PRIMARY KEY,
		user_id             VARCHAR NOT NULL,
		name                VARCHAR NOT NULL,
		mode                VARCHAR NOT NULL,
		filters             VARCHAR NOT NULL,
		item_limit          INTEGER NOT NULL,
		sync_interval_hours DOUBLE NOT NULL,
		full_sync_days      INTEGER NOT NULL,
		mirror_id           VARCHAR,
		status              VARCHAR NOT NULL DEFAULT 'pending',
		last_error          VARCHAR,
		last_sync_at        TIMESTAMP,
		last_full_sync_at   TIMESTAMP,
		created_at          TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS list_items (
		list_id     VARCHAR NOT NULL,
		item_key    VARCHAR NOT NULL,
		catalog_id  BIGINT,
		activity_id BIGINT,
		kind        VARCHAR NOT NULL,
		title       VARCHAR NOT NULL,
		score       DOUBLE DEFAULT 0,
		watched     BOOLEAN DEFAULT FALSE,
		watched_at  TIMESTAMP,
		explanation VARCHAR,
		added_at    TIMESTAMP NOT NULL,
		PRIMARY KEY (list_id, item_key)
	)`,

	// Rotation log: which item keys each sync pass surfaced, used to
	// exclude recently shown items from fresh sourcing.
	`CREATE TABLE IF NOT EXISTS shown_history (
		list_id  VARCHAR NOT NULL,
		item_key VARCHAR NOT NULL,
		pass     INTEGER NOT NULL,
		shown_at TIMESTAMP NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_candidates_pool
		ON candidates (kind, active, language, year)`,
	`CREATE INDEX IF NOT EXISTS idx_shown_history_list
		ON shown_history (list_id, pass)`,
}

// initSchema creates tables and indexes if they do not exist.
func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
