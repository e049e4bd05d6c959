// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/curatarr/internal/models"
)

// ErrListNotFound is returned when a list ID does not exist.
var ErrListNotFound = fmt.Errorf("store: list not found")

// CreateList persists a new list row (without items).
func (s *Store) CreateList(ctx context.Context, list *models.ListSnapshot) error {
	filtersJSON, err := json.Marshal(list.Filters)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}

	createdAt := list.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := list.Status
	if status == "" {
		status = models.StatusPending
	}

	_, err = s.conn.ExecContext(ctx, `INSERT INTO lists
		(id, user_id, name, mode, filters, item_limit, sync_interval_hours,
		 full_sync_days, mirror_id, status, last_error, last_sync_at,
		 last_full_sync_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		list.ID.String(), list.UserID, list.Name, string(list.Mode),
		string(filtersJSON), list.ItemLimit, list.SyncInterval.Hours(),
		list.FullSyncDays, list.MirrorID, string(status), list.LastError,
		nullableTime(list.LastSyncAt), nullableTime(list.LastFullSyncAt), createdAt)
	if err != nil {
		return fmt.Errorf("create list: %w", err)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// GetList loads a list with its current items.
func (s *Store) GetList(ctx context.Context, id uuid.UUID) (*models.ListSnapshot, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT
		id, user_id, name, mode, filters, item_limit, sync_interval_hours,
		full_sync_days, mirror_id, status, last_error, last_sync_at,
		last_full_sync_at, created_at
		FROM lists WHERE id = ?`, id.String())

	var (
		list          models.ListSnapshot
		idStr         string
		mode          string
		filtersJSON   string
		intervalHours float64
		mirrorID      sql.NullString
		status        string
		lastError     sql.NullString
		lastSync      sql.NullTime
		lastFullSync  sql.NullTime
	)

	err := row.Scan(&idStr, &list.UserID, &list.Name, &mode, &filtersJSON,
		&list.ItemLimit, &intervalHours, &list.FullSyncDays, &mirrorID,
		&status, &lastError, &lastSync, &lastFullSync, &list.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}

	list.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse list id: %w", err)
	}
	list.Mode = models.ScoringMode(mode)
	list.SyncInterval = time.Duration(intervalHours * float64(time.Hour))
	list.MirrorID = mirrorID.String
	list.Status = models.SyncStatus(status)
	list.LastError = lastError.String
	if lastSync.Valid {
		t := lastSync.Time
		list.LastSyncAt = &t
	}
	if lastFullSync.Valid {
		t := lastFullSync.Time
		list.LastFullSyncAt = &t
	}
	if err := json.Unmarshal([]byte(filtersJSON), &list.Filters); err != nil {
		return nil, fmt.Errorf("unmarshal filters: %w", err)
	}

	list.Items, err = s.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Store) listItems(ctx context.Context, listID uuid.UUID) ([]models.ListItem, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT
		item_key, catalog_id, activity_id, kind, title, score, watched,
		watched_at, explanation, added_at
		FROM list_items WHERE list_id = ? ORDER BY score DESC`, listID.String())
	if err != nil {
		return nil, fmt.Errorf("query list items: %w", err)
	}
	defer rows.Close()

	var items []models.ListItem
	for rows.Next() {
		var (
			item        models.ListItem
			catalogID   sql.NullInt64
			activityID  sql.NullInt64
			kind        string
			watchedAt   sql.NullTime
			explanation sql.NullString
		)
		err := rows.Scan(&item.Key, &catalogID, &activityID, &kind, &item.Title,
			&item.Score, &item.Watched, &watchedAt, &explanation, &item.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("scan list item: %w", err)
		}
		item.CatalogID = catalogID.Int64
		if activityID.Valid {
			id := activityID.Int64
			item.ActivityID = &id
		}
		item.Kind = models.MediaKind(kind)
		if watchedAt.Valid {
			t := watchedAt.Time
			item.WatchedAt = &t
		}
		item.Explanation = explanation.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListsForUser returns a user's list rows without their items, newest
// first. The mood fallback only needs names, filters and creation times.
func (s *Store) ListsForUser(ctx context.Context, userID string) ([]models.ListSnapshot, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, mode, filters, created_at
		FROM lists WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user lists: %w", err)
	}
	defer rows.Close()

	var lists []models.ListSnapshot
	for rows.Next() {
		var (
			list        models.ListSnapshot
			idStr       string
			mode        string
			filtersJSON string
		)
		if err := rows.Scan(&idStr, &list.Name, &mode, &filtersJSON, &list.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user list: %w", err)
		}
		if list.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse user list id: %w", err)
		}
		list.UserID = userID
		list.Mode = models.ScoringMode(mode)
		if err := json.Unmarshal([]byte(filtersJSON), &list.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal user list filters: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// ListsDueForSync returns IDs of lists whose sync interval has elapsed
// (or that never synced), excluding lists currently marked syncing.
func (s *Store) ListsDueForSync(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM lists
		WHERE status != ?
		AND (last_sync_at IS NULL
			OR last_sync_at + INTERVAL (sync_interval_hours * 60) MINUTE <= ?)
		ORDER BY last_sync_at NULLS FIRST`,
		string(models.StatusSyncing), now)
	if err != nil {
		return nil, fmt.Errorf("query due lists: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scan due list id: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse due list id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetListStatus updates only the status and error message.
func (s *Store) SetListStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errMsg string) error {
	_, err := s.conn.ExecContext(ctx,
		"UPDATE lists SET status = ?, last_error = ? WHERE id = ?",
		string(status), errMsg, id.String())
	if err != nil {
		return fmt.Errorf("set list status: %w", err)
	}
	return nil
}

// RecordSyncOutcome stores the terminal state of a sync pass.
func (s *Store) RecordSyncOutcome(ctx context.Context, id uuid.UUID, status models.SyncStatus, errMsg string, at time.Time, full bool) error {
	var err error
	if full {
		_, err = s.conn.ExecContext(ctx, `UPDATE lists SET
			status = ?, last_error = ?, last_sync_at = ?, last_full_sync_at = ?
			WHERE id = ?`,
			string(status), errMsg, at, at, id.String())
	} else {
		_, err = s.conn.ExecContext(ctx, `UPDATE lists SET
			status = ?, last_error = ?, last_sync_at = ? WHERE id = ?`,
			string(status), errMsg, at, id.String())
	}
	if err != nil {
		return fmt.Errorf("record sync outcome: %w", err)
	}
	return nil
}

// ListDelta is the item-level change set of one reconciliation pass.
type ListDelta struct {
	// Update are still-valid items whose row is refreshed in place.
	Update []models.ListItem
	// DeleteKeys are invalid or rotated-out item keys.
	DeleteKeys []string
	// Insert are freshly selected items.
	Insert []models.ListItem
}

// Empty reports whether the delta changes nothing.
func (d *ListDelta) Empty() bool {
	return len(d.Update) == 0 && len(d.DeleteKeys) == 0 && len(d.Insert) == 0
}

// ApplyListDelta applies updates, deletes and inserts in one transaction
// so a failed pass never commits partial corrupt state.
func (s *Store) ApplyListDelta(ctx context.Context, listID uuid.UUID, delta *ListDelta) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delta: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range delta.Update {
		item := &delta.Update[i]
		_, err := tx.ExecContext(ctx, `UPDATE list_items SET
			score = ?, watched = ?, watched_at = ?, explanation = ?
			WHERE list_id = ? AND item_key = ?`,
			item.Score, item.Watched, nullableTime(item.WatchedAt),
			item.Explanation, listID.String(), item.Key)
		if err != nil {
			return fmt.Errorf("update item %s: %w", item.Key, err)
		}
	}

	if len(delta.DeleteKeys) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(delta.DeleteKeys)), ",")
		args := make([]any, 0, len(delta.DeleteKeys)+1)
		args = append(args, listID.String())
		for _, key := range delta.DeleteKeys {
			args = append(args, key)
		}
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM list_items WHERE list_id = ? AND item_key IN (%s)", placeholders),
			args...)
		if err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
	}

	for i := range delta.Insert {
		if err := insertItem(ctx, tx, listID, &delta.Insert[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReplaceListItems clears a list and inserts the given items, for full
// syncs.
func (s *Store) ReplaceListItems(ctx context.Context, listID uuid.UUID, items []models.ListItem) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM list_items WHERE list_id = ?", listID.String()); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	for i := range items {
		if err := insertItem(ctx, tx, listID, &items[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertItem(ctx context.Context, tx *sql.Tx, listID uuid.UUID, item *models.ListItem) error {
	addedAt := item.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	var activityID any
	if item.ActivityID != nil {
		activityID = *item.ActivityID
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO list_items
		(list_id, item_key, catalog_id, activity_id, kind, title, score,
		 watched, watched_at, explanation, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listID.String(), item.Key, item.CatalogID, activityID,
		string(item.Kind), item.Title, item.Score, item.Watched,
		nullableTime(item.WatchedAt), item.Explanation, addedAt)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.Key, err)
	}
	return nil
}

// RecordShown appends the surfaced item keys for a completed pass.
func (s *Store) RecordShown(ctx context.Context, listID uuid.UUID, keys []string, at time.Time) error {
	if len(keys) == 0 {
		return nil
	}

	var pass int
	row := s.conn.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(pass), 0) FROM shown_history WHERE list_id = ?", listID.String())
	if err := row.Scan(&pass); err != nil {
		return fmt.Errorf("next pass number: %w", err)
	}
	pass++

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin shown: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range keys {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO shown_history (list_id, item_key, pass, shown_at) VALUES (?, ?, ?, ?)",
			listID.String(), key, pass, at)
		if err != nil {
			return fmt.Errorf("insert shown %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// RecentShownKeys returns the distinct item keys surfaced in the last
// `window` passes, used as the rotation exclusion set.
func (s *Store) RecentShownKeys(ctx context.Context, listID uuid.UUID, window int) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT DISTINCT item_key FROM shown_history
		WHERE list_id = ?
		AND pass > (SELECT COALESCE(MAX(pass), 0) FROM shown_history WHERE list_id = ?) - ?`,
		listID.String(), listID.String(), window)
	if err != nil {
		return nil, fmt.Errorf("query shown keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan shown key: %w", err)
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}
