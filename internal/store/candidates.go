// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/models"
)

// PoolQuery parameterizes a candidate-pool query. Genre filtering is not
// part of the SQL predicate; callers oversample and filter genres
// in-memory via models.MatchesGenres so synonym normalization applies.
type PoolQuery struct {
	Kind         models.MediaKind
	Languages    []string
	YearMin      int
	YearMax      int
	MinRating    float64
	IncludeAdult bool
	Mode         models.DiscoveryMode
	Limit        int
}

// orderClause returns the discovery-mode-dependent ordering heuristic.
func (q PoolQuery) orderClause() string {
	switch q.Mode {
	case models.DiscoveryPopular:
		return "mainstream DESC, popularity DESC"
	case models.DiscoveryObscure, models.DiscoveryUltra:
		return "obscurity DESC, rating DESC"
	default: // balanced
		return "(freshness * 0.5 + mainstream * 0.5) DESC, rating DESC"
	}
}

// QueryPool returns active pool candidates matching the cheap indexed
// filters, ordered by the discovery-mode heuristic.
func (s *Store) QueryPool(ctx context.Context, q PoolQuery) ([]models.Candidate, error) {
	var (
		where = []string{"kind = ?", "active = TRUE"}
		args  = []any{string(q.Kind)}
	)

	if !q.IncludeAdult {
		where = append(where, "adult = FALSE")
	}
	if len(q.Languages) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Languages)), ",")
		where = append(where, fmt.Sprintf("language IN (%s)", placeholders))
		for _, lang := range q.Languages {
			args = append(args, lang)
		}
	}
	if q.YearMin > 0 {
		where = append(where, "year >= ?")
		args = append(args, q.YearMin)
	}
	if q.YearMax > 0 {
		where = append(where, "year <= ?")
		args = append(args, q.YearMax)
	}
	if q.MinRating > 0 {
		where = append(where, "rating >= ?")
		args = append(args, q.MinRating)
	}

	query := fmt.Sprintf(`SELECT %s FROM candidates WHERE %s ORDER BY %s LIMIT ?`,
		candidateColumns, strings.Join(where, " AND "), q.orderClause())
	args = append(args, q.Limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pool: %w", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const candidateColumns = `catalog_id, kind, activity_id, title, year, language,
	genres, keywords, overview, popularity, rating, vote_count,
	obscurity, mainstream, freshness, poster_url, backdrop_url,
	adult, active, last_refreshed`

// scanCandidate reads one candidate row.
func scanCandidate(rows *sql.Rows) (models.Candidate, error) {
	var (
		c             models.Candidate
		kind          string
		activityID    sql.NullInt64
		year          sql.NullInt64
		language      sql.NullString
		genresJSON    sql.NullString
		keywordsJSON  sql.NullString
		overview      sql.NullString
		voteCount     sql.NullInt64
		posterURL     sql.NullString
		backdropURL   sql.NullString
		lastRefreshed sql.NullTime
	)

	err := rows.Scan(&c.CatalogID, &kind, &activityID, &c.Title, &year, &language,
		&genresJSON, &keywordsJSON, &overview, &c.Popularity, &c.Rating, &voteCount,
		&c.Obscurity, &c.Mainstream, &c.Freshness, &posterURL, &backdropURL,
		&c.Adult, &c.Active, &lastRefreshed)
	if err != nil {
		return c, fmt.Errorf("scan candidate: %w", err)
	}

	c.Kind = models.MediaKind(kind)
	if activityID.Valid {
		id := activityID.Int64
		c.ActivityID = &id
	}
	c.Year = int(year.Int64)
	c.Language = language.String
	c.Overview = overview.String
	c.VoteCount = int(voteCount.Int64)
	c.PosterURL = posterURL.String
	c.BackdropURL = backdropURL.String
	if lastRefreshed.Valid {
		c.LastRefreshed = lastRefreshed.Time
	}
	if genresJSON.Valid && genresJSON.String != "" {
		if err := json.Unmarshal([]byte(genresJSON.String), &c.Genres); err != nil {
			return c, fmt.Errorf("unmarshal genres: %w", err)
		}
	}
	if keywordsJSON.Valid && keywordsJSON.String != "" {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &c.Keywords); err != nil {
			return c, fmt.Errorf("unmarshal keywords: %w", err)
		}
	}
	return c, nil
}

// UpsertCandidates inserts or refreshes pool rows in one transaction.
// Conflicting rows are updated in place; last_refreshed is always set.
func (s *Store) UpsertCandidates(ctx context.Context, candidates []models.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stmt = `INSERT INTO candidates (` + candidateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (catalog_id, kind) DO UPDATE SET
			activity_id    = COALESCE(excluded.activity_id, candidates.activity_id),
			title          = excluded.title,
			year           = excluded.year,
			language       = excluded.language,
			genres         = excluded.genres,
			keywords       = excluded.keywords,
			overview       = excluded.overview,
			popularity     = excluded.popularity,
			rating         = excluded.rating,
			vote_count     = excluded.vote_count,
			obscurity      = excluded.obscurity,
			mainstream     = excluded.mainstream,
			freshness      = excluded.freshness,
			poster_url     = excluded.poster_url,
			backdrop_url   = excluded.backdrop_url,
			adult          = excluded.adult,
			active         = excluded.active,
			last_refreshed = excluded.last_refreshed`

	for i := range candidates {
		c := &candidates[i]
		if c.CatalogID <= 0 {
			// Pool rows require a real catalog ID; unresolved items stay
			// ephemeral and are never persisted with a fabricated ID.
			continue
		}

		genresJSON, err := json.Marshal(c.Genres)
		if err != nil {
			return fmt.Errorf("marshal genres: %w", err)
		}
		keywordsJSON, err := json.Marshal(c.Keywords)
		if err != nil {
			return fmt.Errorf("marshal keywords: %w", err)
		}

		var activityID any
		if c.ActivityID != nil {
			activityID = *c.ActivityID
		}

		refreshed := c.LastRefreshed
		if refreshed.IsZero() {
			refreshed = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx, stmt,
			c.CatalogID, string(c.Kind), activityID, c.Title, c.Year, c.Language,
			string(genresJSON), string(keywordsJSON), c.Overview,
			c.Popularity, c.Rating, c.VoteCount,
			c.Obscurity, c.Mainstream, c.Freshness,
			c.PosterURL, c.BackdropURL, c.Adult, c.Active, refreshed)
		if err != nil {
			return fmt.Errorf("upsert candidate %d/%s: %w", c.CatalogID, c.Kind, err)
		}
	}

	return tx.Commit()
}

// MarkInactive soft-deletes pool rows. Rows stay addressable for mirrors
// and historical scoring.
func (s *Store) MarkInactive(ctx context.Context, kind models.MediaKind, catalogIDs []int64) error {
	if len(catalogIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(catalogIDs)), ",")
	args := make([]any, 0, len(catalogIDs)+1)
	args = append(args, string(kind))
	for _, id := range catalogIDs {
		args = append(args, id)
	}
	_, err := s.conn.ExecContext(ctx,
		fmt.Sprintf("UPDATE candidates SET active = FALSE WHERE kind = ? AND catalog_id IN (%s)", placeholders),
		args...)
	if err != nil {
		return fmt.Errorf("mark inactive: %w", err)
	}
	return nil
}

// GetCandidate fetches one pool row by primary key, or nil when absent.
func (s *Store) GetCandidate(ctx context.Context, kind models.MediaKind, catalogID int64) (*models.Candidate, error) {
	rows, err := s.conn.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM candidates WHERE kind = ? AND catalog_id = ?", candidateColumns),
		string(kind), catalogID)
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	c, err := scanCandidate(rows)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
