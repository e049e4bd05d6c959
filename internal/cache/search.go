// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

// searchKeyPrefix namespaces search batches in badger.
const searchKeyPrefix = "search:"

// SearchParams are the normalized inputs hashed into a search-cache key.
// Only expensive bulk discovery passes are cached; small cheap queries
// bypass the cache entirely.
type SearchParams struct {
	Kind      models.MediaKind     `json:"kind"`
	Mode      models.DiscoveryMode `json:"mode"`
	Genres    []string             `json:"genres,omitempty"`
	Languages []string             `json:"languages,omitempty"`
	YearMin   int                  `json:"year_min,omitempty"`
	YearMax   int                  `json:"year_max,omitempty"`
	MinRating float64              `json:"min_rating,omitempty"`
	Keywords  []string             `json:"keywords,omitempty"`
}

// Key returns the cache key: a sha256 hash over the JSON encoding of the
// normalized (sorted, lowercased) parameters.
func (p SearchParams) Key() string {
	normalized := p
	normalized.Genres = normalizeSlice(p.Genres)
	normalized.Languages = normalizeSlice(p.Languages)
	normalized.Keywords = normalizeSlice(p.Keywords)

	data, err := json.Marshal(normalized)
	if err != nil {
		// Marshal of plain structs cannot fail; fall back to a raw key.
		return fmt.Sprintf("%s%v", searchKeyPrefix, normalized)
	}
	return fmt.Sprintf("%s%x", searchKeyPrefix, sha256.Sum256(data))
}

func normalizeSlice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	sort.Strings(out)
	return out
}

// SearchCache stores serialized candidate batches in badger with a TTL
// so bulk discovery results survive restarts.
type SearchCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenSearch opens (or creates) the badger-backed search cache at dir.
func OpenSearch(dir string, ttl time.Duration) (*SearchCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open search cache: %w", err)
	}
	return &SearchCache{db: db, ttl: ttl}, nil
}

// NewSearchCache wraps an existing badger DB (tests share one instance).
func NewSearchCache(db *badger.DB, ttl time.Duration) *SearchCache {
	return &SearchCache{db: db, ttl: ttl}
}

// Get returns the cached batch for params, or found=false.
func (s *SearchCache) Get(params SearchParams) ([]models.Candidate, bool) {
	var batch []models.Candidate

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(params.Key()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &batch)
		})
	})

	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			// Corrupt entries are treated as misses; the next Set
			// overwrites them.
			_ = s.Delete(params)
		}
		metrics.CacheMisses.WithLabelValues("search").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("search").Inc()
	return batch, true
}

// Set stores a batch under the params key with the configured TTL.
func (s *SearchCache) Set(params SearchParams, batch []models.Candidate) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal search batch: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(params.Key()), data).WithTTL(s.ttl)
		return txn.SetEntry(e)
	})
}

// Delete removes the batch for params.
func (s *SearchCache) Delete(params SearchParams) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(params.Key()))
	})
}

// Close closes the underlying badger DB.
func (s *SearchCache) Close() error {
	return s.db.Close()
}
