// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package sourcing

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curatarr/internal/cache"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
)

// fanoutConcurrency bounds concurrent external strategies.
const fanoutConcurrency = 3

// discoverPages is how many pages each discovery strategy pulls; ultra
// mode pulls one extra.
const discoverPages = 2

// relatedGenres drives the genre-expansion strategy: adjacent genres
// that tend to satisfy the same filter intent.
var relatedGenres = map[string][]string{
	"action":          {"adventure", "thriller"},
	"adventure":       {"action", "fantasy"},
	"animation":       {"family", "fantasy"},
	"comedy":          {"romance", "family"},
	"crime":           {"thriller", "drama"},
	"documentary":     {"history"},
	"drama":           {"crime", "history"},
	"fantasy":         {"science fiction", "adventure"},
	"horror":          {"thriller", "mystery"},
	"mystery":         {"thriller", "crime"},
	"romance":         {"comedy", "drama"},
	"science fiction": {"fantasy", "adventure"},
	"thriller":        {"mystery", "crime"},
	"war":             {"history", "drama"},
	"western":         {"adventure", "drama"},
}

// foreignLanguages feeds the global-discovery strategy used by the
// obscure and ultra modes.
var foreignLanguages = []string{"ko", "ja", "fr", "es", "de", "it", "hi"}

// commonWords is the last-resort search vocabulary, used only when every
// other strategy came back empty.
var commonWords = []string{"love", "night", "world", "story", "man"}

// externalFanout runs the external sourcing strategies concurrently and
// returns their merged output. Individual strategy failures are counted
// and absorbed; the whole batch is cached when a search cache is wired.
func (e *Engine) externalFanout(ctx context.Context, req Request) []models.Candidate {
	params := cache.SearchParams{
		Kind:      req.Kind,
		Mode:      req.Mode,
		Genres:    req.Filters.Genres,
		Languages: req.Filters.Languages,
		YearMin:   req.Filters.YearMin,
		YearMax:   req.Filters.YearMax,
		MinRating: req.Filters.MinRating,
		Keywords:  req.Filters.Keywords,
	}
	if e.search != nil {
		if batch, ok := e.search.Get(params); ok {
			return batch
		}
	}

	strategies := e.strategies(req)

	// Results land in per-strategy slots so the merged order does not
	// depend on goroutine scheduling.
	results := make([][]models.Candidate, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutConcurrency)
	for i, s := range strategies {
		g.Go(func() error {
			batch, err := s.run(gctx)
			if err != nil {
				metrics.SourcingFanoutFailures.WithLabelValues(s.name).Inc()
				e.log.Warn().Err(err).Str("strategy", s.name).
					Msg("External sourcing strategy failed")
				return nil // absorbed: other strategies keep going
			}
			results[i] = batch
			return nil
		})
	}
	_ = g.Wait()

	var merged []models.Candidate
	for _, batch := range results {
		merged = append(merged, batch...)
	}

	// Last resort, sequential and only when everything else was empty.
	if len(merged) == 0 {
		merged = e.commonWordSearch(ctx, req)
	}

	if e.search != nil && len(merged) > 0 {
		if err := e.search.Set(params, merged); err != nil {
			e.log.Debug().Err(err).Msg("Search cache write failed")
		}
	}
	return merged
}

type strategy struct {
	name string
	run  func(ctx context.Context) ([]models.Candidate, error)
}

// strategies assembles the fan-out plan for the request. Obscure and
// ultra modes add global foreign-language discovery; ultra pulls deeper
// pages everywhere.
func (e *Engine) strategies(req Request) []strategy {
	pages := discoverPages
	if req.Mode == models.DiscoveryUltra {
		pages++
	}

	out := []strategy{{
		name: "language_discovery",
		run: func(ctx context.Context) ([]models.Candidate, error) {
			return e.discoverLanguages(ctx, req, req.Filters.Languages, pages)
		},
	}}

	if len(req.Filters.Keywords) > 0 {
		out = append(out, strategy{
			name: "keyword_search",
			run: func(ctx context.Context) ([]models.Candidate, error) {
				return e.keywordSearch(ctx, req)
			},
		})
	}

	if len(req.Filters.Genres) > 0 {
		out = append(out, strategy{
			name: "genre_expansion",
			run: func(ctx context.Context) ([]models.Candidate, error) {
				return e.genreExpansion(ctx, req, pages)
			},
		})
	}

	out = append(out, strategy{
		name: "era_windows",
		run: func(ctx context.Context) ([]models.Candidate, error) {
			return e.eraWindows(ctx, req)
		},
	})

	if req.Mode == models.DiscoveryObscure || req.Mode == models.DiscoveryUltra {
		out = append(out, strategy{
			name: "global_discovery",
			run: func(ctx context.Context) ([]models.Candidate, error) {
				return e.discoverLanguages(ctx, req, foreignLanguages, 1)
			},
		})
	}
	return out
}

// discoverLanguages pages catalog discovery per language. An empty
// language list means one unrestricted pass.
func (e *Engine) discoverLanguages(ctx context.Context, req Request, languages []string, pages int) ([]models.Candidate, error) {
	if len(languages) == 0 {
		languages = []string{""}
	}

	var out []models.Candidate
	var lastErr error
	for _, lang := range languages {
		for page := 1; page <= pages; page++ {
			batch, err := e.catalog.Discover(ctx, providers.DiscoverQuery{
				Kind:      req.Kind,
				Language:  lang,
				Genres:    req.Filters.Genres,
				YearMin:   req.Filters.YearMin,
				YearMax:   req.Filters.YearMax,
				MinRating: req.Filters.MinRating,
				Page:      page,
			})
			if err != nil {
				lastErr = err
				break // deeper pages of a failing query will not improve
			}
			out = append(out, batch...)
			if len(batch) == 0 {
				break
			}
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// keywordSearch runs one text search per filter keyword.
func (e *Engine) keywordSearch(ctx context.Context, req Request) ([]models.Candidate, error) {
	var out []models.Candidate
	var lastErr error
	for _, kw := range req.Filters.Keywords {
		batch, err := e.catalog.Search(ctx, req.Kind, kw, 1)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, batch...)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// genreExpansion discovers with genres adjacent to the filter genres,
// surfacing items a strict genre query misses.
func (e *Engine) genreExpansion(ctx context.Context, req Request, pages int) ([]models.Candidate, error) {
	seen := make(map[string]struct{}, len(req.Filters.Genres))
	for _, g := range req.Filters.Genres {
		seen[models.NormalizeGenre(g)] = struct{}{}
	}

	var expanded []string
	for _, g := range req.Filters.Genres {
		for _, rel := range relatedGenres[models.NormalizeGenre(g)] {
			if _, dup := seen[rel]; dup {
				continue
			}
			seen[rel] = struct{}{}
			expanded = append(expanded, rel)
		}
	}
	if len(expanded) == 0 {
		return nil, nil
	}

	var out []models.Candidate
	var lastErr error
	for _, genre := range expanded {
		for page := 1; page <= pages; page++ {
			batch, err := e.catalog.Discover(ctx, providers.DiscoverQuery{
				Kind:      req.Kind,
				Genres:    []string{genre},
				YearMin:   req.Filters.YearMin,
				YearMax:   req.Filters.YearMax,
				MinRating: req.Filters.MinRating,
				Page:      page,
			})
			if err != nil {
				lastErr = err
				break
			}
			out = append(out, batch...)
			if len(batch) == 0 {
				break
			}
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// eraWindows discovers decade by decade: the filter window when one is
// configured, otherwise the last three decades.
func (e *Engine) eraWindows(ctx context.Context, req Request) ([]models.Candidate, error) {
	yearMin, yearMax := req.Filters.YearMin, req.Filters.YearMax
	if yearMax == 0 {
		yearMax = e.now().Year()
	}
	if yearMin == 0 {
		yearMin = yearMax - 29
	}

	type window struct{ min, max int }
	var windows []window
	for start := (yearMax / 10) * 10; start >= yearMin-9 && len(windows) < 3; start -= 10 {
		w := window{min: start, max: start + 9}
		if w.min < yearMin {
			w.min = yearMin
		}
		if w.max > yearMax {
			w.max = yearMax
		}
		windows = append(windows, w)
	}

	var out []models.Candidate
	var lastErr error
	for _, w := range windows {
		batch, err := e.catalog.Discover(ctx, providers.DiscoverQuery{
			Kind:      req.Kind,
			Genres:    req.Filters.Genres,
			YearMin:   w.min,
			YearMax:   w.max,
			MinRating: req.Filters.MinRating,
			Page:      1,
		})
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, batch...)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// commonWordSearch is the last-resort strategy: broad single-word
// searches, stopping at the first word that yields anything.
func (e *Engine) commonWordSearch(ctx context.Context, req Request) []models.Candidate {
	for _, word := range commonWords {
		batch, err := e.catalog.Search(ctx, req.Kind, word, 1)
		if err != nil {
			metrics.SourcingFanoutFailures.WithLabelValues("common_word").Inc()
			continue
		}
		if len(batch) > 0 {
			return batch
		}
	}
	return nil
}

// dedupSet merges candidate batches with catalog-ID-preferred identity:
// an item keyed only by title is upgraded in place when a catalog-backed
// duplicate arrives. Insertion order is preserved.
type dedupSet struct {
	items   []models.Candidate
	byKey   map[string]struct{}
	byTitle map[string]int
}

func newDedupSet() *dedupSet {
	return &dedupSet{
		byKey:   make(map[string]struct{}),
		byTitle: make(map[string]int),
	}
}

func titleKey(c *models.Candidate) string {
	return fmt.Sprintf("title:%s:%d:%s", strings.ToLower(c.Title), c.Year, c.Kind)
}

func (s *dedupSet) add(c models.Candidate) {
	key := c.Key()
	if _, dup := s.byKey[key]; dup {
		return
	}

	tk := titleKey(&c)
	if idx, ok := s.byTitle[tk]; ok {
		// Same title/year/kind already present. Prefer the catalog-backed
		// copy; otherwise it is a duplicate.
		if s.items[idx].CatalogID <= 0 && c.CatalogID > 0 {
			s.items[idx] = c
			s.byKey[key] = struct{}{}
		}
		return
	}

	s.byKey[key] = struct{}{}
	s.byTitle[tk] = len(s.items)
	s.items = append(s.items, c)
}

func (s *dedupSet) addBatch(batch []models.Candidate) {
	for i := range batch {
		s.add(batch[i])
	}
}

// freshCount counts items that survive both exclusion sets.
func (s *dedupSet) freshCount(req Request) int {
	n := 0
	for i := range s.items {
		key := s.items[i].Key()
		if _, excluded := req.ExcludeKeys[key]; excluded {
			continue
		}
		if _, listed := req.ExistingListKeys[key]; listed {
			continue
		}
		n++
	}
	return n
}

// partition splits the set into fresh items and stale already-listed
// items. Hard-excluded items are dropped entirely.
func (s *dedupSet) partition(req Request) (fresh, stale []models.Candidate) {
	for i := range s.items {
		key := s.items[i].Key()
		if _, excluded := req.ExcludeKeys[key]; excluded {
			continue
		}
		if _, listed := req.ExistingListKeys[key]; listed {
			stale = append(stale, s.items[i])
			continue
		}
		fresh = append(fresh, s.items[i])
	}
	return fresh, stale
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
