// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package sourcing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
	"github.com/tomtom215/curatarr/internal/store"
)

type fakePool struct {
	mu       sync.Mutex
	batch    []models.Candidate
	queryErr error
	queries  []store.PoolQuery
	upserted []models.Candidate
	persistC chan struct{}
}

func (f *fakePool) QueryPool(_ context.Context, q store.PoolQuery) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := make([]models.Candidate, len(f.batch))
	copy(out, f.batch)
	return out, nil
}

func (f *fakePool) UpsertCandidates(_ context.Context, candidates []models.Candidate) error {
	f.mu.Lock()
	f.upserted = append(f.upserted, candidates...)
	f.mu.Unlock()
	if f.persistC != nil {
		f.persistC <- struct{}{}
	}
	return nil
}

func (f *fakePool) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeCatalog struct {
	mu          sync.Mutex
	discovered  []models.Candidate
	discoverErr error
	searched    []models.Candidate
	searchErr   error
	details     map[int64]*models.Candidate
	detailErr   error

	discoverCalls int
	searchCalls   int
	detailCalls   int
}

func (f *fakeCatalog) Discover(_ context.Context, _ providers.DiscoverQuery) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discoverCalls++
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	// One page of results, then empty.
	if f.discoverCalls > 1 {
		return nil, nil
	}
	out := make([]models.Candidate, len(f.discovered))
	copy(out, f.discovered)
	return out, nil
}

func (f *fakeCatalog) Search(_ context.Context, _ models.MediaKind, _ string, _ int) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := make([]models.Candidate, len(f.searched))
	copy(out, f.searched)
	return out, nil
}

func (f *fakeCatalog) Detail(_ context.Context, _ models.MediaKind, catalogID int64) (*models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if d, ok := f.details[catalogID]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, &providers.APIError{Provider: "catalog", Op: "detail", Status: 404, Err: errors.New("not found")}
}

func (f *fakeCatalog) calls() (discover, search, detail int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discoverCalls, f.searchCalls, f.detailCalls
}

func testSourcingConfig() config.SourcingConfig {
	return config.SourcingConfig{
		EnrichConcurrency:   2,
		WidenYears:          15,
		StaleRetainFraction: 0.25,
		PoolOversample:      3,
	}
}

// poolCandidate builds a candidate with full metadata so it survives
// strict filters without enrichment.
func poolCandidate(id int64, mut func(*models.Candidate)) models.Candidate {
	c := models.Candidate{
		CatalogID: id,
		Kind:      models.MediaMovie,
		Title:     fmt.Sprintf("Title %d", id),
		Year:      2015,
		Language:  "en",
		Genres:    []string{"drama"},
		Overview:  "A quiet story about ordinary people.",
		Rating:    7.0,
		Active:    true,
	}
	if mut != nil {
		mut(&c)
	}
	return c
}

func newTestEngine(pool *fakePool, catalog *fakeCatalog) *Engine {
	e := NewEngine(pool, catalog, nil, testSourcingConfig())
	e.now = func() time.Time { return time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestGetCandidatesPoolOnly(t *testing.T) {
	batch := make([]models.Candidate, 0, 20)
	for i := int64(1); i <= 20; i++ {
		batch = append(batch, poolCandidate(i, nil))
	}
	pool := &fakePool{batch: batch}
	catalog := &fakeCatalog{}
	e := newTestEngine(pool, catalog)

	got, err := e.GetCandidates(context.Background(), Request{
		Kind:  models.MediaMovie,
		Limit: 10,
		Mode:  models.DiscoveryBalanced,
	})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("got %d candidates, want 10", len(got))
	}
	if discover, search, _ := catalog.calls(); discover != 0 || search != 0 {
		t.Errorf("external provider called (%d discover, %d search) despite full pool", discover, search)
	}
	if pool.queryCount() != 1 {
		t.Errorf("pool queried %d times, want 1 (no widen needed)", pool.queryCount())
	}
	if pool.queries[0].Limit != 10*testSourcingConfig().PoolOversample {
		t.Errorf("pool limit = %d, want oversampled", pool.queries[0].Limit)
	}
}

func TestGetCandidatesWidensOnce(t *testing.T) {
	// Only three pool candidates; the engine must retry with the year
	// tolerance widened and the rating floor dropped.
	pool := &fakePool{batch: []models.Candidate{
		poolCandidate(1, nil), poolCandidate(2, nil), poolCandidate(3, nil),
	}}
	e := newTestEngine(pool, &fakeCatalog{})

	got, err := e.GetCandidates(context.Background(), Request{
		Kind:  models.MediaMovie,
		Limit: 10,
		Mode:  models.DiscoveryBalanced,
		Filters: models.ListFilters{
			YearMin:   2000,
			YearMax:   2020,
			MinRating: 6.5,
		},
		PersistentOnly: true,
	})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d candidates, want the 3 available", len(got))
	}
	if pool.queryCount() != 2 {
		t.Fatalf("pool queried %d times, want exactly 2 (base + one widen)", pool.queryCount())
	}
	widened := pool.queries[1]
	if widened.YearMin != 2000-15 || widened.YearMax != 2020+15 {
		t.Errorf("widened years = [%d, %d], want [1985, 2035]", widened.YearMin, widened.YearMax)
	}
	if widened.MinRating != 0 {
		t.Errorf("widened MinRating = %v, want rating floor dropped", widened.MinRating)
	}
}

func TestGetCandidatesDeduplicates(t *testing.T) {
	// Pool and external overlap on catalog ID 1; the external batch also
	// carries a title-keyed duplicate of "Title 2" that must be dropped in
	// favor of the catalog-backed pool copy.
	pool := &fakePool{batch: []models.Candidate{
		poolCandidate(1, nil),
		poolCandidate(2, nil),
	}}
	titleDup := poolCandidate(0, func(c *models.Candidate) {
		c.CatalogID = 0
		c.Title = "Title 2"
	})
	catalog := &fakeCatalog{discovered: []models.Candidate{
		poolCandidate(1, nil),
		titleDup,
		poolCandidate(3, nil),
	}}
	e := newTestEngine(pool, catalog)

	got, err := e.GetCandidates(context.Background(), Request{
		Kind: models.MediaMovie, Limit: 10, Mode: models.DiscoveryBalanced,
	})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}

	seen := make(map[string]struct{}, len(got))
	for i := range got {
		key := got[i].Key()
		if _, dup := seen[key]; dup {
			t.Errorf("duplicate key %q in output", key)
		}
		seen[key] = struct{}{}
	}
	if len(got) != 3 {
		t.Errorf("got %d candidates, want 3 unique", len(got))
	}
	for i := range got {
		if got[i].Title == "Title 2" && got[i].CatalogID != 2 {
			t.Errorf("title duplicate won over the catalog-backed copy")
		}
	}
}

func TestGetCandidatesFanoutFailureAbsorbed(t *testing.T) {
	// Discovery is down; keyword search still delivers. Partial upstream
	// failure must degrade completeness, not fail the pass.
	catalog := &fakeCatalog{
		discoverErr: providers.ErrUnavailable,
		searched:    []models.Candidate{poolCandidate(7, nil), poolCandidate(8, nil)},
	}
	e := newTestEngine(&fakePool{}, catalog)

	got, err := e.GetCandidates(context.Background(), Request{
		Kind:    models.MediaMovie,
		Limit:   5,
		Mode:    models.DiscoveryBalanced,
		Filters: models.ListFilters{Keywords: []string{"heist"}},
	})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d candidates, want the 2 from search", len(got))
	}
}

func TestGetCandidatesZeroRaises(t *testing.T) {
	catalog := &fakeCatalog{
		discoverErr: providers.ErrUnavailable,
		searchErr:   providers.ErrUnavailable,
	}
	e := newTestEngine(&fakePool{}, catalog)

	_, err := e.GetCandidates(context.Background(), Request{
		Kind: models.MediaMovie, Limit: 5, Mode: models.DiscoveryBalanced,
	})
	if !errors.Is(err, ErrSourcingUnavailable) {
		t.Fatalf("err = %v, want ErrSourcingUnavailable", err)
	}
}

func TestGetCandidatesPersistentOnlySkipsExternal(t *testing.T) {
	catalog := &fakeCatalog{discovered: []models.Candidate{poolCandidate(9, nil)}}
	e := newTestEngine(&fakePool{}, catalog)

	_, err := e.GetCandidates(context.Background(), Request{
		Kind:           models.MediaMovie,
		Limit:          5,
		Mode:           models.DiscoveryBalanced,
		PersistentOnly: true,
	})
	if !errors.Is(err, ErrSourcingUnavailable) {
		t.Fatalf("err = %v, want ErrSourcingUnavailable with empty pool", err)
	}
	if discover, search, _ := catalog.calls(); discover != 0 || search != 0 {
		t.Errorf("external provider called in persistent-only mode")
	}
}

func TestGetCandidatesStaleRetention(t *testing.T) {
	// Ten pool candidates, four already on the list. Fresh supply (6) is
	// short of the limit (8), so up to 25% of the limit (2) may be
	// re-sourced from the already-listed items.
	batch := make([]models.Candidate, 0, 10)
	for i := int64(1); i <= 10; i++ {
		batch = append(batch, poolCandidate(i, nil))
	}
	existing := make(map[string]struct{})
	for i := 0; i < 4; i++ {
		existing[batch[i].Key()] = struct{}{}
	}
	e := newTestEngine(&fakePool{batch: batch}, &fakeCatalog{})

	got, err := e.GetCandidates(context.Background(), Request{
		Kind:             models.MediaMovie,
		Limit:            8,
		Mode:             models.DiscoveryBalanced,
		ExistingListKeys: existing,
		PersistentOnly:   true,
	})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("got %d candidates, want 8", len(got))
	}
	stale := 0
	for i := range got {
		if _, listed := existing[got[i].Key()]; listed {
			stale++
		}
	}
	if stale != 2 {
		t.Errorf("retained %d stale items, want exactly 2 (25%% of limit)", stale)
	}
}

func TestGetCandidatesExcludeKeysNeverReturned(t *testing.T) {
	batch := []models.Candidate{
		poolCandidate(1, nil), poolCandidate(2, nil), poolCandidate(3, nil),
	}
	excluded := map[string]struct{}{batch[0].Key(): {}}
	e := newTestEngine(&fakePool{batch: batch}, &fakeCatalog{})

	got, err := e.GetCandidates(context.Background(), Request{
		Kind:           models.MediaMovie,
		Limit:          3,
		Mode:           models.DiscoveryBalanced,
		ExcludeKeys:    excluded,
		PersistentOnly: true,
	})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	for i := range got {
		if _, bad := excluded[got[i].Key()]; bad {
			t.Errorf("excluded key %q returned", got[i].Key())
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d candidates, want 2", len(got))
	}
}

func TestGetCandidatesStrictLanguageFilter(t *testing.T) {
	// With an active language filter, an item whose language is still
	// unknown after enrichment must be excluded, not given a pass.
	known := poolCandidate(1, func(c *models.Candidate) { c.Language = "fr" })
	unknown := poolCandidate(2, func(c *models.Candidate) { c.Language = "" })
	catalog := &fakeCatalog{detailErr: providers.ErrUnavailable}
	e := newTestEngine(&fakePool{batch: []models.Candidate{known, unknown}}, catalog)

	got, err := e.GetCandidates(context.Background(), Request{
		Kind:           models.MediaMovie,
		Limit:          5,
		Mode:           models.DiscoveryBalanced,
		Filters:        models.ListFilters{Languages: []string{"fr"}},
		PersistentOnly: true,
	})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(got) != 1 || got[0].CatalogID != 1 {
		t.Fatalf("strict language filter passed metadata-less item: %+v", got)
	}
}

func TestGetCandidatesEnrichment(t *testing.T) {
	bare := poolCandidate(5, func(c *models.Candidate) {
		c.Genres = nil
		c.Overview = ""
	})
	catalog := &fakeCatalog{details: map[int64]*models.Candidate{
		5: {
			CatalogID: 5,
			Kind:      models.MediaMovie,
			Genres:    []string{"Sci-Fi & Fantasy"},
			Keywords:  []string{"space"},
			Overview:  "A crew drifts beyond the charted systems.",
			Language:  "en",
			PosterURL: "https://img.example/5.jpg",
		},
	}}
	pool := &fakePool{batch: []models.Candidate{bare}, persistC: make(chan struct{}, 1)}
	e := newTestEngine(pool, catalog)

	got, err := e.GetCandidates(context.Background(), Request{
		Kind:           models.MediaMovie,
		Limit:          1,
		Mode:           models.DiscoveryBalanced,
		Filters:        models.ListFilters{Genres: []string{"science fiction"}},
		PersistentOnly: true,
	})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want the enriched one", len(got))
	}
	if !got[0].HasMetadata() {
		t.Error("candidate not enriched")
	}
	if got[0].Genres[0] != "science fiction" {
		t.Errorf("enriched genres = %v, want normalized", got[0].Genres)
	}
	if got[0].PosterURL == "" {
		t.Error("poster not merged from detail")
	}

	// The enriched candidate is persisted back asynchronously.
	select {
	case <-pool.persistC:
	case <-time.After(2 * time.Second):
		t.Fatal("async persist-back never ran")
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if len(pool.upserted) != 1 || !pool.upserted[0].Active {
		t.Errorf("persisted %+v, want one active candidate", pool.upserted)
	}
}

func TestGetCandidatesEnrichmentFailureExcludesFiltered(t *testing.T) {
	// Genre filter active, metadata fetch down: the bare item cannot prove
	// it matches and is excluded.
	bare := poolCandidate(5, func(c *models.Candidate) {
		c.Genres = nil
		c.Overview = ""
	})
	catalog := &fakeCatalog{detailErr: providers.ErrUnavailable}
	e := newTestEngine(&fakePool{batch: []models.Candidate{bare}}, catalog)

	_, err := e.GetCandidates(context.Background(), Request{
		Kind:           models.MediaMovie,
		Limit:          1,
		Mode:           models.DiscoveryBalanced,
		Filters:        models.ListFilters{Genres: []string{"drama"}},
		PersistentOnly: true,
	})
	if !errors.Is(err, ErrSourcingUnavailable) {
		t.Fatalf("err = %v, want ErrSourcingUnavailable", err)
	}
}

func TestDedupSetTitleUpgrade(t *testing.T) {
	s := newDedupSet()
	s.add(models.Candidate{Title: "Solaris", Year: 1972, Kind: models.MediaMovie})
	s.add(models.Candidate{CatalogID: 42, Title: "Solaris", Year: 1972, Kind: models.MediaMovie})

	if len(s.items) != 1 {
		t.Fatalf("set holds %d items, want 1", len(s.items))
	}
	if s.items[0].CatalogID != 42 {
		t.Errorf("catalog-backed copy did not replace the title-keyed one")
	}

	// Reverse order: title-keyed copy arriving second is a duplicate.
	s2 := newDedupSet()
	s2.add(models.Candidate{CatalogID: 42, Title: "Solaris", Year: 1972, Kind: models.MediaMovie})
	s2.add(models.Candidate{Title: "Solaris", Year: 1972, Kind: models.MediaMovie})
	if len(s2.items) != 1 || s2.items[0].CatalogID != 42 {
		t.Errorf("title-keyed duplicate was not dropped: %+v", s2.items)
	}
}

func TestPassesStrictFilters(t *testing.T) {
	tests := []struct {
		name    string
		mut     func(*models.Candidate)
		filters models.ListFilters
		want    bool
	}{
		{"no filters", nil, models.ListFilters{}, true},
		{"language match", nil, models.ListFilters{Languages: []string{"en"}}, true},
		{"language mismatch", nil, models.ListFilters{Languages: []string{"ko"}}, false},
		{
			"language missing with filter",
			func(c *models.Candidate) { c.Language = "" },
			models.ListFilters{Languages: []string{"en"}},
			false,
		},
		{"genre match", nil, models.ListFilters{Genres: []string{"drama"}}, true},
		{
			"genre missing with filter",
			func(c *models.Candidate) { c.Genres = nil },
			models.ListFilters{Genres: []string{"drama"}},
			false,
		},
		{
			"adult blocked by default",
			func(c *models.Candidate) { c.Adult = true },
			models.ListFilters{},
			false,
		},
		{
			"adult allowed when opted in",
			func(c *models.Candidate) { c.Adult = true },
			models.ListFilters{AllowAdult: true},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := poolCandidate(1, tt.mut)
			if got := passesStrictFilters(&c, &tt.filters); got != tt.want {
				t.Errorf("passesStrictFilters = %v, want %v", got, tt.want)
			}
		})
	}
}
