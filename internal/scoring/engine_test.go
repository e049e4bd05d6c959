// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package scoring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
)

type fakeActivity struct {
	providers.Activity

	history map[models.MediaKind][]providers.HistoryEntry
	ratings map[models.MediaKind]map[int64]providers.Rating
	err     error
}

func (f *fakeActivity) WatchHistory(_ context.Context, _ string, kind models.MediaKind, _ int) ([]providers.HistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history[kind], nil
}

func (f *fakeActivity) Ratings(_ context.Context, _ string, kind models.MediaKind) (map[int64]providers.Rating, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ratings[kind], nil
}

type staticMood struct {
	vector models.MoodVector
}

func (s *staticMood) EnsureMood(context.Context, string) models.MoodVector {
	if s.vector == nil {
		return models.NewMoodVector()
	}
	return s.vector.Clone()
}

func testConfig() config.ScoringConfig {
	return config.ScoringConfig{
		DiversityLambda:   0.65,
		TopK:              200,
		ThumbsUpBoost:     1.3,
		ThumbsDownPenalty: 0.3,
	}
}

func newTestEngine(activity *fakeActivity, moods *staticMood) *Engine {
	e := NewEngine(activity, moods, testConfig())
	e.now = func() time.Time { return time.Date(2026, 8, 19, 20, 0, 0, 0, time.UTC) }
	return e
}

func testCandidate(id int64, mut func(*models.Candidate)) models.Candidate {
	c := models.Candidate{
		CatalogID:  id,
		Kind:       models.MediaMovie,
		Title:      fmt.Sprintf("Title %d", id),
		Year:       2015,
		Language:   "en",
		Genres:     []string{"drama"},
		Overview:   "a quiet character study about loss and renewal",
		Popularity: 20,
		Rating:     7.0,
		VoteCount:  500,
		Active:     true,
	}
	if mut != nil {
		mut(&c)
	}
	return c
}

func candidateBatch(n int) []models.Candidate {
	genres := [][]string{
		{"drama"}, {"comedy"}, {"thriller"}, {"science fiction"}, {"romance"},
	}
	out := make([]models.Candidate, 0, n)
	for i := 0; i < n; i++ {
		i := i
		out = append(out, testCandidate(int64(i+1), func(c *models.Candidate) {
			c.Genres = genres[i%len(genres)]
			c.Year = 1990 + (i*3)%35
			c.Rating = 5.0 + float64(i%50)/10.0
			c.Popularity = float64((i * 7) % 100)
			c.Obscurity = float64((i*13)%100) / 100.0
		}))
	}
	return out
}

func TestScoreZeroHistoryDiscovery(t *testing.T) {
	// A brand-new user: no history, no ratings, neutral mood. Discovery
	// scoring must rank 20 movies without error.
	e := newTestEngine(&fakeActivity{}, &staticMood{})

	got := e.Score(context.Background(), Request{
		UserID:    "new-user",
		Mode:      models.ScoringDiscovery,
		Filters:   models.ListFilters{},
		ItemLimit: 20,
	}, candidateBatch(60))

	if len(got) != 20 {
		t.Fatalf("got %d results, want 20", len(got))
	}
	for i := range got {
		if got[i].Score <= 0 {
			t.Errorf("result %d has score %v, want > 0", i, got[i].Score)
		}
		if got[i].Rationale == "" {
			t.Errorf("result %d missing rationale", i)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	activity := &fakeActivity{
		history: map[models.MediaKind][]providers.HistoryEntry{
			models.MediaMovie: {
				{CatalogID: 1, Title: "Seen Drama", Genres: []string{"drama"}},
			},
		},
		ratings: map[models.MediaKind]map[int64]providers.Rating{
			models.MediaMovie: {1: providers.ThumbsUp},
		},
	}
	moods := &staticMood{vector: models.MoodVector{models.MoodReflective: 0.6, models.MoodTense: 0.4}}
	req := Request{
		UserID:    "user-1",
		Mode:      models.ScoringSmartlist,
		Filters:   models.ListFilters{AnchorText: "slow reflective character drama"},
		ItemLimit: 15,
	}
	batch := candidateBatch(50)

	first := newTestEngine(activity, moods).Score(context.Background(), req, batch)
	second := newTestEngine(activity, moods).Score(context.Background(), req, batch)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Candidate.Key() != second[i].Candidate.Key() {
			t.Fatalf("rank %d differs: %s vs %s", i, first[i].Candidate.Key(), second[i].Candidate.Key())
		}
		if first[i].Score != second[i].Score {
			t.Errorf("rank %d score differs: %v vs %v", i, first[i].Score, second[i].Score)
		}
	}
}

func TestScoreLimitInvariant(t *testing.T) {
	e := newTestEngine(&fakeActivity{}, &staticMood{})
	for _, limit := range []int{1, 5, 100} {
		got := e.Score(context.Background(), Request{
			UserID: "u", Mode: models.ScoringDiscovery, ItemLimit: limit,
		}, candidateBatch(30))
		if len(got) > limit {
			t.Errorf("limit %d returned %d items", limit, len(got))
		}
	}
}

func TestHardFilters(t *testing.T) {
	base := models.ListFilters{}
	tests := []struct {
		name      string
		candidate models.Candidate
		filters   models.ListFilters
		want      bool
	}{
		{
			name:      "adult excluded by default",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Adult = true }),
			filters:   base,
			want:      false,
		},
		{
			name:      "adult allowed when opted in",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Adult = true }),
			filters:   models.ListFilters{AllowAdult: true},
			want:      true,
		},
		{
			name:      "language mismatch",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Language = "fr" }),
			filters:   models.ListFilters{Languages: []string{"en"}},
			want:      false,
		},
		{
			name:      "missing language passes loose filter",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Language = "" }),
			filters:   models.ListFilters{Languages: []string{"en"}},
			want:      true,
		},
		{
			name:      "year below window",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Year = 1975 }),
			filters:   models.ListFilters{YearMin: 1990},
			want:      false,
		},
		{
			name:      "rating below floor",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Rating = 5.5 }),
			filters:   models.ListFilters{MinRating: 7},
			want:      false,
		},
		{
			name:      "genre mismatch with metadata",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Genres = []string{"horror"} }),
			filters:   models.ListFilters{Genres: []string{"comedy"}},
			want:      false,
		},
		{
			name:      "genre synonym matches",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Genres = []string{"sci-fi"} }),
			filters:   models.ListFilters{Genres: []string{"science fiction"}},
			want:      true,
		},
		{
			name:      "show excluded from movie-only list",
			candidate: testCandidate(1, func(c *models.Candidate) { c.Kind = models.MediaShow }),
			filters:   base,
			want:      false,
		},
		{
			name: "excluded studio keyword",
			candidate: testCandidate(1, func(c *models.Candidate) {
				c.Keywords = []string{"grindhouse pictures", "revenge"}
			}),
			filters: models.ListFilters{ExcludeStudios: []string{"Grindhouse Pictures"}},
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := passesHardFilters(&tt.candidate, &tt.filters); got != tt.want {
				t.Errorf("passesHardFilters = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThumbsMultiplier(t *testing.T) {
	activity := &fakeActivity{
		ratings: map[models.MediaKind]map[int64]providers.Rating{
			models.MediaMovie: {
				1: providers.ThumbsUp,
				2: providers.ThumbsDown,
			},
		},
	}
	e := newTestEngine(activity, &staticMood{})

	// Two otherwise identical candidates: the thumbed-up one must rank
	// first and the thumbed-down one last.
	batch := []models.Candidate{
		testCandidate(1, nil),
		testCandidate(2, nil),
		testCandidate(3, nil),
	}
	got := e.Score(context.Background(), Request{
		UserID: "u", Mode: models.ScoringTraditional, ItemLimit: 3, DiversityLambda: 1.0,
	}, batch)

	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if got[0].Candidate.CatalogID != 1 {
		t.Errorf("first = %d, want thumbed-up candidate 1", got[0].Candidate.CatalogID)
	}
	if got[2].Candidate.CatalogID != 2 {
		t.Errorf("last = %d, want thumbed-down candidate 2", got[2].Candidate.CatalogID)
	}
	if got[0].Score <= got[1].Score*1.2 {
		t.Errorf("thumbs-up boost too weak: %v vs unrated %v", got[0].Score, got[1].Score)
	}
}

func TestAdvancedModeUsesAnchorText(t *testing.T) {
	e := newTestEngine(&fakeActivity{}, &staticMood{})

	onTheme := testCandidate(1, func(c *models.Candidate) {
		c.Overview = "a lonely astronaut drifts through deep space seeking rescue"
		c.Keywords = []string{"space"}
	})
	offTheme := testCandidate(2, func(c *models.Candidate) {
		c.Overview = "wedding hijinks in a small coastal town"
	})

	got := e.Score(context.Background(), Request{
		UserID:    "u",
		Mode:      models.ScoringTheme,
		Filters:   models.ListFilters{AnchorText: "astronaut stranded in space survival rescue"},
		ItemLimit: 2,
	}, []models.Candidate{offTheme, onTheme})

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Candidate.CatalogID != 1 {
		t.Errorf("first = %d, want the on-theme candidate", got[0].Candidate.CatalogID)
	}
	if got[0].Components[models.ComponentSemantic] <= got[1].Components[models.ComponentSemantic] {
		t.Errorf("semantic components not ordered: %v vs %v",
			got[0].Components[models.ComponentSemantic], got[1].Components[models.ComponentSemantic])
	}
}

func TestMoodAlignmentComponent(t *testing.T) {
	moods := &staticMood{vector: models.MoodVector{models.MoodTense: 1.0}}
	e := newTestEngine(&fakeActivity{}, moods)

	thriller := testCandidate(1, func(c *models.Candidate) { c.Genres = []string{"horror"} })
	comedy := testCandidate(2, func(c *models.Candidate) { c.Genres = []string{"comedy"} })

	got := e.Score(context.Background(), Request{
		UserID: "u", Mode: models.ScoringMood, ItemLimit: 2,
	}, []models.Candidate{comedy, thriller})

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Candidate.CatalogID != 1 {
		t.Errorf("first = %d, want the mood-aligned horror candidate", got[0].Candidate.CatalogID)
	}
}

func TestScoreProviderFailureDegrades(t *testing.T) {
	activity := &fakeActivity{err: providers.ErrUnavailable}
	e := newTestEngine(activity, &staticMood{})

	got := e.Score(context.Background(), Request{
		UserID: "u", Mode: models.ScoringTraditional, ItemLimit: 10,
	}, candidateBatch(20))
	if len(got) != 10 {
		t.Fatalf("provider failure broke scoring: got %d results, want 10", len(got))
	}
}

func TestTextSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		doc    string
		zero   bool
	}{
		{"identical text", "space station thriller", "space station thriller", false},
		{"disjoint text", "romantic comedy wedding", "submarine warfare documentary", true},
		{"empty anchor", "", "anything at all", true},
		{"stopwords only", "the and for with", "the and for with", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textSimilarity(tt.anchor, tt.doc)
			if tt.zero && got != 0 {
				t.Errorf("similarity = %v, want 0", got)
			}
			if !tt.zero && got <= 0 {
				t.Errorf("similarity = %v, want > 0", got)
			}
			if got < 0 || got > 1.0001 {
				t.Errorf("similarity %v outside [0,1]", got)
			}
		})
	}
}
