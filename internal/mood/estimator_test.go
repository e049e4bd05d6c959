// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package mood

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/curatarr/internal/cache"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
)

type fakeActivity struct {
	providers.Activity

	history      []providers.HistoryEntry
	historyErr   error
	historyCalls int
}

func (f *fakeActivity) WatchHistory(_ context.Context, _ string, kind models.MediaKind, _ int) ([]providers.HistoryEntry, error) {
	f.historyCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var out []providers.HistoryEntry
	for _, e := range f.history {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeLists struct {
	lists []models.ListSnapshot
	err   error
}

func (f *fakeLists) ListsForUser(context.Context, string) ([]models.ListSnapshot, error) {
	return f.lists, f.err
}

var testNow = time.Date(2026, 8, 19, 20, 0, 0, 0, time.UTC) // a Wednesday

func newTestEstimator(activity *fakeActivity, lists *fakeLists) *Estimator {
	e := NewEstimator(activity, lists, cache.NewMemory(time.Hour),
		config.MoodConfig{HistoryDays: 90, HistoryLimit: 500},
		config.CacheConfig{MoodTTL: 24 * time.Hour, FallbackMoodTTL: 6 * time.Hour})
	e.now = func() time.Time { return testNow }
	return e
}

func watched(kind models.MediaKind, genres []string, age time.Duration) providers.HistoryEntry {
	return providers.HistoryEntry{
		Kind:      kind,
		Genres:    genres,
		WatchedAt: testNow.Add(-age),
	}
}

func assertNormalized(t *testing.T, v models.MoodVector) {
	t.Helper()
	sum := v.Sum()
	if sum != 0 && (sum < 0.999 || sum > 1.001) {
		t.Errorf("vector sum = %v, want 0 or within [0.999, 1.001]", sum)
	}
}

func TestEnsureMoodFromHistory(t *testing.T) {
	activity := &fakeActivity{history: []providers.HistoryEntry{
		watched(models.MediaMovie, []string{"comedy"}, 24*time.Hour),
		watched(models.MediaMovie, []string{"comedy"}, 48*time.Hour),
		watched(models.MediaShow, []string{"horror"}, 60*24*time.Hour),
	}}
	e := newTestEstimator(activity, &fakeLists{})

	v := e.EnsureMood(context.Background(), "user-1")
	assertNormalized(t, v)
	if v.IsZero() {
		t.Fatal("expected a non-neutral vector from history")
	}
	// Two recent comedies at weight 1.0 outweigh one old horror at 0.4.
	if v[models.MoodHappy] <= v[models.MoodTense] {
		t.Errorf("happy=%v tense=%v, want recent comedies to dominate", v[models.MoodHappy], v[models.MoodTense])
	}
}

func TestRecencyBuckets(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"within a week", 3 * 24 * time.Hour, 1.0},
		{"within a month", 20 * 24 * time.Hour, 0.7},
		{"older", 80 * 24 * time.Hour, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recencyWeight(tt.age); got != tt.want {
				t.Errorf("recencyWeight(%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestHistoryWindowExcludesOldWatches(t *testing.T) {
	activity := &fakeActivity{history: []providers.HistoryEntry{
		watched(models.MediaMovie, []string{"horror"}, 200*24*time.Hour),
	}}
	e := newTestEstimator(activity, &fakeLists{})

	v := e.EnsureMood(context.Background(), "user-1")
	if !v.IsZero() {
		t.Errorf("history outside the 90-day window produced vector %v, want neutral", v)
	}
}

func TestFallbackFromLists(t *testing.T) {
	lists := &fakeLists{lists: []models.ListSnapshot{
		{
			Name:      "Date Night",
			Filters:   models.ListFilters{Genres: []string{"romance"}},
			CreatedAt: testNow.Add(-10 * 24 * time.Hour),
		},
		{
			Name:      "Old Dusty Horror",
			Filters:   models.ListFilters{Genres: []string{"horror"}},
			CreatedAt: testNow.Add(-300 * 24 * time.Hour),
		},
	}}
	e := newTestEstimator(&fakeActivity{}, lists)

	v := e.EnsureMood(context.Background(), "user-1")
	assertNormalized(t, v)
	if v.IsZero() {
		t.Fatal("expected a list-derived fallback vector")
	}
	// The fresh list carries weight 1.0 against 0.4 for the old one.
	if v[models.MoodRomantic] <= v[models.MoodTense] {
		t.Errorf("romantic=%v tense=%v, want the newer list to dominate", v[models.MoodRomantic], v[models.MoodTense])
	}
}

func TestFallbackMatchesTitleKeywords(t *testing.T) {
	lists := &fakeLists{lists: []models.ListSnapshot{
		{Name: "Cozy evenings", CreatedAt: testNow.Add(-24 * time.Hour)},
	}}
	e := newTestEstimator(&fakeActivity{}, lists)

	v := e.EnsureMood(context.Background(), "user-1")
	if v[models.MoodRelaxed] == 0 {
		t.Errorf("relaxed = 0, want the 'cozy' title keyword to register: %v", v)
	}
}

func TestNeutralLastResort(t *testing.T) {
	activity := &fakeActivity{historyErr: providers.ErrUnavailable}
	e := newTestEstimator(activity, &fakeLists{})

	v := e.EnsureMood(context.Background(), "user-1")
	if !v.IsZero() {
		t.Fatalf("expected neutral vector, got %v", v)
	}

	// The neutral vector is cached: no provider re-fetch on the next call.
	calls := activity.historyCalls
	_ = e.EnsureMood(context.Background(), "user-1")
	if activity.historyCalls != calls {
		t.Error("neutral vector was not cached; history re-fetched")
	}
}

func TestEnsureMoodCaches(t *testing.T) {
	activity := &fakeActivity{history: []providers.HistoryEntry{
		watched(models.MediaMovie, []string{"comedy"}, 24*time.Hour),
	}}
	e := newTestEstimator(activity, &fakeLists{})

	first := e.EnsureMood(context.Background(), "user-1")
	calls := activity.historyCalls
	second := e.EnsureMood(context.Background(), "user-1")
	if activity.historyCalls != calls {
		t.Error("cached mood was recomputed")
	}
	if first.Cosine(second) < 0.999 {
		t.Errorf("cached vector diverged: %v vs %v", first, second)
	}

	e.Invalidate("user-1")
	_ = e.EnsureMood(context.Background(), "user-1")
	if activity.historyCalls == calls {
		t.Error("invalidated mood was not recomputed")
	}
}

func TestDeriveUnknownGenres(t *testing.T) {
	v := Derive([]string{"telenovela", "unlisted"}, []string{"obscure keyword"})
	if !v.IsZero() {
		t.Errorf("unknown genres/keywords produced %v, want zero", v)
	}
}

func TestDeriveNormalizesSynonyms(t *testing.T) {
	// "sci-fi & fantasy" normalizes to "science fiction" before lookup.
	v := Derive([]string{"Sci-Fi & Fantasy"}, nil)
	if v[models.MoodCurious] == 0 {
		t.Errorf("synonym genre did not contribute: %v", v)
	}
}

func TestContextAdjust(t *testing.T) {
	base := models.MoodVector{models.MoodTense: 0.5, models.MoodHappy: 0.5}

	evening := time.Date(2026, 8, 19, 20, 0, 0, 0, time.UTC)
	adjusted := ContextAdjust(base, evening)
	assertNormalized(t, adjusted)
	if adjusted[models.MoodTense] <= adjusted[models.MoodHappy] {
		t.Errorf("evening adjustment: tense=%v happy=%v, want tense boosted", adjusted[models.MoodTense], adjusted[models.MoodHappy])
	}

	// The input must not be mutated.
	if base[models.MoodTense] != 0.5 {
		t.Errorf("ContextAdjust mutated its input: %v", base)
	}

	neutral := models.NewMoodVector()
	if got := ContextAdjust(neutral, evening); !got.IsZero() {
		t.Errorf("neutral vector adjusted to %v, want unchanged", got)
	}
}
