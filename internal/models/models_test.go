// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package models

import (
	"math"
	"testing"
)

func TestCandidateKey(t *testing.T) {
	activityID := int64(987)

	tests := []struct {
		name      string
		candidate Candidate
		want      string
	}{
		{
			"catalog id preferred",
			Candidate{CatalogID: 42, ActivityID: &activityID, Kind: MediaMovie},
			"catalog:42:movie",
		},
		{
			"activity id fallback",
			Candidate{ActivityID: &activityID, Kind: MediaShow},
			"activity:987:show",
		},
		{
			"synthetic title key, never a fabricated numeric id",
			Candidate{Title: "Stalker", Year: 1979, Kind: MediaMovie},
			"title:Stalker:1979:movie",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.candidate.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoodVectorNormalize(t *testing.T) {
	v := NewMoodVector()
	v[MoodHappy] = 2
	v[MoodTense] = 1
	v[MoodCurious] = 1

	v.Normalize()

	sum := v.Sum()
	if math.Abs(sum-1.0) > 0.001 {
		t.Errorf("normalized sum = %f, want 1.0", sum)
	}
	if math.Abs(v[MoodHappy]-0.5) > 1e-9 {
		t.Errorf("happy = %f, want 0.5", v[MoodHappy])
	}
}

func TestMoodVectorNormalizeNeutral(t *testing.T) {
	v := NewMoodVector()
	v.Normalize()
	if !v.IsZero() {
		t.Error("neutral vector must stay zero after Normalize")
	}
	if v.Sum() != 0 {
		t.Errorf("neutral sum = %f, want 0", v.Sum())
	}
}

func TestMoodVectorCosine(t *testing.T) {
	a := NewMoodVector()
	a[MoodHappy] = 1

	b := NewMoodVector()
	b[MoodHappy] = 1

	if sim := a.Cosine(b); math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("identical vectors cosine = %f, want 1.0", sim)
	}

	c := NewMoodVector()
	c[MoodTense] = 1
	if sim := a.Cosine(c); sim != 0 {
		t.Errorf("orthogonal vectors cosine = %f, want 0", sim)
	}

	neutral := NewMoodVector()
	if sim := a.Cosine(neutral); sim != 0 {
		t.Errorf("neutral cosine = %f, want 0", sim)
	}
}

func TestNormalizeGenre(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"War & Politics", "drama"},
		{"Sci-Fi & Fantasy", "science fiction"},
		{"sci-fi", "science fiction"},
		{"Action & Adventure", "action"},
		{"  Drama  ", "drama"},
		{"Horror", "horror"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeGenre(tt.input); got != tt.want {
				t.Errorf("NormalizeGenre(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeGenresDeduplicates(t *testing.T) {
	got := NormalizeGenres([]string{"Sci-Fi", "Science Fiction", "Drama"})
	want := []string{"science fiction", "drama"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeGenres() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeGenres()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMatchesGenres(t *testing.T) {
	candidate := []string{"drama", "thriller"}

	tests := []struct {
		name   string
		filter []string
		mode   GenreMode
		want   bool
	}{
		{"empty filter matches", nil, GenreAny, true},
		{"any mode one hit", []string{"thriller", "comedy"}, GenreAny, true},
		{"any mode no hit", []string{"comedy"}, GenreAny, false},
		{"all mode full hit", []string{"drama", "thriller"}, GenreAll, true},
		{"all mode partial hit", []string{"drama", "comedy"}, GenreAll, false},
		{"synonym resolved", []string{"Suspense"}, GenreAny, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesGenres(candidate, tt.filter, tt.mode); got != tt.want {
				t.Errorf("MatchesGenres() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListFiltersDefaults(t *testing.T) {
	var f ListFilters
	kinds := f.AllowedKinds()
	if len(kinds) != 1 || kinds[0] != MediaMovie {
		t.Errorf("AllowedKinds() = %v, want [movie]", kinds)
	}
	if !f.AllowsKind(MediaMovie) {
		t.Error("default filters must allow movies")
	}
	if f.AllowsKind(MediaShow) {
		t.Error("default filters must not allow shows")
	}
	if f.Mode() != DiscoveryBalanced {
		t.Errorf("Mode() = %q, want balanced", f.Mode())
	}
}

func TestScoringModeAdvanced(t *testing.T) {
	advanced := []ScoringMode{ScoringSmartlist, ScoringMood, ScoringFusion, ScoringTheme, ScoringChat}
	for _, m := range advanced {
		if !m.Advanced() {
			t.Errorf("%s should be advanced", m)
		}
	}
	for _, m := range []ScoringMode{ScoringDiscovery, ScoringTraditional} {
		if m.Advanced() {
			t.Errorf("%s should not be advanced", m)
		}
	}
}
