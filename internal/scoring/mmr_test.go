// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package scoring

import (
	"testing"

	"github.com/tomtom215/curatarr/internal/models"
)

func scoredBatch() []models.ScoredCandidate {
	genres := [][]string{
		{"drama"}, {"drama"}, {"drama"}, {"drama"},
		{"comedy"}, {"thriller"}, {"science fiction"}, {"romance"},
	}
	out := make([]models.ScoredCandidate, 0, len(genres))
	for i, g := range genres {
		out = append(out, models.ScoredCandidate{
			Candidate: testCandidate(int64(i+1), func(c *models.Candidate) {
				c.Genres = g
				c.Year = 2010 + i
			}),
			// Descending scores so the naive top-N is the dramas.
			Score: 1.0 - float64(i)*0.05,
		})
	}
	return out
}

func TestSelectMMRLimits(t *testing.T) {
	items := scoredBatch()

	tests := []struct {
		name   string
		k      int
		lambda float64
		want   int
	}{
		{"k smaller than batch", 4, 0.65, 4},
		{"k larger than batch", 50, 0.65, len(items)},
		{"zero k", 0, 0.65, 0},
		{"pure relevance", 3, 1.0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectMMR(items, tt.k, tt.lambda)
			if len(got) != tt.want {
				t.Errorf("selected %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSelectMMRPureRelevanceKeepsOrder(t *testing.T) {
	items := scoredBatch()
	got := SelectMMR(items, 4, 1.0)
	for i := range got {
		if got[i].Candidate.CatalogID != items[i].Candidate.CatalogID {
			t.Fatalf("rank %d = %d, want score order preserved", i, got[i].Candidate.CatalogID)
		}
	}
}

func TestSelectMMRFirstPickIsTopScore(t *testing.T) {
	items := scoredBatch()
	got := SelectMMR(items, 4, 0.5)
	if got[0].Candidate.CatalogID != items[0].Candidate.CatalogID {
		t.Errorf("first pick = %d, want the highest-scoring item", got[0].Candidate.CatalogID)
	}
}

func TestSelectMMRDiversityNonDegradation(t *testing.T) {
	// The MMR-selected set's average pairwise similarity must not exceed
	// the naive top-N set's, for lambda < 1.
	items := scoredBatch()
	const k = 4

	naive := items[:k]
	diversified := SelectMMR(items, k, 0.5)

	naiveSim := avgPairwiseSimilarity(naive)
	mmrSim := avgPairwiseSimilarity(diversified)
	if mmrSim > naiveSim {
		t.Errorf("MMR similarity %v exceeds naive top-N similarity %v", mmrSim, naiveSim)
	}
}

func TestGenreJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"drama", "crime"}, []string{"drama", "crime"}, 1.0},
		{"disjoint", []string{"drama"}, []string{"comedy"}, 0},
		{"half overlap", []string{"drama", "crime"}, []string{"drama", "war"}, 1.0 / 3.0},
		{"both empty", nil, nil, 0},
		{"synonyms match", []string{"sci-fi"}, []string{"science fiction"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := genreJaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("genreJaccard = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPairSimilarityBounds(t *testing.T) {
	a := testCandidate(1, func(c *models.Candidate) { c.Genres = []string{"drama"}; c.Year = 2020; c.Rating = 8 })
	b := testCandidate(2, func(c *models.Candidate) { c.Genres = []string{"drama"}; c.Year = 2020; c.Rating = 8 })
	if sim := pairSimilarity(&a, &b); sim < 0.99 || sim > 1.0001 {
		t.Errorf("identical candidates similarity = %v, want ~1", sim)
	}

	c := testCandidate(3, func(c *models.Candidate) {
		c.Genres = []string{"comedy"}
		c.Year = 1960
		c.Rating = 2
		c.Kind = models.MediaShow
	})
	if sim := pairSimilarity(&a, &c); sim != 0 {
		t.Errorf("maximally different candidates similarity = %v, want 0", sim)
	}
}
