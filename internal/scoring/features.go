// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package scoring

import (
	"math"
	"strings"

	"github.com/tomtom215/curatarr/internal/models"
)

// popularityCeiling is the fixed min-max range for the raw provider
// popularity signal; values above it saturate at 1.0.
const popularityCeiling = 100.0

// passesHardFilters applies the non-negotiable constraints. These are
// independent of scoring weights: a violating candidate never appears in
// the output no matter how well it scores.
func passesHardFilters(c *models.Candidate, f *models.ListFilters) bool {
	if !f.AllowsKind(c.Kind) {
		return false
	}
	if c.Adult && !f.AllowAdult {
		return false
	}
	if len(f.Languages) > 0 && c.Language != "" && !containsFold(f.Languages, c.Language) {
		return false
	}
	if f.YearMin > 0 && c.Year > 0 && c.Year < f.YearMin {
		return false
	}
	if f.YearMax > 0 && c.Year > 0 && c.Year > f.YearMax {
		return false
	}
	if f.MinRating > 0 && c.Rating > 0 && c.Rating < f.MinRating {
		return false
	}
	if len(f.Genres) > 0 && len(c.Genres) > 0 && !models.MatchesGenres(c.Genres, f.Genres, f.GenreMode) {
		return false
	}
	if matchesExclusion(c, f.ExcludeActors) || matchesExclusion(c, f.ExcludeStudios) {
		return false
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

// matchesExclusion checks hard exclusion terms against the candidate's
// keywords and overview, the only fields where actor and studio names
// surface in catalog metadata.
func matchesExclusion(c *models.Candidate, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	haystack := strings.ToLower(strings.Join(c.Keywords, " ") + " " + c.Overview)
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t != "" && strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// genreOverlap scores how much of the candidate's genre set appears in
// the user's preferred set.
func genreOverlap(genres []string, preferred map[string]struct{}) float64 {
	if len(genres) == 0 || len(preferred) == 0 {
		return 0
	}
	matched := 0
	for _, g := range genres {
		if _, ok := preferred[models.NormalizeGenre(g)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(genres))
}

// qualityScore is the provider rating min-max normalized over the fixed
// 0-10 scale, discounted for thin vote counts.
func qualityScore(c *models.Candidate) float64 {
	q := math.Min(math.Max(c.Rating, 0)/10.0, 1.0)
	if c.VoteCount > 0 && c.VoteCount < 50 {
		q *= 0.8
	}
	return q
}

// popularityScore min-max normalizes the raw popularity signal.
func popularityScore(c *models.Candidate) float64 {
	return math.Min(math.Max(c.Popularity, 0)/popularityCeiling, 1.0)
}

// filterAlignment rewards candidates that sit comfortably inside the
// list's soft preferences rather than scraping past the boundaries.
func filterAlignment(c *models.Candidate, f *models.ListFilters) float64 {
	var score, terms float64

	if len(f.Genres) > 0 {
		terms++
		if models.MatchesGenres(c.Genres, f.Genres, models.GenreAll) {
			score++
		} else if models.MatchesGenres(c.Genres, f.Genres, models.GenreAny) {
			score += 0.5
		}
	}
	if f.YearMin > 0 && f.YearMax > f.YearMin && c.Year > 0 {
		terms++
		// Distance from the window center, normalized to the half-width.
		center := float64(f.YearMin+f.YearMax) / 2
		halfWidth := float64(f.YearMax-f.YearMin) / 2
		score += math.Max(0, 1-math.Abs(float64(c.Year)-center)/halfWidth)
	}
	if f.MinRating > 0 && c.Rating > 0 {
		terms++
		// Headroom above the floor, saturating two points up.
		score += math.Min((c.Rating-f.MinRating)/2.0, 1.0)
	}
	if len(f.Keywords) > 0 {
		terms++
		matched := 0
		for _, want := range f.Keywords {
			if containsFold(c.Keywords, want) {
				matched++
			}
		}
		score += float64(matched) / float64(len(f.Keywords))
	}

	if terms == 0 {
		return 0.5 // no soft preferences to align with
	}
	return score / terms
}
