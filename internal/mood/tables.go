// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package mood

import (
	"sort"
	"strings"

	"github.com/tomtom215/curatarr/internal/models"
)

// genreMoods maps normalized genre names to mood-axis contributions. Each
// row sums to 1 so a single genre contributes one unit of weight.
var genreMoods = map[string]models.MoodVector{
	"comedy":          {models.MoodHappy: 0.7, models.MoodRelaxed: 0.3},
	"drama":           {models.MoodMelancholic: 0.5, models.MoodReflective: 0.5},
	"thriller":        {models.MoodTense: 0.8, models.MoodCurious: 0.2},
	"horror":          {models.MoodTense: 1.0},
	"romance":         {models.MoodRomantic: 0.8, models.MoodHappy: 0.2},
	"adventure":       {models.MoodAdventurous: 0.8, models.MoodCurious: 0.2},
	"action":          {models.MoodAdventurous: 0.6, models.MoodTense: 0.4},
	"science fiction": {models.MoodCurious: 0.6, models.MoodAdventurous: 0.4},
	"fantasy":         {models.MoodAdventurous: 0.5, models.MoodCurious: 0.3, models.MoodHappy: 0.2},
	"documentary":     {models.MoodCurious: 0.7, models.MoodReflective: 0.3},
	"mystery":         {models.MoodCurious: 0.6, models.MoodTense: 0.4},
	"crime":           {models.MoodTense: 0.6, models.MoodCurious: 0.4},
	"animation":       {models.MoodHappy: 0.6, models.MoodRelaxed: 0.4},
	"family":          {models.MoodHappy: 0.5, models.MoodRelaxed: 0.5},
	"music":           {models.MoodHappy: 0.5, models.MoodRelaxed: 0.5},
	"war":             {models.MoodMelancholic: 0.5, models.MoodTense: 0.5},
	"western":         {models.MoodAdventurous: 0.6, models.MoodReflective: 0.4},
	"history":         {models.MoodReflective: 0.7, models.MoodCurious: 0.3},
}

// keywordMoods maps descriptive keywords to mood-axis contributions.
// Keywords carry half the weight of a genre since they are noisier.
var keywordMoods = map[string]models.MoodVector{
	"feel-good":     {models.MoodHappy: 0.8, models.MoodRelaxed: 0.2},
	"dark":          {models.MoodMelancholic: 0.5, models.MoodTense: 0.5},
	"suspense":      {models.MoodTense: 1.0},
	"cozy":          {models.MoodRelaxed: 1.0},
	"heist":         {models.MoodTense: 0.5, models.MoodAdventurous: 0.5},
	"space":         {models.MoodCurious: 0.6, models.MoodAdventurous: 0.4},
	"love":          {models.MoodRomantic: 1.0},
	"wedding":       {models.MoodRomantic: 0.6, models.MoodHappy: 0.4},
	"murder":        {models.MoodTense: 0.8, models.MoodCurious: 0.2},
	"investigation": {models.MoodCurious: 0.7, models.MoodTense: 0.3},
	"road trip":     {models.MoodAdventurous: 0.7, models.MoodHappy: 0.3},
	"coming of age": {models.MoodReflective: 0.7, models.MoodMelancholic: 0.3},
	"nostalgia":     {models.MoodReflective: 0.6, models.MoodMelancholic: 0.4},
	"survival":      {models.MoodTense: 0.6, models.MoodAdventurous: 0.4},
	"time travel":   {models.MoodCurious: 1.0},
	"dystopia":      {models.MoodTense: 0.5, models.MoodReflective: 0.5},
	"friendship":    {models.MoodHappy: 0.7, models.MoodRelaxed: 0.3},
	"grief":         {models.MoodMelancholic: 1.0},
	"noir":          {models.MoodMelancholic: 0.5, models.MoodTense: 0.5},
	"comfort":       {models.MoodRelaxed: 1.0},
}

// keywordWeight discounts keyword contributions relative to genres.
const keywordWeight = 0.5

// Derive builds an unnormalized mood contribution from an item's genres
// and keywords. Unknown genres and keywords contribute nothing.
func Derive(genres, keywords []string) models.MoodVector {
	v := models.NewMoodVector()
	for _, g := range models.NormalizeGenres(genres) {
		if m, ok := genreMoods[g]; ok {
			v.Add(m, 1.0)
		}
	}
	for _, k := range keywords {
		if m, ok := keywordMoods[strings.ToLower(strings.TrimSpace(k))]; ok {
			v.Add(m, keywordWeight)
		}
	}
	return v
}

// CandidateVector returns a candidate's normalized mood vector for
// alignment scoring. Items with no recognized genres or keywords yield
// the neutral vector.
func CandidateVector(c *models.Candidate) models.MoodVector {
	v := Derive(c.Genres, c.Keywords)
	v.Normalize()
	return v
}

// GenresFor returns the n genres whose mood profiles best align with the
// given vector, for deriving preferred genres when no rated history
// exists. Results are ordered by alignment, ties broken alphabetically
// so the output is deterministic.
func GenresFor(v models.MoodVector, n int) []string {
	if v.IsZero() || n <= 0 {
		return nil
	}

	type scored struct {
		genre string
		score float64
	}
	ranked := make([]scored, 0, len(genreMoods))
	for genre, m := range genreMoods {
		var dot float64
		for axis, w := range m {
			dot += w * v[axis]
		}
		if dot > 0 {
			ranked = append(ranked, scored{genre, dot})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].genre < ranked[j].genre
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].genre
	}
	return out
}

// matchTitleKeywords scans free text (list titles, anchor text) for
// known mood keywords and accumulates their contributions.
func matchTitleKeywords(v models.MoodVector, text string, weight float64) {
	lowered := strings.ToLower(text)
	for keyword, m := range keywordMoods {
		if strings.Contains(lowered, keyword) {
			v.Add(m, weight*keywordWeight)
		}
	}
}
