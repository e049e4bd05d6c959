// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package models

import "strings"

// genreSynonyms maps provider genre spellings to canonical names.
// Catalog providers disagree on naming (TV genres especially), so all
// genre comparison goes through NormalizeGenre.
var genreSynonyms = map[string]string{
	"sci-fi":             "science fiction",
	"scifi":              "science fiction",
	"sci-fi & fantasy":   "science fiction",
	"science-fiction":    "science fiction",
	"war & politics":     "drama",
	"action & adventure": "action",
	"suspense":           "thriller",
	"kids":               "family",
	"children":           "family",
	"musical":            "music",
	"tv movie":           "drama",
	"biopic":             "biography",
	"film-noir":          "noir",
	"rom-com":            "romance",
	"soap":               "drama",
	"reality-tv":         "reality",
}

// NormalizeGenre lowercases a genre name and resolves known synonyms to
// the canonical form.
func NormalizeGenre(name string) string {
	g := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := genreSynonyms[g]; ok {
		return canonical
	}
	return g
}

// NormalizeGenres normalizes and deduplicates a genre list, preserving
// first-seen order.
func NormalizeGenres(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		g := NormalizeGenre(name)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// GenreSet returns the normalized genres as a set.
func GenreSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[NormalizeGenre(name)] = struct{}{}
	}
	return set
}

// MatchesGenres reports whether the candidate genres satisfy the filter
// genres under the given mode. An empty filter always matches.
func MatchesGenres(candidate, filter []string, mode GenreMode) bool {
	if len(filter) == 0 {
		return true
	}
	set := GenreSet(candidate)
	matched := 0
	for _, want := range filter {
		if _, ok := set[NormalizeGenre(want)]; ok {
			matched++
		}
	}
	if mode == GenreAll {
		return matched == len(filter)
	}
	return matched > 0
}
