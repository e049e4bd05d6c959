// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package scoring

import (
	"math"
	"strings"
	"unicode"
)

// stopwords excluded from term-frequency vectors. Short list: the goal
// is to keep genre and theme terms dominant, not full IR preprocessing.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "you": {}, "are": {}, "was": {}, "has": {}, "have": {},
	"his": {}, "her": {}, "their": {}, "its": {}, "into": {}, "after": {},
	"about": {}, "when": {}, "who": {}, "will": {}, "one": {}, "two": {},
	"but": {}, "not": {}, "all": {}, "out": {}, "they": {}, "them": {},
}

// tokenize lowercases text and splits on non-alphanumeric runes,
// dropping stopwords and tokens shorter than three characters.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// termVector builds a sparse term-frequency vector.
func termVector(text string) map[string]float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	v := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		v[tok]++
	}
	return v
}

// cosineTF returns the cosine similarity of two sparse TF vectors in
// [0,1]. Empty vectors yield 0.
func cosineTF(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	if dot == 0 {
		return 0
	}

	var normA, normB float64
	for _, w := range a {
		normA += w * w
	}
	for _, w := range b {
		normB += w * w
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// textSimilarity scores a candidate document against an anchor document.
func textSimilarity(anchor, doc string) float64 {
	return cosineTF(termVector(anchor), termVector(doc))
}
