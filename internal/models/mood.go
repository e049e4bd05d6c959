// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package models

import "math"

// Mood axis names. The axis set is fixed; a MoodVector assigns a
// non-negative weight to each axis, summing to 1.0 (or all zeros for the
// neutral vector).
const (
	MoodHappy       = "happy"
	MoodMelancholic = "melancholic"
	MoodTense       = "tense"
	MoodRelaxed     = "relaxed"
	MoodCurious     = "curious"
	MoodRomantic    = "romantic"
	MoodAdventurous = "adventurous"
	MoodReflective  = "reflective"
)

// MoodAxes lists every axis in a stable order.
var MoodAxes = []string{
	MoodHappy,
	MoodMelancholic,
	MoodTense,
	MoodRelaxed,
	MoodCurious,
	MoodRomantic,
	MoodAdventurous,
	MoodReflective,
}

// MoodVector maps mood axes to non-negative weights. A zero-valued map is
// the neutral vector used as the recomputation-storm guard.
type MoodVector map[string]float64

// NewMoodVector returns a zero-initialized vector over all axes.
func NewMoodVector() MoodVector {
	v := make(MoodVector, len(MoodAxes))
	for _, axis := range MoodAxes {
		v[axis] = 0
	}
	return v
}

// IsZero reports whether every axis weight is zero.
func (v MoodVector) IsZero() bool {
	for _, w := range v {
		if w != 0 {
			return false
		}
	}
	return true
}

// Sum returns the total weight across axes.
func (v MoodVector) Sum() float64 {
	var sum float64
	for _, w := range v {
		sum += w
	}
	return sum
}

// Normalize L1-normalizes the vector in place so weights sum to 1.0.
// The neutral (all-zero) vector is left unchanged.
func (v MoodVector) Normalize() {
	sum := v.Sum()
	if sum == 0 {
		return
	}
	for axis := range v {
		v[axis] /= sum
	}
}

// Add accumulates weighted contributions from another vector.
func (v MoodVector) Add(other MoodVector, weight float64) {
	for axis, w := range other {
		v[axis] += w * weight
	}
}

// Cosine returns the cosine similarity between two mood vectors in [0,1].
// Either vector being neutral yields 0.
func (v MoodVector) Cosine(other MoodVector) float64 {
	var dot, normA, normB float64
	for _, axis := range MoodAxes {
		a, b := v[axis], other[axis]
		dot += a * b
		normA += a * a
		normB += b * b
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Clone returns a deep copy.
func (v MoodVector) Clone() MoodVector {
	out := make(MoodVector, len(v))
	for axis, w := range v {
		out[axis] = w
	}
	return out
}
