// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package mood

import (
	"time"

	"github.com/tomtom215/curatarr/internal/models"
)

// Contextual multipliers nudge a mood vector toward what viewers reach
// for at a given hour and day. Multipliers are mild so the underlying
// taste signal stays dominant.
var daypartBoosts = map[string]map[string]float64{
	// 05:00-11:59
	"morning": {models.MoodHappy: 1.15, models.MoodCurious: 1.1},
	// 12:00-16:59
	"afternoon": {models.MoodRelaxed: 1.1, models.MoodAdventurous: 1.1},
	// 17:00-21:59
	"evening": {models.MoodTense: 1.15, models.MoodRomantic: 1.1},
	// 22:00-04:59
	"night": {models.MoodMelancholic: 1.15, models.MoodReflective: 1.15},
}

var weekendBoost = map[string]float64{
	models.MoodAdventurous: 1.1,
	models.MoodRelaxed:     1.1,
}

func daypart(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}

// ContextAdjust returns a copy of the vector with time-of-day and
// weekday multipliers applied and re-normalized. The neutral vector is
// returned unchanged.
func ContextAdjust(v models.MoodVector, at time.Time) models.MoodVector {
	if v.IsZero() {
		return v.Clone()
	}

	out := v.Clone()
	for axis, mult := range daypartBoosts[daypart(at.Hour())] {
		out[axis] *= mult
	}
	if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
		for axis, mult := range weekendBoost {
			out[axis] *= mult
		}
	}
	out.Normalize()
	return out
}
