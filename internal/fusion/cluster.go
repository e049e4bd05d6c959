// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package fusion

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/tomtom215/curatarr/internal/providers"
)

// clusterRounds bounds the assign/update iterations. Keyword sets are
// small; assignments settle in two or three rounds.
const clusterRounds = 5

// keywordCluster is one taste cluster extracted from recent history.
type keywordCluster struct {
	// terms maps a keyword to its frequency within the cluster.
	terms map[string]int
	// size is the number of history entries in the cluster.
	size int
}

// historyPoint is one history entry reduced to its keyword set.
type historyPoint struct {
	terms map[string]struct{}
}

func newHistoryPoint(entry *providers.HistoryEntry) *historyPoint {
	terms := make(map[string]struct{}, len(entry.Keywords)+len(entry.Genres))
	for _, k := range entry.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			terms[k] = struct{}{}
		}
	}
	for _, g := range entry.Genres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			terms[g] = struct{}{}
		}
	}
	if len(terms) == 0 {
		return nil
	}
	return &historyPoint{terms: terms}
}

// jaccardDistance is 1 - Jaccard similarity of two term sets.
func jaccardDistance(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 1
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return 1 - float64(intersection)/float64(union)
}

// clusterHistory groups history entries into at most k taste clusters
// with a k-medoids pass: seeded random medoid init, then alternating
// assignment and medoid refinement. Deterministic for a fixed seed.
func clusterHistory(entries []providers.HistoryEntry, k int, seed int64) []keywordCluster {
	points := make([]*historyPoint, 0, len(entries))
	for i := range entries {
		if p := newHistoryPoint(&entries[i]); p != nil {
			points = append(points, p)
		}
	}
	if len(points) == 0 || k <= 0 {
		return nil
	}
	if k > len(points) {
		k = len(points)
	}

	rng := rand.New(rand.NewSource(seed))
	medoids := rng.Perm(len(points))[:k]
	sort.Ints(medoids)

	assignment := make([]int, len(points))
	for round := 0; round < clusterRounds; round++ {
		// Assign each point to its nearest medoid.
		changed := false
		for i, p := range points {
			best, bestDist := 0, 2.0
			for c, m := range medoids {
				if d := jaccardDistance(p.terms, points[m].terms); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}
		if round > 0 && !changed {
			break
		}

		// Refine each medoid to the member minimizing intra-cluster
		// distance.
		for c := range medoids {
			var members []int
			for i := range points {
				if assignment[i] == c {
					members = append(members, i)
				}
			}
			if len(members) == 0 {
				continue
			}
			bestIdx, bestCost := medoids[c], -1.0
			for _, candidate := range members {
				var cost float64
				for _, other := range members {
					cost += jaccardDistance(points[candidate].terms, points[other].terms)
				}
				if bestCost < 0 || cost < bestCost {
					bestIdx, bestCost = candidate, cost
				}
			}
			medoids[c] = bestIdx
		}
	}

	clusters := make([]keywordCluster, k)
	for c := range clusters {
		clusters[c].terms = make(map[string]int)
	}
	for i, p := range points {
		c := &clusters[assignment[i]]
		c.size++
		for t := range p.terms {
			c.terms[t]++
		}
	}

	out := clusters[:0]
	for _, c := range clusters {
		if c.size > 0 {
			out = append(out, c)
		}
	}
	return out
}

// clusterAffinity scores a candidate's term overlap against the taste
// clusters, weighted by cluster size. Result is in [0,1].
func clusterAffinity(candTerms map[string]struct{}, clusters []keywordCluster) float64 {
	if len(candTerms) == 0 || len(clusters) == 0 {
		return 0
	}
	total := 0
	for _, c := range clusters {
		total += c.size
	}

	var score float64
	for _, c := range clusters {
		matched := 0
		for t := range candTerms {
			if c.terms[t] > 0 {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		overlap := float64(matched) / float64(len(candTerms))
		score += overlap * float64(c.size) / float64(total)
	}
	if score > 1 {
		score = 1
	}
	return score
}
