// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package scoring

import (
	"math"

	"github.com/tomtom215/curatarr/internal/models"
)

// maxSelectSize bounds similarity-matrix allocation. k is also bounded
// by len(items).
const maxSelectSize = 10000

// Pairwise similarity blend weights. Genre overlap dominates; year,
// rating and media-kind proximity keep same-genre picks from clustering
// in one era or quality band.
const (
	simGenreWeight  = 0.5
	simYearWeight   = 0.2
	simRatingWeight = 0.2
	simKindWeight   = 0.1

	simYearSpan   = 20.0 // years until year similarity reaches 0
	simRatingSpan = 5.0  // rating points until rating similarity reaches 0
)

// SelectMMR applies Maximal Marginal Relevance selection:
//
//	argmax[lambda * score(i) - (1-lambda) * max(sim(i, s)) for s in selected]
//
// lambda 1.0 is pure relevance, 0.0 pure diversity. Selection is greedy
// and deterministic: ties resolve to the earlier (higher-ranked) item.
// Exported so the fusion re-rank can apply the same final selection.
//
// Reference: Carbonell & Goldstein, "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries", SIGIR 1998.
func SelectMMR(items []models.ScoredCandidate, k int, lambda float64) []models.ScoredCandidate {
	if len(items) == 0 || k <= 0 {
		return nil
	}
	if k > maxSelectSize {
		k = maxSelectSize
	}
	if k > len(items) {
		k = len(items)
	}
	if lambda >= 1.0 {
		return items[:k]
	}

	similarities := buildSimilarityMatrix(items)

	selected := make([]models.ScoredCandidate, 0, k)
	selectedIndices := make(map[int]struct{}, k)

	for len(selected) < k {
		bestIdx := -1
		bestMMR := math.Inf(-1)

		for i := range items {
			if _, ok := selectedIndices[i]; ok {
				continue
			}

			maxSim := 0.0
			for j := range selectedIndices {
				if sim := similarities[i][j]; sim > maxSim {
					maxSim = sim
				}
			}

			mmrScore := lambda*items[i].Score - (1-lambda)*maxSim
			if mmrScore > bestMMR {
				bestMMR = mmrScore
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}
		selected = append(selected, items[bestIdx])
		selectedIndices[bestIdx] = struct{}{}
	}

	return selected
}

func buildSimilarityMatrix(items []models.ScoredCandidate) [][]float64 {
	n := len(items)
	similarities := make([][]float64, n)
	for i := range similarities {
		similarities[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := pairSimilarity(&items[i].Candidate, &items[j].Candidate)
			similarities[i][j] = sim
			similarities[j][i] = sim
		}
	}
	return similarities
}

// pairSimilarity blends genre Jaccard, year proximity, rating proximity
// and media-kind match into one [0,1] similarity.
func pairSimilarity(a, b *models.Candidate) float64 {
	sim := simGenreWeight * genreJaccard(a.Genres, b.Genres)

	if a.Year > 0 && b.Year > 0 {
		diff := math.Abs(float64(a.Year - b.Year))
		sim += simYearWeight * math.Max(0, 1-diff/simYearSpan)
	}
	if a.Rating > 0 && b.Rating > 0 {
		diff := math.Abs(a.Rating - b.Rating)
		sim += simRatingWeight * math.Max(0, 1-diff/simRatingSpan)
	}
	if a.Kind == b.Kind {
		sim += simKindWeight
	}
	return sim
}

// genreJaccard is the Jaccard similarity of two normalized genre sets.
func genreJaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := models.GenreSet(a)
	setB := models.GenreSet(b)

	intersection := 0
	for g := range setA {
		if _, ok := setB[g]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// avgPairwiseSimilarity is the mean similarity over all unordered pairs.
// Exposed for the diversity guarantee tests.
func avgPairwiseSimilarity(items []models.ScoredCandidate) float64 {
	n := len(items)
	if n < 2 {
		return 0
	}
	var total float64
	var pairs int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += pairSimilarity(&items[i].Candidate, &items[j].Candidate)
			pairs++
		}
	}
	return total / float64(pairs)
}
