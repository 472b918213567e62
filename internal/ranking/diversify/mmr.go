// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

// Package diversify reorders a relevance-ranked candidate list with
// Maximal Marginal Relevance so the final list balances relevance
// against redundancy. Pure functions, no I/O.
package diversify

import (
	"math"

	"github.com/rankmill/rankmill/internal/ranking"
)

// DefaultLambda is the production relevance/diversity trade-off.
// 1 is pure relevance, 0 is pure diversity.
const DefaultLambda = 0.7

// Similarity component weights. They sum to 1, so the score needs no
// rescaling; the cap guards future weight changes.
const (
	weightCategory        = 0.4
	weightCategoryRelated = 0.2
	weightProvider        = 0.2
	weightProviderUnknown = 0.05
	weightCost            = 0.2
	weightCostBothZero    = 0.1
	weightCostDisjoint    = 0.05
	weightEffort          = 0.2
	weightEffortAdjacent  = 0.1
)

// relatedCategories is the curated table of category pairs considered
// partially overlapping. Pairs are stored both ways.
var relatedCategories = map[[2]string]bool{}

func init() {
	pairs := [][2]string{
		{"cost_optimization", "architecture"},
		{"performance", "architecture"},
		{"performance", "reliability"},
		{"security", "reliability"},
		{"migration", "architecture"},
	}
	for _, p := range pairs {
		relatedCategories[p] = true
		relatedCategories[[2]string{p[1], p[0]}] = true
	}
}

// Diversify selects up to topK items with MMR: the result is seeded
// with the highest-relevance item, then each round adds the remaining
// item maximizing lambda*relevance - (1-lambda)*maxSimilarity against
// the already selected set.
//
// When the input has at most topK items there is nothing to trade off
// and the input is returned as-is (copied) in relevance order. A
// non-positive topK yields an empty list. Lambda outside [0,1] is
// clamped; NaN falls back to DefaultLambda.
func Diversify(items []ranking.ScoredRecommendation, lambda float64, topK int) []ranking.ScoredRecommendation {
	if topK <= 0 {
		return nil
	}
	if len(items) <= topK {
		out := make([]ranking.ScoredRecommendation, len(items))
		copy(out, items)
		return out
	}

	if math.IsNaN(lambda) {
		lambda = DefaultLambda
	}
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}

	selected := make([]ranking.ScoredRecommendation, 0, topK)
	remaining := make([]ranking.ScoredRecommendation, len(items))
	copy(remaining, items)

	// Seed with the single highest-relevance item, first-wins on ties.
	seed := 0
	for i := 1; i < len(remaining); i++ {
		if remaining[i].Score > remaining[seed].Score {
			seed = i
		}
	}
	selected = append(selected, remaining[seed])
	remaining = append(remaining[:seed], remaining[seed+1:]...)

	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := 0
		bestMarginal := math.Inf(-1)
		for i, cand := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				if sim := Similarity(&cand.Recommendation, &s.Recommendation); sim > maxSim {
					maxSim = sim
				}
			}
			marginal := lambda*cand.Score - (1-lambda)*maxSim
			if marginal > bestMarginal {
				bestMarginal = marginal
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// Similarity scores how redundant two recommendations are, in [0,1].
// It is a weighted sum over category, cloud provider, estimated cost,
// and implementation effort.
func Similarity(a, b *ranking.Recommendation) float64 {
	if a == nil || b == nil {
		return 0
	}

	var sim float64
	sim += categorySimilarity(a.Category, b.Category)
	sim += providerSimilarity(a.CloudProvider, b.CloudProvider)
	sim += costSimilarity(a.EstimatedCost, b.EstimatedCost)
	sim += effortSimilarity(a.ImplementationEffort, b.ImplementationEffort)

	if sim > 1 {
		sim = 1
	}
	return sim
}

func categorySimilarity(a, b string) float64 {
	ca := ranking.NormalizeCategory(a)
	cb := ranking.NormalizeCategory(b)
	switch {
	case ca == "" || cb == "":
		return 0
	case ca == cb:
		return weightCategory
	case relatedCategories[[2]string{ca, cb}]:
		return weightCategoryRelated
	default:
		return 0
	}
}

func providerSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return weightProviderUnknown
	}
	if a == b {
		return weightProvider
	}
	return 0
}

// costSimilarity scales with how close the two estimated costs are.
// Two free items are mildly similar; a free item next to a costed one
// scores the floor.
func costSimilarity(a, b float64) float64 {
	if a < 0 || math.IsNaN(a) {
		a = 0
	}
	if b < 0 || math.IsNaN(b) {
		b = 0
	}
	switch {
	case a == 0 && b == 0:
		return weightCostBothZero
	case a == 0 || b == 0:
		return weightCostDisjoint
	default:
		return weightCost * (math.Min(a, b) / math.Max(a, b))
	}
}

func effortSimilarity(a, b string) float64 {
	ta, oka := effortRank(a)
	tb, okb := effortRank(b)
	if !oka || !okb {
		return 0
	}
	switch {
	case ta == tb:
		return weightEffort
	case absInt(ta-tb) == 1:
		return weightEffortAdjacent
	default:
		return 0
	}
}

func effortRank(e string) (int, bool) {
	switch e {
	case ranking.EffortLow:
		return 0, true
	case ranking.EffortMedium:
		return 1, true
	case ranking.EffortHigh:
		return 2, true
	default:
		return 0, false
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// DiversityScore is Simpson's Diversity Index over the category
// distribution of a list: 1 - sum(p_i^2). A single-category list
// scores 0; the score approaches 1 as categories spread out.
func DiversityScore(items []ranking.ScoredRecommendation) float64 {
	if len(items) == 0 {
		return 0
	}
	counts := make(map[string]int)
	for i := range items {
		counts[ranking.NormalizeCategory(items[i].Recommendation.Category)]++
	}
	var sum float64
	n := float64(len(items))
	for _, c := range counts {
		p := float64(c) / n
		sum += p * p
	}
	return 1 - sum
}
