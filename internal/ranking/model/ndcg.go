// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package model

import (
	"math"
	"sort"
)

// gain converts a graded relevance label to its DCG gain. Exponential
// gain sharpens the reward for highly relevant items.
func gain(label float64) float64 {
	return math.Exp2(label) - 1
}

// discount is the positional DCG discount for rank i (0-based).
func discount(i int) float64 {
	return 1 / math.Log2(float64(i)+2)
}

// dcg computes discounted cumulative gain over labels already in
// ranked order, truncated at k. k <= 0 means no truncation.
func dcg(labels []float64, k int) float64 {
	if k <= 0 || k > len(labels) {
		k = len(labels)
	}
	var sum float64
	for i := 0; i < k; i++ {
		sum += gain(labels[i]) * discount(i)
	}
	return sum
}

// NDCG computes the normalized DCG at cutoff k for one query group.
// scores and labels are parallel. Groups whose ideal DCG is zero (all
// labels zero) score 1: there is no ordering to get wrong.
func NDCG(scores, labels []float64, k int) float64 {
	if len(scores) != len(labels) || len(labels) == 0 {
		return 0
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	ranked := make([]float64, len(labels))
	for pos, idx := range order {
		ranked[pos] = labels[idx]
	}

	ideal := make([]float64, len(labels))
	copy(ideal, labels)
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))

	idealDCG := dcg(ideal, k)
	if idealDCG == 0 {
		return 1
	}
	return dcg(ranked, k) / idealDCG
}

// meanNDCG averages per-group NDCG at cutoff k across a dataset.
// scores is parallel to the flattened dataset instances.
func meanNDCG(groups []groupSpan, scores, labels []float64, k int) float64 {
	if len(groups) == 0 {
		return 0
	}
	var sum float64
	for _, g := range groups {
		sum += NDCG(scores[g.start:g.end], labels[g.start:g.end], k)
	}
	return sum / float64(len(groups))
}
