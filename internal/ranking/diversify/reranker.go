// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package diversify

import "github.com/rankmill/rankmill/internal/ranking"

// MMR adapts this package's functions to the engine's Diversifier
// interface. Stateless and safe for concurrent use.
type MMR struct{}

// NewMMR returns the MMR diversifier.
func NewMMR() MMR {
	return MMR{}
}

// Diversify implements ranking.Diversifier.
func (MMR) Diversify(items []ranking.ScoredRecommendation, lambda float64, topK int) []ranking.ScoredRecommendation {
	return Diversify(items, lambda, topK)
}

// Score implements ranking.Diversifier.
func (MMR) Score(items []ranking.ScoredRecommendation) float64 {
	return DiversityScore(items)
}
