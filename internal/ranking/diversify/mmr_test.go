// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package diversify

import (
	"math"
	"testing"

	"github.com/rankmill/rankmill/internal/ranking"
)

func scored(id, category, provider, effort string, cost, score float64) ranking.ScoredRecommendation {
	return ranking.ScoredRecommendation{
		Recommendation: ranking.Recommendation{
			ID:                   id,
			Category:             category,
			CloudProvider:        provider,
			ImplementationEffort: effort,
			EstimatedCost:        cost,
		},
		Score: score,
	}
}

func TestDiversifySelectsTopKWithSpread(t *testing.T) {
	items := []ranking.ScoredRecommendation{
		scored("a", "cost_optimization", "aws", ranking.EffortLow, 100, 0.95),
		scored("b", "cost_optimization", "aws", ranking.EffortLow, 110, 0.94),
		scored("c", "security", "aws", ranking.EffortMedium, 500, 0.90),
		scored("d", "cost_optimization", "aws", ranking.EffortLow, 105, 0.89),
		scored("e", "performance", "gcp", ranking.EffortHigh, 2000, 0.85),
	}

	out := Diversify(items, 0.7, 3)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[0].Recommendation.ID != "a" {
		t.Errorf("first item = %s, want the highest-relevance item a", out[0].Recommendation.ID)
	}

	categories := make(map[string]bool)
	for _, s := range out {
		categories[s.Recommendation.Category] = true
	}
	if len(categories) < 2 {
		t.Errorf("selected categories = %v, want at least 2 distinct", categories)
	}
}

func TestDiversifyShortInputUnchanged(t *testing.T) {
	items := []ranking.ScoredRecommendation{
		scored("a", "security", "aws", ranking.EffortLow, 10, 0.9),
		scored("b", "security", "aws", ranking.EffortLow, 20, 0.8),
	}

	out := Diversify(items, 0.7, 5)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	for i := range items {
		if out[i].Recommendation.ID != items[i].Recommendation.ID {
			t.Errorf("position %d = %s, want %s (input order preserved)", i, out[i].Recommendation.ID, items[i].Recommendation.ID)
		}
	}

	// Returned slice is a copy.
	out[0].Score = -1
	if items[0].Score == -1 {
		t.Error("Diversify returned the input slice, want a copy")
	}
}

func TestDiversifyEdgeCases(t *testing.T) {
	items := []ranking.ScoredRecommendation{
		scored("a", "security", "aws", ranking.EffortLow, 10, 0.9),
		scored("b", "performance", "gcp", ranking.EffortHigh, 99, 0.5),
		scored("c", "security", "aws", ranking.EffortLow, 11, 0.8),
	}

	t.Run("non-positive top_k", func(t *testing.T) {
		if out := Diversify(items, 0.7, 0); len(out) != 0 {
			t.Errorf("top_k 0 yielded %d items", len(out))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if out := Diversify(nil, 0.7, 3); len(out) != 0 {
			t.Errorf("empty input yielded %d items", len(out))
		}
	})

	t.Run("pure relevance lambda", func(t *testing.T) {
		out := Diversify(items, 1.0, 2)
		if out[0].Recommendation.ID != "a" || out[1].Recommendation.ID != "c" {
			t.Errorf("lambda=1 order = %s,%s, want a,c (pure relevance)",
				out[0].Recommendation.ID, out[1].Recommendation.ID)
		}
	})

	t.Run("pure diversity lambda", func(t *testing.T) {
		out := Diversify(items, 0.0, 2)
		if out[0].Recommendation.ID != "a" {
			t.Fatalf("seed = %s, want a", out[0].Recommendation.ID)
		}
		if out[1].Recommendation.ID != "b" {
			t.Errorf("lambda=0 second pick = %s, want the dissimilar b", out[1].Recommendation.ID)
		}
	})

	t.Run("nan lambda uses default", func(t *testing.T) {
		out := Diversify(items, math.NaN(), 2)
		if len(out) != 2 {
			t.Errorf("len = %d, want 2", len(out))
		}
	})
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b ranking.Recommendation
		want float64
	}{
		{
			name: "identical attributes",
			a:    scored("a", "security", "aws", ranking.EffortLow, 100, 0).Recommendation,
			b:    scored("b", "security", "aws", ranking.EffortLow, 100, 0).Recommendation,
			want: 1.0, // 0.4 + 0.2 + 0.2 + 0.2
		},
		{
			name: "nothing in common",
			a:    scored("a", "security", "aws", ranking.EffortLow, 100, 0).Recommendation,
			b:    scored("b", "cost_optimization", "gcp", ranking.EffortHigh, 0, 0).Recommendation,
			want: 0.05, // only the cost floor
		},
		{
			name: "related categories",
			a:    scored("a", "security", "", "", 0, 0).Recommendation,
			b:    scored("b", "reliability", "", "", 0, 0).Recommendation,
			want: 0.2 + 0.05 + 0.1, // related + unknown provider + both free
		},
		{
			name: "adjacent effort tiers",
			a:    scored("a", "", "", ranking.EffortLow, 0, 0).Recommendation,
			b:    scored("b", "", "", ranking.EffortMedium, 0, 0).Recommendation,
			want: 0.05 + 0.1 + 0.1,
		},
		{
			name: "half cost ratio",
			a:    scored("a", "", "aws", "", 50, 0).Recommendation,
			b:    scored("b", "", "azure", "", 100, 0).Recommendation,
			want: 0.2 * 0.5,
		},
		{
			name: "case and separator insensitive categories",
			a:    scored("a", "Cost-Optimization", "", "", 0, 0).Recommendation,
			b:    scored("b", "cost_optimization", "", "", 0, 0).Recommendation,
			want: 0.4 + 0.05 + 0.1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Similarity(&tc.a, &tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Similarity = %v, want %v", got, tc.want)
			}
			if sym := Similarity(&tc.b, &tc.a); sym != got {
				t.Errorf("Similarity not symmetric: %v vs %v", got, sym)
			}
		})
	}

	if got := Similarity(nil, nil); got != 0 {
		t.Errorf("nil similarity = %v, want 0", got)
	}
}

func TestDiversityScore(t *testing.T) {
	tests := []struct {
		name  string
		items []ranking.ScoredRecommendation
		want  float64
	}{
		{
			name: "single category",
			items: []ranking.ScoredRecommendation{
				scored("a", "security", "", "", 0, 0),
				scored("b", "security", "", "", 0, 0),
				scored("c", "security", "", "", 0, 0),
			},
			want: 0,
		},
		{
			name: "three equal categories",
			items: []ranking.ScoredRecommendation{
				scored("a", "security", "", "", 0, 0),
				scored("b", "performance", "", "", 0, 0),
				scored("c", "cost_optimization", "", "", 0, 0),
			},
			want: 1 - 3*(1.0/9.0),
		},
		{
			name:  "empty list",
			items: nil,
			want:  0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DiversityScore(tc.items)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("DiversityScore = %v, want %v", got, tc.want)
			}
		})
	}
}
