// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package features

import (
	"math"
	"testing"
	"time"

	"github.com/rankmill/rankmill/internal/ranking"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func sampleRecommendation() *ranking.Recommendation {
	return &ranking.Recommendation{
		ID:                   "rec-1",
		AssessmentID:         "assess-1",
		Category:             "cost_optimization",
		ConfidenceScore:      0.9,
		EstimatedCost:        1000,
		EstimatedCostSavings: 5000,
		ImplementationEffort: ranking.EffortLow,
		Priority:             "high",
		BusinessImpact:       "critical",
		Benefits:             []string{"a", "b", "c"},
		Risks:                []string{"r"},
		ImplementationSteps:  []string{"s1", "s2"},
		CloudProvider:        "aws",
		Agent:                "cost_optimization_agent",
		CreatedAt:            testNow.Add(-72 * time.Hour),
	}
}

func sampleAssessment() *ranking.Assessment {
	return &ranking.Assessment{
		ID:                   "assess-1",
		CompletionPercentage: 80,
		Status:               "completed",
		CreatedAt:            testNow.Add(-10 * 24 * time.Hour),
		BusinessRequirements: ranking.BusinessRequirements{
			CompanySize:         "enterprise",
			Industry:            "healthcare",
			BudgetRange:         "substantial",
			CloudExpertiseLevel: 4,
			UrgencyLevel:        "high",
			CostPriority:        "high",
			MultiCloud:          true,
			Goals:               []string{"g1", "g2"},
			PainPoints:          []string{"p1"},
		},
	}
}

func idx(t *testing.T, name string) int {
	t.Helper()
	for i, n := range featureNames {
		if n == name {
			return i
		}
	}
	t.Fatalf("unknown feature name %q", name)
	return -1
}

func TestExtractVectorShape(t *testing.T) {
	tests := []struct {
		name       string
		rec        *ranking.Recommendation
		assessment *ranking.Assessment
		history    *ranking.History
	}{
		{name: "full inputs", rec: sampleRecommendation(), assessment: sampleAssessment(), history: &ranking.History{Interactions: 5, ClickThroughRate: 0.3}},
		{name: "all nil", rec: nil, assessment: nil, history: nil},
		{name: "empty recommendation", rec: &ranking.Recommendation{}, assessment: &ranking.Assessment{}},
		{
			name: "malformed numeric fields",
			rec: &ranking.Recommendation{
				ConfidenceScore:      math.NaN(),
				EstimatedCost:        math.Inf(1),
				EstimatedCostSavings: -50,
			},
			history: &ranking.History{
				Interactions:       3,
				ClickThroughRate:   math.NaN(),
				AverageViewSeconds: math.Inf(1),
				AverageRating:      -2,
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Extract(tc.rec, tc.assessment, nil, tc.history, testNow)
			if len(v) != VectorSize {
				t.Fatalf("vector length = %d, want %d", len(v), VectorSize)
			}
			for i, f := range v {
				f64 := float64(f)
				if math.IsNaN(f64) || math.IsInf(f64, 0) {
					t.Errorf("feature %d (%s) is non-finite: %v", i, Name(i), f)
				}
			}
		})
	}
}

func TestExtractIntrinsic(t *testing.T) {
	v := Extract(sampleRecommendation(), sampleAssessment(), nil, nil, testNow)

	if got := v[idx(t, "confidence_score")]; got != 0.9 {
		t.Errorf("confidence_score = %v, want 0.9", got)
	}
	if got := v[idx(t, "category_cost_flag")]; got != 1 {
		t.Errorf("category_cost_flag = %v, want 1", got)
	}
	if got := v[idx(t, "category_security_flag")]; got != 0 {
		t.Errorf("category_security_flag = %v, want 0", got)
	}
	if got := v[idx(t, "provider_known_flag")]; got != 1 {
		t.Errorf("provider_known_flag = %v, want 1", got)
	}
	if got := v[idx(t, "effort_tier")]; got != 0.33 {
		t.Errorf("effort_tier = %v, want 0.33", got)
	}
	if got := v[idx(t, "priority_tier")]; got != 0.75 {
		t.Errorf("priority_tier = %v, want 0.75", got)
	}
	if got := v[idx(t, "business_impact_tier")]; got != 1 {
		t.Errorf("business_impact_tier = %v, want 1", got)
	}
	// 5000 savings / 1001 cost ~= 4.995, scaled by /5.
	if got := v[idx(t, "roi_estimate")]; got < 0.99 || got > 1 {
		t.Errorf("roi_estimate = %v, want just below 1", got)
	}
	if got := v[idx(t, "benefit_count")]; math.Abs(float64(got)-0.3) > 1e-6 {
		t.Errorf("benefit_count = %v, want 0.3", got)
	}
	if got := v[idx(t, "agent_reliability")]; got != 0.85 {
		t.Errorf("agent_reliability = %v, want 0.85", got)
	}
}

func TestExtractDefaults(t *testing.T) {
	v := Extract(nil, nil, nil, nil, testNow)

	if got := v[idx(t, "confidence_score")]; got != defaultConfidence {
		t.Errorf("missing confidence = %v, want %v", got, defaultConfidence)
	}
	if got := v[idx(t, "cost_log")]; got != 0 {
		t.Errorf("missing cost = %v, want 0", got)
	}
	if got := v[idx(t, "category_cost_flag")]+v[idx(t, "category_security_flag")]+v[idx(t, "category_performance_flag")]; got != 0 {
		t.Errorf("unknown category flags sum = %v, want 0", got)
	}
	if got := v[idx(t, "cloud_expertise")]; got != defaultExpertise {
		t.Errorf("missing expertise = %v, want %v", got, defaultExpertise)
	}
	if got := v[idx(t, "industry_bucket")]; got != defaultTier {
		t.Errorf("missing industry = %v, want %v", got, defaultTier)
	}
	if got := v[idx(t, "assessment_age")]; got != defaultTier {
		t.Errorf("zero assessment timestamp = %v, want %v", got, defaultTier)
	}
}

func TestExtractHistoricalPriors(t *testing.T) {
	tests := []struct {
		name    string
		history *ranking.History
	}{
		{name: "nil history", history: nil},
		{name: "zero interactions", history: &ranking.History{ClickThroughRate: 0.9}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Extract(sampleRecommendation(), nil, nil, tc.history, testNow)
			if got := v[idx(t, "click_through_rate")]; got != priorCTR {
				t.Errorf("click_through_rate = %v, want prior %v", got, priorCTR)
			}
			if got := v[idx(t, "average_rating")]; got != priorRating {
				t.Errorf("average_rating = %v, want prior %v", got, priorRating)
			}
			if got := v[idx(t, "agent_accuracy")]; got != priorAgentAccuracy {
				t.Errorf("agent_accuracy = %v, want prior %v", got, priorAgentAccuracy)
			}
		})
	}
}

func TestExtractHistorical(t *testing.T) {
	h := &ranking.History{
		Interactions:       12,
		ClickThroughRate:   0.4,
		AverageRating:      4.0,
		AverageViewSeconds: 150,
		LastSimilarShownAt: testNow.Add(-168 * time.Hour),
	}
	v := Extract(sampleRecommendation(), nil, nil, h, testNow)

	if got := v[idx(t, "click_through_rate")]; got != 0.4 {
		t.Errorf("click_through_rate = %v, want 0.4", got)
	}
	if got := v[idx(t, "average_rating")]; got != 0.8 {
		t.Errorf("average_rating = %v, want 0.8", got)
	}
	if got := v[idx(t, "view_time")]; got != 0.5 {
		t.Errorf("view_time = %v, want 0.5", got)
	}
	// Exactly one half-life since the last similar recommendation.
	if got := v[idx(t, "recommendation_decay")]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("recommendation_decay = %v, want 0.5", got)
	}
}

func TestSeasonalFactor(t *testing.T) {
	i := idx(t, "seasonal_factor")

	march := Extract(nil, nil, nil, nil, testNow)
	if got := march[i]; got != 1.0 {
		t.Errorf("march seasonal_factor = %v, want 1.0", got)
	}
	november := Extract(nil, nil, nil, nil, time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC))
	if got := november[i]; math.Abs(float64(got)-1.2) > 1e-6 {
		t.Errorf("november seasonal_factor = %v, want 1.2", got)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != VectorSize {
		t.Fatalf("Names length = %d, want %d", len(names), VectorSize)
	}
	seen := make(map[string]bool, VectorSize)
	for i, n := range names {
		if n == "" {
			t.Errorf("feature %d has empty name", i)
		}
		if seen[n] {
			t.Errorf("duplicate feature name %q", n)
		}
		seen[n] = true
	}

	// Names returns a copy.
	names[0] = "mutated"
	if Name(0) == "mutated" {
		t.Error("Names did not return a copy")
	}

	if Name(-1) != "" || Name(VectorSize) != "" {
		t.Error("out-of-range Name should be empty")
	}
}

func TestIndustryBucketStable(t *testing.T) {
	a := industryBucket("healthcare")
	b := industryBucket("healthcare")
	if a != b {
		t.Errorf("industry bucket not stable: %v vs %v", a, b)
	}
	if a < 0 || a >= 1 {
		t.Errorf("industry bucket %v outside [0,1)", a)
	}
}
