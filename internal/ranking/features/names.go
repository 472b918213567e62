// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package features

// featureNames is the frozen positional name list. Index i names the
// value Extract writes at position i. Appending is allowed; reordering
// or renaming breaks every persisted model.
var featureNames = [VectorSize]string{
	// Block 1: intrinsic (0-14).
	"confidence_score",
	"cost_log",
	"effort_tier",
	"roi_estimate",
	"priority_tier",
	"business_impact_tier",
	"category_cost_flag",
	"category_security_flag",
	"category_performance_flag",
	"provider_known_flag",
	"benefit_count",
	"risk_count",
	"step_count",
	"prerequisite_count",
	"agent_reliability",

	// Block 2: user/company (15-24).
	"company_size_tier",
	"industry_bucket",
	"cloud_expertise",
	"budget_tier",
	"risk_tolerance",
	"cost_priority",
	"multi_cloud_flag",
	"goal_count",
	"pain_point_count",
	"compliance_count",

	// Block 3: context (25-34).
	"assessment_completion",
	"assessment_age",
	"recommendation_age",
	"trend_cost_alignment",
	"trend_security_alignment",
	"trend_performance_alignment",
	"provider_recency",
	"assessment_status_tier",
	"category_alignment",
	"seasonal_factor",

	// Block 4: historical (35-49).
	"click_through_rate",
	"implementation_rate",
	"average_rating",
	"share_rate",
	"save_rate",
	"view_time",
	"similar_user_acceptance",
	"recommendation_decay",
	"agent_accuracy",
	"category_popularity",
	"complementarity",
	"novelty",
	"recency_bias",
	"funnel_position",
	"global_popularity",
}

// Names returns the 50 feature names in vector order. The returned
// slice is a copy; callers may mutate it freely.
func Names() []string {
	out := make([]string, VectorSize)
	copy(out, featureNames[:])
	return out
}

// Name returns the name of the feature at index i, or empty when i is
// out of range.
func Name(i int) string {
	if i < 0 || i >= VectorSize {
		return ""
	}
	return featureNames[i]
}
