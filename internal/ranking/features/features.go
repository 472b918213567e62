// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

// Package features turns a recommendation plus its assessment and
// optional user context into a fixed-length numeric vector.
//
// The vector is 50 float32 values in four fixed-order blocks:
//
//   - intrinsic recommendation features (15)
//   - user/company profile features (10)
//   - context features (10)
//   - historical/interaction features (15)
//
// The block order and the per-feature order within blocks are frozen:
// Names() returns the 50 names in the identical order, and trained
// models index into the vector positionally. Reordering is a breaking
// change that requires a model version bump.
//
// Extract is total. Missing or malformed fields substitute documented
// defaults; the output never contains NaN or Inf.
package features

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/rankmill/rankmill/internal/ranking"
)

// VectorSize is the fixed dimensionality of a feature vector.
const VectorSize = 50

// Defaults substituted for missing fields. Historical priors are
// deliberately conservative so that items without history neither sink
// nor dominate.
const (
	defaultConfidence    = 0.5
	defaultTier          = 0.5
	defaultExpertise     = 0.4
	priorCTR             = 0.15
	priorImplementation  = 0.1
	priorRating          = 0.6
	priorShareRate       = 0.1
	priorSaveRate        = 0.15
	priorViewTime        = 0.25
	priorSimilarAccept   = 0.5
	priorDecay           = 0.5
	priorAgentAccuracy   = 0.75
	priorCategoryPop     = 0.5
	priorFunnelPosition  = 0.3
	priorGlobalPop       = 0.25
	constComplementarity = 0.5 // extension point, see package docs
	constNovelty         = 0.5 // extension point, see package docs
	constRecencyBias     = 0.75
	constCategoryAlign   = 0.5
)

// decayHalfLife is the half-life for the similar-recommendation decay
// feature.
const decayHalfLife = 168 * time.Hour

// agentReliability is a static per-agent reliability lookup.
// Agents absent from the table score the neutral default.
var agentReliability = map[string]float64{
	"cost_optimization_agent": 0.85,
	"security_agent":          0.82,
	"performance_agent":       0.8,
	"architecture_agent":      0.78,
	"migration_agent":         0.72,
}

const defaultAgentReliability = 0.75

// categoryTrends holds static trend-alignment scores per category:
// how aligned a category is with current cost, security, and
// performance industry trends.
var categoryTrends = map[string][3]float64{
	"cost_optimization": {0.9, 0.4, 0.5},
	"security":          {0.4, 0.95, 0.45},
	"performance":       {0.5, 0.45, 0.85},
	"reliability":       {0.45, 0.6, 0.7},
	"architecture":      {0.55, 0.55, 0.6},
	"migration":         {0.6, 0.5, 0.5},
}

const defaultTrend = 0.5

// Extract computes the 50-dimension feature vector for a candidate.
// All inputs except now may be nil; missing data substitutes the
// documented defaults rather than failing, so downstream numeric code
// never sees NaN or Inf.
func Extract(rec *ranking.Recommendation, assessment *ranking.Assessment, profile *ranking.UserProfile, history *ranking.History, now time.Time) []float32 {
	v := make([]float64, 0, VectorSize)

	v = appendIntrinsic(v, rec)
	v = appendCompany(v, assessment)
	v = appendContext(v, rec, assessment, now)
	v = appendHistorical(v, history, now)

	out := make([]float32, VectorSize)
	for i, f := range v {
		out[i] = sanitize(f)
	}
	_ = profile // reserved: profile-level preferences feed the historical aggregates upstream
	return out
}

// appendIntrinsic emits the 15 intrinsic recommendation features.
func appendIntrinsic(v []float64, rec *ranking.Recommendation) []float64 {
	if rec == nil {
		rec = &ranking.Recommendation{}
	}

	confidence := rec.ConfidenceScore
	if confidence <= 0 || confidence > 1 || math.IsNaN(confidence) {
		confidence = defaultConfidence
	}

	cost := rec.EstimatedCost
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		cost = 0
	}
	costLog := math.Log1p(cost) / math.Log1p(1_000_000)
	if costLog > 1 {
		costLog = 1
	}

	savings := rec.EstimatedCostSavings
	if savings < 0 || math.IsNaN(savings) || math.IsInf(savings, 0) {
		savings = 0
	}
	roi := savings / (cost + 1)
	if roi > 5 {
		roi = 5
	}
	roi /= 5

	cat := ranking.NormalizeCategory(rec.Category)

	v = append(v,
		confidence,
		costLog,
		effortTier(rec.ImplementationEffort),
		roi,
		priorityTier(rec.Priority),
		priorityTier(rec.BusinessImpact),
		boolFeature(cat == "cost_optimization"),
		boolFeature(cat == "security"),
		boolFeature(cat == "performance"),
		boolFeature(providerKnown(rec.CloudProvider)),
		countFeature(len(rec.Benefits)),
		countFeature(len(rec.Risks)),
		countFeature(len(rec.ImplementationSteps)),
		countFeature(len(rec.Prerequisites)),
		lookupOr(agentReliability, rec.Agent, defaultAgentReliability),
	)
	return v
}

// appendCompany emits the 10 user/company profile features taken from
// the assessment's business requirements.
func appendCompany(v []float64, assessment *ranking.Assessment) []float64 {
	var req ranking.BusinessRequirements
	if assessment != nil {
		req = assessment.BusinessRequirements
	}

	expertise := float64(req.CloudExpertiseLevel) / 5
	if req.CloudExpertiseLevel <= 0 {
		expertise = defaultExpertise
	}
	if expertise > 1 {
		expertise = 1
	}

	v = append(v,
		companySizeTier(req.CompanySize),
		industryBucket(req.Industry),
		expertise,
		budgetTier(req.BudgetRange),
		riskTolerance(req.UrgencyLevel),
		costPriorityTier(req.CostPriority),
		boolFeature(req.MultiCloud),
		countFeature(len(req.Goals)),
		countFeature(len(req.PainPoints)),
		countFeature(len(req.ComplianceRequirements)),
	)
	return v
}

// appendContext emits the 10 context features.
func appendContext(v []float64, rec *ranking.Recommendation, assessment *ranking.Assessment, now time.Time) []float64 {
	if rec == nil {
		rec = &ranking.Recommendation{}
	}

	var completion float64
	var assessmentCreated time.Time
	status := ""
	if assessment != nil {
		completion = assessment.CompletionPercentage / 100
		assessmentCreated = assessment.CreatedAt
		status = assessment.Status
	}
	completion = clamp01(completion)

	cat := ranking.NormalizeCategory(rec.Category)
	trends, ok := categoryTrends[cat]
	if !ok {
		trends = [3]float64{defaultTrend, defaultTrend, defaultTrend}
	}

	seasonal := 1.0
	switch now.Month() {
	case time.October, time.November, time.December:
		seasonal = 1.2
	}

	v = append(v,
		completion,
		ageFeature(assessmentCreated, now, 90),
		ageFeature(rec.CreatedAt, now, 30),
		trends[0],
		trends[1],
		trends[2],
		boolOr(providerKnown(rec.CloudProvider), 0.5),
		statusTier(status),
		constCategoryAlign,
		seasonal,
	)
	return v
}

// appendHistorical emits the 15 historical/interaction features. A nil
// or empty history falls back to the conservative priors.
func appendHistorical(v []float64, history *ranking.History, now time.Time) []float64 {
	if history == nil || history.Interactions == 0 {
		return append(v,
			priorCTR,
			priorImplementation,
			priorRating,
			priorShareRate,
			priorSaveRate,
			priorViewTime,
			priorSimilarAccept,
			priorDecay,
			priorAgentAccuracy,
			priorCategoryPop,
			constComplementarity,
			constNovelty,
			constRecencyBias,
			priorFunnelPosition,
			priorGlobalPop,
		)
	}

	viewTime := history.AverageViewSeconds / 300
	if viewTime > 1 {
		viewTime = 1
	}

	decay := priorDecay
	if !history.LastSimilarShownAt.IsZero() && !history.LastSimilarShownAt.After(now) {
		hours := now.Sub(history.LastSimilarShownAt).Hours()
		decay = math.Exp2(-hours / decayHalfLife.Hours())
	}

	v = append(v,
		clamp01(history.ClickThroughRate),
		clamp01(history.ImplementationRate),
		clamp01(history.AverageRating/5),
		clamp01(history.ShareRate),
		clamp01(history.SaveRate),
		clamp01(viewTime),
		clamp01(history.SimilarUserAcceptance),
		clamp01(decay),
		clamp01(history.AgentAccuracy),
		clamp01(history.CategoryPopularity),
		constComplementarity,
		constNovelty,
		constRecencyBias,
		clamp01(history.FunnelPosition),
		clamp01(history.GlobalPopularity),
	)
	return v
}

// effortTier maps an implementation effort to its numeric tier.
func effortTier(effort string) float64 {
	switch effort {
	case ranking.EffortLow:
		return 0.33
	case ranking.EffortMedium:
		return 0.66
	case ranking.EffortHigh:
		return 1.0
	default:
		return 0.66
	}
}

// priorityTier maps priority-like strings (priority, business impact)
// to a tier value.
func priorityTier(p string) float64 {
	switch p {
	case "critical":
		return 1.0
	case "high":
		return 0.75
	case "medium":
		return 0.5
	case "low":
		return 0.25
	default:
		return defaultTier
	}
}

func companySizeTier(size string) float64 {
	switch size {
	case "startup":
		return 0.2
	case "small":
		return 0.4
	case "medium":
		return 0.6
	case "large":
		return 0.8
	case "enterprise":
		return 1.0
	default:
		return defaultTier
	}
}

func budgetTier(budget string) float64 {
	switch budget {
	case "minimal":
		return 0.25
	case "moderate":
		return 0.5
	case "substantial":
		return 0.75
	case "unlimited":
		return 1.0
	default:
		return defaultTier
	}
}

// riskTolerance derives risk tolerance from urgency: the more urgent
// the engagement, the less appetite for risky recommendations.
func riskTolerance(urgency string) float64 {
	switch urgency {
	case "critical":
		return 0.2
	case "high":
		return 0.4
	case "medium":
		return 0.6
	case "low":
		return 0.8
	default:
		return defaultTier
	}
}

func costPriorityTier(p string) float64 {
	switch p {
	case "high":
		return 1.0
	case "medium":
		return 0.6
	case "low":
		return 0.3
	default:
		return defaultTier
	}
}

func statusTier(status string) float64 {
	switch status {
	case "completed":
		return 1.0
	case "in_progress":
		return 0.7
	case "draft":
		return 0.4
	case "archived":
		return 0.2
	default:
		return defaultTier
	}
}

// industryBucket hashes the industry string into a stable [0,1) bucket
// for embedding-like behavior without a vocabulary.
func industryBucket(industry string) float64 {
	if industry == "" {
		return defaultTier
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(industry))
	return float64(h.Sum32()%1000) / 1000
}

func providerKnown(provider string) bool {
	switch provider {
	case "aws", "azure", "gcp":
		return true
	default:
		return false
	}
}

// ageFeature normalizes the age of a timestamp in days, capped at
// capDays. A zero timestamp scores the neutral default.
func ageFeature(created, now time.Time, capDays float64) float64 {
	if created.IsZero() || created.After(now) {
		return defaultTier
	}
	days := now.Sub(created).Hours() / 24
	if days > capDays {
		days = capDays
	}
	return days / capDays
}

// countFeature normalizes a list length to [0,1], saturating at 10.
func countFeature(n int) float64 {
	if n <= 0 {
		return 0
	}
	if n >= 10 {
		return 1
	}
	return float64(n) / 10
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// boolOr returns 1 for true and the supplied fallback for false.
func boolOr(b bool, fallback float64) float64 {
	if b {
		return 1
	}
	return fallback
}

func lookupOr(table map[string]float64, key string, fallback float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// sanitize converts to float32 and replaces any non-finite value.
// Extract's contract is that the output never contains NaN or Inf.
func sanitize(f float64) float32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return float32(f)
}
