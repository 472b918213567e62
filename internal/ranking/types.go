// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package ranking

import (
	"context"
	"strings"
	"time"
)

// Effort tiers for Recommendation.ImplementationEffort.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

// NormalizeCategory canonicalizes a category string so that lookups
// tolerate caller casing and separator differences.
func NormalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	c = strings.ReplaceAll(c, "-", "_")
	c = strings.ReplaceAll(c, " ", "_")
	switch c {
	case "cost", "cost_optimisation":
		return "cost_optimization"
	}
	return c
}

// Recommendation is an advisory item produced by an upstream agent.
// It is immutable once generated and consumed read-only by this subsystem.
type Recommendation struct {
	// ID is the unique recommendation identifier.
	ID string `json:"id"`

	// AssessmentID is the owning assessment identifier.
	AssessmentID string `json:"assessment_id"`

	// Category is an enum-like category string
	// (e.g. "cost_optimization", "security", "performance").
	Category string `json:"category"`

	// ConfidenceScore is the generating agent's confidence (0-1).
	ConfidenceScore float64 `json:"confidence_score"`

	// EstimatedCost is the estimated implementation cost.
	EstimatedCost float64 `json:"estimated_cost"`

	// EstimatedCostSavings is the projected savings if implemented.
	EstimatedCostSavings float64 `json:"estimated_cost_savings"`

	// ImplementationEffort is one of low/medium/high.
	ImplementationEffort string `json:"implementation_effort"`

	// Priority is the advisory priority tier (low/medium/high/critical).
	Priority string `json:"priority"`

	// BusinessImpact is the expected business impact tier.
	BusinessImpact string `json:"business_impact"`

	// Benefits lists expected benefits.
	Benefits []string `json:"benefits,omitempty"`

	// Risks lists known risks.
	Risks []string `json:"risks,omitempty"`

	// ImplementationSteps lists the concrete steps to implement.
	ImplementationSteps []string `json:"implementation_steps,omitempty"`

	// Prerequisites lists prerequisites for implementation.
	Prerequisites []string `json:"prerequisites,omitempty"`

	// CloudProvider is the target provider (aws, azure, gcp).
	CloudProvider string `json:"cloud_provider,omitempty"`

	// Agent identifies the generating agent.
	Agent string `json:"agent,omitempty"`

	// CreatedAt is when the recommendation was generated.
	CreatedAt time.Time `json:"created_at"`
}

// BusinessRequirements describes the company context nested in an assessment.
type BusinessRequirements struct {
	// CompanySize is the company size tier (startup/small/medium/large/enterprise).
	CompanySize string `json:"company_size,omitempty"`

	// Industry is the company industry (free-form).
	Industry string `json:"industry,omitempty"`

	// BudgetRange is the budget tier (minimal/moderate/substantial/unlimited).
	BudgetRange string `json:"budget_range,omitempty"`

	// CloudExpertiseLevel is the team's cloud expertise on a 1-5 scale.
	CloudExpertiseLevel int `json:"cloud_expertise_level,omitempty"`

	// UrgencyLevel is the engagement urgency (low/medium/high/critical).
	UrgencyLevel string `json:"urgency_level,omitempty"`

	// CostPriority is how strongly cost reduction is prioritized
	// (low/medium/high).
	CostPriority string `json:"cost_priority,omitempty"`

	// MultiCloud indicates a multi-cloud strategy.
	MultiCloud bool `json:"multi_cloud,omitempty"`

	// Goals lists the stated engagement goals.
	Goals []string `json:"goals,omitempty"`

	// PainPoints lists the stated pain points.
	PainPoints []string `json:"pain_points,omitempty"`

	// ComplianceRequirements lists required compliance regimes.
	ComplianceRequirements []string `json:"compliance_requirements,omitempty"`
}

// Assessment is the context container a recommendation belongs to.
// Read-only input; one assessment forms one ranking query group.
type Assessment struct {
	// ID is the unique assessment identifier.
	ID string `json:"id"`

	// CompletionPercentage is how complete the assessment is (0-100).
	CompletionPercentage float64 `json:"completion_percentage"`

	// Status is the assessment lifecycle status
	// (draft/in_progress/completed/archived).
	Status string `json:"status,omitempty"`

	// BusinessRequirements holds the nested company context.
	BusinessRequirements BusinessRequirements `json:"business_requirements"`

	// CreatedAt is when the assessment was created.
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is optional per-user context supplied by the caller.
type UserProfile struct {
	// UserID is the user identifier.
	UserID string `json:"user_id"`

	// Role is the user's organizational role.
	Role string `json:"role,omitempty"`

	// PreferredCategories lists categories the user engages with most.
	PreferredCategories []string `json:"preferred_categories,omitempty"`
}

// InteractionType classifies user actions on recommendations for
// implicit feedback.
type InteractionType string

// Recognized interaction types. Unknown types still produce a label
// (a neutral default) so that ingest never rejects events.
const (
	InteractionView       InteractionType = "view"
	InteractionClick      InteractionType = "click"
	InteractionImplement  InteractionType = "implement"
	InteractionSave       InteractionType = "save"
	InteractionFavorite   InteractionType = "favorite"
	InteractionShare      InteractionType = "share"
	InteractionRate       InteractionType = "rate"
	InteractionDismiss    InteractionType = "dismiss"
	InteractionHide       InteractionType = "hide"
	InteractionThumbsUp   InteractionType = "thumbs_up"
	InteractionThumbsDown InteractionType = "thumbs_down"
)

// Interaction is a single user-recommendation event. Append-only;
// never mutated or deleted. Relevance labels are derived from it at
// read time, deterministically.
type Interaction struct {
	// ID is the unique event identifier.
	ID string `json:"id,omitempty"`

	// UserID is the acting user.
	UserID string `json:"user_id"`

	// RecommendationID is the recommendation acted on.
	RecommendationID string `json:"recommendation_id"`

	// Type is the interaction type.
	Type InteractionType `json:"interaction_type"`

	// Value is an optional numeric payload: view duration in seconds
	// for views, star rating (1-5) for ratings. Nil when absent.
	Value *float64 `json:"value,omitempty"`

	// Timestamp is when the interaction occurred.
	Timestamp time.Time `json:"timestamp"`

	// Context carries free-form metadata. The owning assessment id is
	// stored under the "assessment_id" key.
	Context map[string]string `json:"context,omitempty"`
}

// AssessmentID returns the owning assessment id from the event context,
// or empty when unknown.
func (i *Interaction) AssessmentID() string {
	return i.Context["assessment_id"]
}

// History holds behavioral aggregates consumed by the historical
// feature block. All rates are in [0,1]; missing aggregates use
// conservative priors inside the feature extractor.
type History struct {
	// ClickThroughRate is clicks / views for this user and category.
	ClickThroughRate float64 `json:"click_through_rate"`

	// ImplementationRate is implementations / clicks.
	ImplementationRate float64 `json:"implementation_rate"`

	// AverageRating is the mean star rating (0-5).
	AverageRating float64 `json:"average_rating"`

	// ShareRate is shares / views.
	ShareRate float64 `json:"share_rate"`

	// SaveRate is saves / views.
	SaveRate float64 `json:"save_rate"`

	// AverageViewSeconds is the mean view duration in seconds.
	AverageViewSeconds float64 `json:"average_view_seconds"`

	// SimilarUserAcceptance is the acceptance rate among similar users.
	SimilarUserAcceptance float64 `json:"similar_user_acceptance"`

	// LastSimilarShownAt is when a similar recommendation was last
	// shown to this user. Zero when never.
	LastSimilarShownAt time.Time `json:"last_similar_shown_at,omitempty"`

	// AgentAccuracy is the historical accuracy of the generating agent.
	AgentAccuracy float64 `json:"agent_accuracy"`

	// CategoryPopularity is the popularity of the category across users.
	CategoryPopularity float64 `json:"category_popularity"`

	// FunnelPosition locates the user in the adoption funnel (0-1).
	FunnelPosition float64 `json:"funnel_position"`

	// GlobalPopularity is the recommendation's popularity across users.
	GlobalPopularity float64 `json:"global_popularity"`

	// Interactions is the number of events the aggregates were built
	// from. Zero means "no history": the extractor falls back to priors.
	Interactions int `json:"interactions"`
}

// ScoredRecommendation pairs a candidate with its relevance score.
type ScoredRecommendation struct {
	// Recommendation is the candidate item.
	Recommendation Recommendation `json:"recommendation"`

	// Score is the model relevance score (higher is better).
	Score float64 `json:"score"`

	// Fallback is true when the score is the candidate's own
	// confidence score because no trained model was available.
	Fallback bool `json:"fallback,omitempty"`
}

// TrainingExample is one labeled (user, recommendation) group assembled
// at training time. Ephemeral; never persisted.
type TrainingExample struct {
	// UserID and RecommendationID identify the interaction group.
	UserID           string
	RecommendationID string

	// Recommendation and Assessment are the joined documents.
	Recommendation Recommendation
	Assessment     Assessment

	// Profile is the user's profile when known.
	Profile *UserProfile

	// History holds the user's behavioral aggregates when known.
	History *History

	// Label is the graded relevance in [0,1]: the strongest signal
	// (max label) across the group's interactions.
	Label float64

	// MeanLabel and Count are auxiliary aggregates over the group.
	MeanLabel float64
	Count     int
}

// QueryGroup is the set of training examples competing within one
// assessment. List-wise ranking losses are computed within, never
// across, groups; keeping examples inside their group is what makes
// NDCG computation valid.
type QueryGroup struct {
	// AssessmentID identifies the ranking context.
	AssessmentID string

	// Examples are the group's labeled examples.
	Examples []TrainingExample
}

// TrainMetrics reports the outcome of a training run.
type TrainMetrics struct {
	// TrainNDCG5 and TrainNDCG10 are NDCG cutoffs on the training split.
	TrainNDCG5  float64 `json:"train_ndcg_5"`
	TrainNDCG10 float64 `json:"train_ndcg_10"`

	// ValidationNDCG5 and ValidationNDCG10 are cutoffs on the held-out split.
	ValidationNDCG5  float64 `json:"validation_ndcg_5"`
	ValidationNDCG10 float64 `json:"validation_ndcg_10"`

	// BoostRounds is the number of boosting rounds actually trained
	// (may be below the configured maximum due to early stopping).
	BoostRounds int `json:"boost_rounds"`

	// TopFeatures lists the top features by gain-based importance.
	TopFeatures []FeatureImportance `json:"top_features"`

	// GroupCount and ExampleCount describe the training set.
	GroupCount   int `json:"group_count"`
	ExampleCount int `json:"example_count"`

	// Duration is the wall-clock training time.
	Duration time.Duration `json:"duration"`
}

// FeatureImportance is one entry of a gain-based importance report.
type FeatureImportance struct {
	// Name is the feature name from the fixed 50-entry list.
	Name string `json:"name"`

	// Gain is the total split gain attributed to the feature.
	Gain float64 `json:"gain"`
}

// Explanation surfaces why a candidate scored the way it did.
type Explanation struct {
	// RecommendationID is the explained candidate.
	RecommendationID string `json:"recommendation_id"`

	// Score is the relevance score assigned.
	Score float64 `json:"score"`

	// Fallback is true when the score is the confidence fallback.
	Fallback bool `json:"fallback,omitempty"`

	// TopFeatures are the highest-importance features with the
	// candidate's extracted values.
	TopFeatures []FeatureContribution `json:"top_features"`
}

// FeatureContribution pairs a feature with its extracted value and
// model importance.
type FeatureContribution struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Importance float64 `json:"importance"`
}

// TrainingStatus reports the engine's training state.
type TrainingStatus struct {
	// IsTraining indicates a training run is in progress.
	IsTraining bool `json:"is_training"`

	// ModelVersion is the current trained model version (0 = untrained).
	ModelVersion int `json:"model_version"`

	// LastTrainedAt is when training last completed successfully.
	LastTrainedAt time.Time `json:"last_trained_at,omitempty"`

	// LastTrainingDurationMS is how long the last run took.
	LastTrainingDurationMS int64 `json:"last_training_duration_ms,omitempty"`

	// LastError is the last training error, if any.
	LastError string `json:"last_error,omitempty"`

	// LastMetrics holds the metrics of the last successful run.
	LastMetrics *TrainMetrics `json:"last_metrics,omitempty"`

	// GroupCount and ExampleCount describe the last training set seen.
	GroupCount   int `json:"group_count"`
	ExampleCount int `json:"example_count"`
}

// DataProvider supplies training and context data. Implemented by the
// intake store; defined here so the engine has no dependency on any
// storage package.
type DataProvider interface {
	// Interactions returns interaction events since the given time.
	Interactions(ctx context.Context, since time.Time) ([]Interaction, error)

	// Recommendation returns a recommendation document by id.
	Recommendation(ctx context.Context, id string) (*Recommendation, error)

	// Assessment returns an assessment document by id.
	Assessment(ctx context.Context, id string) (*Assessment, error)

	// Profile returns a user profile, or nil when unknown.
	Profile(ctx context.Context, userID string) (*UserProfile, error)

	// History returns behavioral aggregates for a user and category,
	// or nil when the user has no recorded history.
	History(ctx context.Context, userID, category string) (*History, error)
}
