// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Note: this package depends only on the interfaces below, never on
// the concrete feature, model, or storage packages. Implementations
// are injected at construction, which keeps the dependency graph
// acyclic and lets tests substitute stubs.

// FeatureExtractor turns domain documents into a fixed-length vector.
type FeatureExtractor interface {
	Extract(rec *Recommendation, assessment *Assessment, profile *UserProfile, history *History, now time.Time) []float32
	Names() []string
}

// Model is a trained scorer over feature vectors.
type Model interface {
	// Score returns the relevance score for one feature vector.
	Score(features []float32) float64

	// Importances returns per-feature-index accumulated split gain.
	Importances() []float64
}

// FeatureGroup is one query group converted to vectors and labels,
// parallel slices in group-contiguous order.
type FeatureGroup struct {
	AssessmentID string
	Vectors      [][]float32
	Labels       []float64
}

// TrainStats reports ranking quality of a completed training run.
type TrainStats struct {
	TrainNDCG5       float64
	TrainNDCG10      float64
	ValidationNDCG5  float64
	ValidationNDCG10 float64
	Rounds           int
}

// Trainer fits a model to labeled feature groups.
type Trainer interface {
	Train(ctx context.Context, groups []FeatureGroup, cfg TrainingConfig, seed int64) (Model, TrainStats, error)
}

// ArtifactInfo is the metadata attached to a persisted model.
type ArtifactInfo struct {
	Version          int
	TrainedAt        time.Time
	GroupCount       int
	ExampleCount     int
	BoostRounds      int
	TrainingDuration time.Duration
}

// ModelStore persists trained models as atomic, versioned artifacts.
type ModelStore interface {
	// SaveModel writes a new artifact version and returns it.
	SaveModel(m Model, info ArtifactInfo) (int, error)

	// LoadModel restores the latest artifact. A missing artifact
	// returns an error the caller treats as "start untrained".
	LoadModel() (Model, ArtifactInfo, error)

	// Prune removes all but the newest keep artifact versions.
	Prune(keep int) error
}

// Diversifier reorders a scored list for diversity.
type Diversifier interface {
	Diversify(items []ScoredRecommendation, lambda float64, topK int) []ScoredRecommendation
	Score(items []ScoredRecommendation) float64
}

// activeModel is the immutable unit swapped on retrain.
type activeModel struct {
	model   Model
	version int
}

// Ranker scores and orders recommendation candidates. It is safe for
// concurrent use: rank calls read the current model through an atomic
// pointer and are never blocked by an in-flight training run.
type Ranker struct {
	config      *Config
	logger      zerolog.Logger
	provider    DataProvider
	extractor   FeatureExtractor
	trainer     Trainer
	store       ModelStore
	diversifier Diversifier

	// trainMu makes training a singleton job. TryLock, never Lock:
	// a second concurrent train request is rejected, not queued.
	trainMu sync.Mutex

	statusMu sync.RWMutex
	status   TrainingStatus

	current atomic.Pointer[activeModel]
}

// RankerDeps bundles the injected collaborators.
type RankerDeps struct {
	Provider    DataProvider
	Extractor   FeatureExtractor
	Trainer     Trainer
	Store       ModelStore
	Diversifier Diversifier
}

// NewRanker creates a ranking engine. Provider and Store may be nil
// for inference-only use; Extractor, Trainer, and Diversifier are
// required.
func NewRanker(cfg *Config, logger zerolog.Logger, deps RankerDeps) (*Ranker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Extractor == nil {
		return nil, fmt.Errorf("feature extractor not set")
	}
	if deps.Trainer == nil {
		return nil, fmt.Errorf("trainer not set")
	}
	if deps.Diversifier == nil {
		return nil, fmt.Errorf("diversifier not set")
	}

	return &Ranker{
		config:      cfg,
		logger:      logger.With().Str("component", "ranking").Logger(),
		provider:    deps.Provider,
		extractor:   deps.Extractor,
		trainer:     deps.Trainer,
		store:       deps.Store,
		diversifier: deps.Diversifier,
	}, nil
}

// LoadArtifact restores the latest persisted model, if any. A missing
// or corrupt artifact is logged and ignored: the ranker starts in the
// confidence-fallback state and startup never fails because of it.
func (r *Ranker) LoadArtifact() {
	if r.store == nil {
		return
	}
	m, info, err := r.store.LoadModel()
	if err != nil {
		r.logger.Warn().Err(err).Msg("no usable model artifact, serving confidence fallback")
		return
	}
	r.current.Store(&activeModel{model: m, version: info.Version})

	r.statusMu.Lock()
	r.status.ModelVersion = info.Version
	r.status.LastTrainedAt = info.TrainedAt
	r.status.GroupCount = info.GroupCount
	r.status.ExampleCount = info.ExampleCount
	r.statusMu.Unlock()

	r.logger.Info().
		Int("version", info.Version).
		Time("trained_at", info.TrainedAt).
		Msg("loaded model artifact")
}

// ErrTrainingInProgress is returned when a train call overlaps another.
var ErrTrainingInProgress = fmt.Errorf("training already in progress")

// Train assembles the training set, fits a new model, persists it, and
// swaps it in atomically. Rank calls against the previous model are
// never blocked.
//
// Too few query groups is not an error: Train returns (nil, nil) so
// schedulers can skip the cycle and try again later. A concurrent
// training run returns ErrTrainingInProgress.
func (r *Ranker) Train(ctx context.Context) (*TrainMetrics, error) {
	if !r.trainMu.TryLock() {
		return nil, ErrTrainingInProgress
	}
	defer r.trainMu.Unlock()

	if r.provider == nil {
		return nil, fmt.Errorf("data provider not set")
	}

	r.setTraining(true)
	defer r.setTraining(false)

	start := time.Now()
	if r.config.Limits.TrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Limits.TrainTimeout)
		defer cancel()
	}

	groups, err := BuildTrainingSet(ctx, r.provider, time.Now().UTC(), r.config.Training.Lookback)
	if err != nil {
		r.recordFailure(err)
		return nil, fmt.Errorf("assemble training set: %w", err)
	}

	exampleCount := 0
	for _, g := range groups {
		exampleCount += len(g.Examples)
	}
	r.statusMu.Lock()
	r.status.GroupCount = len(groups)
	r.status.ExampleCount = exampleCount
	r.statusMu.Unlock()

	if len(groups) < r.config.Training.MinGroups {
		r.logger.Info().
			Int("groups", len(groups)).
			Int("min_groups", r.config.Training.MinGroups).
			Msg("insufficient training data, skipping cycle")
		return nil, nil
	}

	featureGroups := r.vectorize(groups)

	m, stats, err := r.trainer.Train(ctx, featureGroups, r.config.Training, r.seed())
	if err != nil {
		r.recordFailure(err)
		return nil, fmt.Errorf("train model (groups=%d examples=%d): %w", len(groups), exampleCount, err)
	}

	duration := time.Since(start)
	version := 0
	if r.store != nil {
		version, err = r.store.SaveModel(m, ArtifactInfo{
			TrainedAt:        time.Now().UTC(),
			GroupCount:       len(groups),
			ExampleCount:     exampleCount,
			BoostRounds:      stats.Rounds,
			TrainingDuration: duration,
		})
		if err != nil {
			// The previous artifact stays in use; a failed save must
			// not put an unpersisted model in the serving path.
			r.recordFailure(err)
			return nil, fmt.Errorf("persist model: %w", err)
		}
		if err := r.store.Prune(r.config.Training.KeepArtifacts); err != nil {
			r.logger.Warn().Err(err).Msg("prune old artifacts")
		}
	}

	// Swap only after a successful save.
	r.current.Store(&activeModel{model: m, version: version})

	metrics := &TrainMetrics{
		TrainNDCG5:       stats.TrainNDCG5,
		TrainNDCG10:      stats.TrainNDCG10,
		ValidationNDCG5:  stats.ValidationNDCG5,
		ValidationNDCG10: stats.ValidationNDCG10,
		BoostRounds:      stats.Rounds,
		TopFeatures:      r.topFeatures(m, 10),
		GroupCount:       len(groups),
		ExampleCount:     exampleCount,
		Duration:         duration,
	}

	r.statusMu.Lock()
	r.status.ModelVersion = version
	r.status.LastTrainedAt = time.Now().UTC()
	r.status.LastTrainingDurationMS = duration.Milliseconds()
	r.status.LastError = ""
	r.status.LastMetrics = metrics
	r.statusMu.Unlock()

	r.logger.Info().
		Int("version", version).
		Int("groups", len(groups)).
		Int("examples", exampleCount).
		Int("rounds", stats.Rounds).
		Float64("validation_ndcg10", stats.ValidationNDCG10).
		Dur("duration", duration).
		Msg("training complete")

	return metrics, nil
}

// vectorize converts document-level query groups into feature groups,
// preserving group contiguity.
func (r *Ranker) vectorize(groups []QueryGroup) []FeatureGroup {
	now := time.Now().UTC()
	out := make([]FeatureGroup, 0, len(groups))
	for _, g := range groups {
		fg := FeatureGroup{
			AssessmentID: g.AssessmentID,
			Vectors:      make([][]float32, 0, len(g.Examples)),
			Labels:       make([]float64, 0, len(g.Examples)),
		}
		for i := range g.Examples {
			ex := &g.Examples[i]
			fg.Vectors = append(fg.Vectors,
				r.extractor.Extract(&ex.Recommendation, &ex.Assessment, ex.Profile, ex.History, now))
			fg.Labels = append(fg.Labels, ex.Label)
		}
		out = append(out, fg)
	}
	return out
}

// RankRequest is one scoring request. Histories is keyed by category;
// all data arrives materialized so ranking itself does no I/O.
type RankRequest struct {
	Candidates []Recommendation
	Assessment *Assessment
	Profile    *UserProfile
	Histories  map[string]*History

	// TopK > 0 applies MMR diversification down to TopK items.
	TopK int

	// Lambda overrides the configured diversity trade-off when
	// non-nil.
	Lambda *float64

	// Now defaults to the current time; settable for reproducibility.
	Now time.Time
}

// RankResponse is the ordered result of a rank call.
type RankResponse struct {
	Items          []ScoredRecommendation
	DiversityScore float64
	ModelVersion   int
	Fallback       bool
	Duration       time.Duration
}

// Rank orders candidates by relevance, most relevant first. It never
// fails and never returns an empty list for non-empty input: without a
// trained model, candidates are ordered by their own confidence score.
func (r *Ranker) Rank(req RankRequest) *RankResponse {
	start := time.Now()
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	candidates := req.Candidates
	if limit := r.config.Limits.MaxCandidates; len(candidates) > limit {
		r.logger.Warn().
			Int("candidates", len(candidates)).
			Int("max", limit).
			Msg("candidate list truncated")
		candidates = candidates[:limit]
	}

	active := r.current.Load()
	resp := &RankResponse{Fallback: active == nil}

	scored := make([]ScoredRecommendation, 0, len(candidates))
	for i := range candidates {
		rec := &candidates[i]
		var score float64
		if active == nil {
			score = rec.ConfidenceScore
		} else {
			vec := r.extractor.Extract(rec, req.Assessment, req.Profile, r.historyFor(req, rec), now)
			score = active.model.Score(vec)
		}
		scored = append(scored, ScoredRecommendation{
			Recommendation: *rec,
			Score:          score,
			Fallback:       active == nil,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Recommendation.ConfidenceScore != scored[j].Recommendation.ConfidenceScore {
			return scored[i].Recommendation.ConfidenceScore > scored[j].Recommendation.ConfidenceScore
		}
		return scored[i].Recommendation.ID < scored[j].Recommendation.ID
	})

	if req.TopK > 0 {
		lambda := r.config.Diversity.Lambda
		if req.Lambda != nil {
			lambda = *req.Lambda
		}
		scored = r.diversifier.Diversify(scored, lambda, req.TopK)
	}

	resp.Items = scored
	resp.DiversityScore = r.diversifier.Score(scored)
	if active != nil {
		resp.ModelVersion = active.version
	}
	resp.Duration = time.Since(start)
	return resp
}

// historyFor picks the candidate's category history out of the request.
func (r *Ranker) historyFor(req RankRequest, rec *Recommendation) *History {
	if req.Histories == nil {
		return nil
	}
	return req.Histories[NormalizeCategory(rec.Category)]
}

// Explain scores one candidate and surfaces the highest-importance
// features with the candidate's extracted values.
func (r *Ranker) Explain(rec *Recommendation, assessment *Assessment, profile *UserProfile, history *History) Explanation {
	now := time.Now().UTC()
	vec := r.extractor.Extract(rec, assessment, profile, history, now)
	names := r.extractor.Names()

	exp := Explanation{}
	if rec != nil {
		exp.RecommendationID = rec.ID
	}

	active := r.current.Load()
	if active == nil {
		if rec != nil {
			exp.Score = rec.ConfidenceScore
		}
		exp.Fallback = true
		return exp
	}

	exp.Score = active.model.Score(vec)
	for _, fi := range rankImportances(active.model.Importances(), 10) {
		name := ""
		if fi.index < len(names) {
			name = names[fi.index]
		}
		value := 0.0
		if fi.index < len(vec) {
			value = float64(vec[fi.index])
		}
		exp.TopFeatures = append(exp.TopFeatures, FeatureContribution{
			Name:       name,
			Value:      value,
			Importance: fi.gain,
		})
	}
	return exp
}

// Status returns a snapshot of the training state.
func (r *Ranker) Status() TrainingStatus {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// ModelVersion returns the currently serving model version, 0 when
// untrained.
func (r *Ranker) ModelVersion() int {
	if active := r.current.Load(); active != nil {
		return active.version
	}
	return 0
}

// topFeatures maps the model's per-index importances to named entries.
func (r *Ranker) topFeatures(m Model, n int) []FeatureImportance {
	names := r.extractor.Names()
	ranked := rankImportances(m.Importances(), n)
	out := make([]FeatureImportance, 0, len(ranked))
	for _, fi := range ranked {
		name := ""
		if fi.index < len(names) {
			name = names[fi.index]
		}
		out = append(out, FeatureImportance{Name: name, Gain: fi.gain})
	}
	return out
}

type indexedGain struct {
	index int
	gain  float64
}

// rankImportances returns the n largest nonzero gains in descending
// order, ties broken by index for determinism.
func rankImportances(importances []float64, n int) []indexedGain {
	ranked := make([]indexedGain, 0, len(importances))
	for i, g := range importances {
		if g > 0 {
			ranked = append(ranked, indexedGain{index: i, gain: g})
		}
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].gain != ranked[b].gain {
			return ranked[a].gain > ranked[b].gain
		}
		return ranked[a].index < ranked[b].index
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (r *Ranker) seed() int64 {
	if r.config.Seed != 0 {
		return r.config.Seed
	}
	return 42
}

func (r *Ranker) setTraining(v bool) {
	r.statusMu.Lock()
	r.status.IsTraining = v
	r.statusMu.Unlock()
}

func (r *Ranker) recordFailure(err error) {
	r.statusMu.Lock()
	r.status.LastError = err.Error()
	r.statusMu.Unlock()
	r.logger.Error().Err(err).Msg("training failed")
}
