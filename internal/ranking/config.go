// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package ranking

import (
	"fmt"
	"time"
)

// Config contains all configuration for the ranking engine.
type Config struct {
	// Training contains training schedule and model hyperparameters.
	Training TrainingConfig `json:"training"`

	// Diversity contains MMR diversification parameters.
	Diversity DiversityConfig `json:"diversity"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Seed is the random seed for deterministic train/validation
	// splits. If zero, a fixed default seed is used.
	Seed int64 `json:"seed"`
}

// TrainingConfig holds training parameters.
type TrainingConfig struct {
	// MinGroups is the minimum number of query groups required to
	// train. Below this, training returns the insufficient-data
	// sentinel instead of a model.
	MinGroups int `json:"min_groups"`

	// Lookback is how far back interactions are considered.
	Lookback time.Duration `json:"lookback"`

	// BoostRounds is the maximum number of boosting rounds.
	BoostRounds int `json:"boost_rounds"`

	// LearningRate shrinks each tree's contribution.
	LearningRate float64 `json:"learning_rate"`

	// MaxDepth limits tree depth.
	MaxDepth int `json:"max_depth"`

	// ValidationRatio is the fraction of query groups held out.
	ValidationRatio float64 `json:"validation_ratio"`

	// EarlyStopRounds stops training after this many rounds without
	// validation improvement. Zero disables early stopping.
	EarlyStopRounds int `json:"early_stop_rounds"`

	// KeepArtifacts is how many old artifact versions to retain.
	KeepArtifacts int `json:"keep_artifacts"`
}

// DiversityConfig holds MMR parameters.
type DiversityConfig struct {
	// Lambda is the relevance/diversity trade-off in [0,1].
	// 1 is pure relevance, 0 is pure diversity.
	Lambda float64 `json:"lambda"`

	// TopK is the default result size after diversification.
	TopK int `json:"top_k"`
}

// LimitsConfig holds operational limits.
type LimitsConfig struct {
	// MaxCandidates caps the candidate list size per rank call.
	MaxCandidates int `json:"max_candidates"`

	// TrainTimeout bounds a single training run.
	TrainTimeout time.Duration `json:"train_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Training: TrainingConfig{
			MinGroups:       10,
			Lookback:        90 * 24 * time.Hour,
			BoostRounds:     100,
			LearningRate:    0.1,
			MaxDepth:        4,
			ValidationRatio: 0.2,
			EarlyStopRounds: 10,
			KeepArtifacts:   3,
		},
		Diversity: DiversityConfig{
			Lambda: 0.7,
			TopK:   10,
		},
		Limits: LimitsConfig{
			MaxCandidates: 500,
			TrainTimeout:  10 * time.Minute,
		},
		Seed: 42,
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Training.MinGroups < 1 {
		return fmt.Errorf("training.min_groups must be >= 1, got %d", c.Training.MinGroups)
	}
	if c.Training.Lookback <= 0 {
		return fmt.Errorf("training.lookback must be positive, got %s", c.Training.Lookback)
	}
	if c.Training.BoostRounds < 1 {
		return fmt.Errorf("training.boost_rounds must be >= 1, got %d", c.Training.BoostRounds)
	}
	if c.Training.LearningRate <= 0 || c.Training.LearningRate > 1 {
		return fmt.Errorf("training.learning_rate must be in (0,1], got %g", c.Training.LearningRate)
	}
	if c.Training.MaxDepth < 1 || c.Training.MaxDepth > 16 {
		return fmt.Errorf("training.max_depth must be in [1,16], got %d", c.Training.MaxDepth)
	}
	if c.Training.ValidationRatio < 0 || c.Training.ValidationRatio >= 1 {
		return fmt.Errorf("training.validation_ratio must be in [0,1), got %g", c.Training.ValidationRatio)
	}
	if c.Training.KeepArtifacts < 1 {
		return fmt.Errorf("training.keep_artifacts must be >= 1, got %d", c.Training.KeepArtifacts)
	}
	if c.Diversity.Lambda < 0 || c.Diversity.Lambda > 1 {
		return fmt.Errorf("diversity.lambda must be in [0,1], got %g", c.Diversity.Lambda)
	}
	if c.Diversity.TopK < 1 {
		return fmt.Errorf("diversity.top_k must be >= 1, got %d", c.Diversity.TopK)
	}
	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("limits.max_candidates must be >= 1, got %d", c.Limits.MaxCandidates)
	}
	if c.Limits.TrainTimeout <= 0 {
		return fmt.Errorf("limits.train_timeout must be positive, got %s", c.Limits.TrainTimeout)
	}
	return nil
}
