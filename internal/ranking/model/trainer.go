// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package model

import (
	"context"

	"github.com/rankmill/rankmill/internal/ranking"
)

// Importances implements ranking.Model.
func (m *Model) Importances() []float64 {
	return m.Importance
}

// LambdaMART adapts Train to the engine's Trainer interface.
// Stateless; every call fits a fresh ensemble.
type LambdaMART struct{}

// NewLambdaMART returns the boosted-tree trainer.
func NewLambdaMART() LambdaMART {
	return LambdaMART{}
}

// Train implements ranking.Trainer.
func (LambdaMART) Train(ctx context.Context, groups []ranking.FeatureGroup, cfg ranking.TrainingConfig, seed int64) (ranking.Model, ranking.TrainStats, error) {
	converted := make([]Group, 0, len(groups))
	for _, g := range groups {
		instances := make([]Instance, 0, len(g.Vectors))
		for i := range g.Vectors {
			instances = append(instances, Instance{Features: g.Vectors[i], Label: g.Labels[i]})
		}
		converted = append(converted, Group{ID: g.AssessmentID, Instances: instances})
	}

	m, metrics, err := Train(ctx, converted, Config{
		BoostRounds:     cfg.BoostRounds,
		LearningRate:    cfg.LearningRate,
		MaxDepth:        cfg.MaxDepth,
		ValidationRatio: cfg.ValidationRatio,
		EarlyStopRounds: cfg.EarlyStopRounds,
		Seed:            seed,
	})
	if err != nil {
		return nil, ranking.TrainStats{}, err
	}
	return m, ranking.TrainStats{
		TrainNDCG5:       metrics.TrainNDCG5,
		TrainNDCG10:      metrics.TrainNDCG10,
		ValidationNDCG5:  metrics.ValidationNDCG5,
		ValidationNDCG10: metrics.ValidationNDCG10,
		Rounds:           metrics.Rounds,
	}, nil
}
