// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rankmill/rankmill/internal/metrics"
	"github.com/rankmill/rankmill/internal/ranking"
)

// TrainingEngine is what the scheduler needs from the ranking engine.
type TrainingEngine interface {
	Train(ctx context.Context) (*ranking.TrainMetrics, error)
	ModelVersion() int
}

// TrainingServiceConfig holds the training schedule.
type TrainingServiceConfig struct {
	// TrainOnStartup triggers a training cycle when the service starts.
	TrainOnStartup bool

	// TrainInterval is how often to retrain. Defaults to 24h.
	TrainInterval time.Duration
}

// TrainingService runs the periodic retraining loop under supervision.
// Failed cycles are logged and retried on the next tick; an overlapping
// manual run via the API simply wins the cycle.
type TrainingService struct {
	engine TrainingEngine
	config TrainingServiceConfig
	logger zerolog.Logger
	name   string
}

// NewTrainingService creates the training scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingService(engine TrainingEngine, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	return &TrainingService{
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "training").Logger(),
		name:   "training-service",
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Msg("training service starting")

	if s.config.TrainOnStartup {
		s.runCycle(ctx)
	}

	interval := s.config.TrainInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *TrainingService) runCycle(ctx context.Context) {
	start := time.Now()
	s.logger.Info().Msg("starting scheduled training run")

	m, err := s.engine.Train(ctx)
	switch {
	case errors.Is(err, ranking.ErrTrainingInProgress):
		metrics.RecordTraining("busy", 0)
		s.logger.Info().Msg("training already running, skipping cycle")

	case err != nil:
		metrics.RecordTraining("error", 0)
		s.logger.Warn().Err(err).Msg("scheduled training failed (will retry on schedule)")

	case m == nil:
		metrics.RecordTraining("insufficient_data", 0)
		s.logger.Info().Msg("insufficient training data, skipping cycle")

	default:
		metrics.RecordTraining("success", time.Since(start))
		metrics.TrainingValidationNDCG.Set(m.ValidationNDCG10)
		metrics.TrainingGroups.Set(float64(m.GroupCount))
		metrics.ModelVersion.Set(float64(s.engine.ModelVersion()))
		s.logger.Info().
			Int("version", s.engine.ModelVersion()).
			Float64("validation_ndcg10", m.ValidationNDCG10).
			Dur("duration", time.Since(start)).
			Msg("scheduled training complete")
	}
}

// String identifies the service in suture's log messages.
func (s *TrainingService) String() string {
	return s.name
}
