// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rankmill/rankmill/internal/ranking"
)

// mockEngine implements TrainingEngine.
type mockEngine struct {
	calls   atomic.Int64
	metrics *ranking.TrainMetrics
	err     error
	version int
}

func (m *mockEngine) Train(ctx context.Context) (*ranking.TrainMetrics, error) {
	m.calls.Add(1)
	return m.metrics, m.err
}

func (m *mockEngine) ModelVersion() int { return m.version }

func TestTrainingServiceTrainOnStartup(t *testing.T) {
	engine := &mockEngine{
		metrics: &ranking.TrainMetrics{ValidationNDCG10: 0.9, GroupCount: 20},
		version: 1,
	}
	svc := NewTrainingService(engine, TrainingServiceConfig{
		TrainOnStartup: true,
		TrainInterval:  time.Hour,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-errCh

	if got := engine.calls.Load(); got != 1 {
		t.Errorf("train calls = %d, want 1", got)
	}
}

func TestTrainingServicePeriodic(t *testing.T) {
	engine := &mockEngine{metrics: &ranking.TrainMetrics{}}
	svc := NewTrainingService(engine, TrainingServiceConfig{
		TrainInterval: 20 * time.Millisecond,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(110 * time.Millisecond)
	cancel()
	<-errCh

	if got := engine.calls.Load(); got < 2 {
		t.Errorf("train calls = %d, want >= 2", got)
	}
}

func TestTrainingServiceSurvivesFailures(t *testing.T) {
	// Training errors must not stop the loop.
	engine := &mockEngine{err: errors.New("no signal")}
	svc := NewTrainingService(engine, TrainingServiceConfig{
		TrainOnStartup: true,
		TrainInterval:  20 * time.Millisecond,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(70 * time.Millisecond)
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if got := engine.calls.Load(); got < 2 {
		t.Errorf("train calls = %d, want >= 2", got)
	}
}

func TestTrainingServiceString(t *testing.T) {
	svc := NewTrainingService(&mockEngine{}, TrainingServiceConfig{}, zerolog.Nop())
	if svc.String() != "training-service" {
		t.Errorf("String() = %q", svc.String())
	}
}
