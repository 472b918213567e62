// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
)

func TestNDCG(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		labels []float64
		k      int
		want   float64
	}{
		{
			name:   "perfect ordering",
			scores: []float64{3, 2, 1},
			labels: []float64{1.0, 0.5, 0.0},
			k:      10,
			want:   1.0,
		},
		{
			name:   "all labels zero",
			scores: []float64{3, 2, 1},
			labels: []float64{0, 0, 0},
			k:      10,
			want:   1.0,
		},
		{
			name:   "empty",
			scores: nil,
			labels: nil,
			k:      10,
			want:   0,
		},
		{
			name:   "mismatched lengths",
			scores: []float64{1, 2},
			labels: []float64{1},
			k:      10,
			want:   0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NDCG(tc.scores, tc.labels, tc.k)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("NDCG = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNDCGReversedWorseThanPerfect(t *testing.T) {
	labels := []float64{1.0, 0.7, 0.4, 0.0}
	perfect := NDCG([]float64{4, 3, 2, 1}, labels, 10)
	reversed := NDCG([]float64{1, 2, 3, 4}, labels, 10)
	if reversed >= perfect {
		t.Errorf("reversed NDCG %v not below perfect %v", reversed, perfect)
	}
	if reversed <= 0 {
		t.Errorf("reversed NDCG %v should still be positive", reversed)
	}
}

// syntheticGroups builds groups whose labels are perfectly determined
// by feature 0, with the remaining features as noise.
func syntheticGroups(numGroups, perGroup, numFeatures int, seed int64) []Group {
	rng := rand.New(rand.NewSource(seed))
	groups := make([]Group, 0, numGroups)
	for g := 0; g < numGroups; g++ {
		instances := make([]Instance, 0, perGroup)
		for i := 0; i < perGroup; i++ {
			label := 0.0
			if i%2 == 0 {
				label = 1.0
			}
			f := make([]float32, numFeatures)
			f[0] = float32(label) + float32(rng.Float64())*0.1
			for j := 1; j < numFeatures; j++ {
				f[j] = float32(rng.Float64())
			}
			instances = append(instances, Instance{Features: f, Label: label})
		}
		groups = append(groups, Group{ID: fmt.Sprintf("g%d", g), Instances: instances})
	}
	return groups
}

func TestTrainLearnsSeparableData(t *testing.T) {
	groups := syntheticGroups(12, 6, 8, 7)
	cfg := Config{
		BoostRounds:     50,
		LearningRate:    0.2,
		MaxDepth:        3,
		EarlyStopRounds: 10,
		Seed:            42,
	}

	m, metrics, err := Train(context.Background(), groups, cfg)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if metrics.Rounds == 0 || len(m.Trees) != metrics.Rounds {
		t.Fatalf("rounds = %d, trees = %d", metrics.Rounds, len(m.Trees))
	}
	if metrics.TrainNDCG10 < 0.9 {
		t.Errorf("train NDCG@10 = %v, want >= 0.9 on separable data", metrics.TrainNDCG10)
	}
	if metrics.ValidationNDCG10 < 0.8 {
		t.Errorf("validation NDCG@10 = %v, want >= 0.8 on separable data", metrics.ValidationNDCG10)
	}

	// The model must rank a relevant item above an irrelevant one.
	relevant := make([]float32, 8)
	relevant[0] = 1.05
	irrelevant := make([]float32, 8)
	irrelevant[0] = 0.05
	if m.Score(relevant) <= m.Score(irrelevant) {
		t.Errorf("relevant score %v not above irrelevant %v", m.Score(relevant), m.Score(irrelevant))
	}

	// Feature 0 carries all the signal, so it must dominate importance.
	top := m.TopFeatures(3)
	if len(top) == 0 || top[0].Index != 0 {
		t.Errorf("top feature = %+v, want index 0 first", top)
	}
}

func TestTrainDeterministic(t *testing.T) {
	groups := syntheticGroups(10, 6, 5, 3)
	cfg := Config{BoostRounds: 10, Seed: 99}

	m1, met1, err := Train(context.Background(), groups, cfg)
	if err != nil {
		t.Fatalf("first Train: %v", err)
	}
	m2, met2, err := Train(context.Background(), groups, cfg)
	if err != nil {
		t.Fatalf("second Train: %v", err)
	}
	if met1 != met2 {
		t.Errorf("metrics differ across identical runs: %+v vs %+v", met1, met2)
	}
	probe := []float32{0.8, 0.1, 0.2, 0.3, 0.4}
	if m1.Score(probe) != m2.Score(probe) {
		t.Errorf("scores differ across identical runs")
	}
}

func TestTrainErrors(t *testing.T) {
	t.Run("no groups", func(t *testing.T) {
		_, _, err := Train(context.Background(), nil, Config{})
		if !errors.Is(err, ErrNoGroups) {
			t.Errorf("err = %v, want ErrNoGroups", err)
		}
	})

	t.Run("no label variation", func(t *testing.T) {
		groups := []Group{
			{ID: "a", Instances: []Instance{
				{Features: []float32{1}, Label: 0.5},
				{Features: []float32{2}, Label: 0.5},
			}},
			{ID: "b", Instances: []Instance{
				{Features: []float32{3}, Label: 0.5},
				{Features: []float32{4}, Label: 0.5},
			}},
		}
		_, _, err := Train(context.Background(), groups, Config{Seed: 1})
		if !errors.Is(err, ErrNoSignal) {
			t.Errorf("err = %v, want ErrNoSignal", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := Train(ctx, syntheticGroups(8, 6, 4, 1), Config{Seed: 1})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestTreeScoreEmptyTree(t *testing.T) {
	var tr Tree
	if got := tr.Score([]float32{1, 2, 3}); got != 0 {
		t.Errorf("empty tree score = %v, want 0", got)
	}
}

func TestTopFeaturesOrderingAndLimit(t *testing.T) {
	m := &Model{Importance: []float64{0, 3.5, 1.2, 0, 9.9}}

	top := m.TopFeatures(2)
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2", len(top))
	}
	if top[0].Index != 4 || top[1].Index != 1 {
		t.Errorf("order = %+v, want indices 4 then 1", top)
	}

	all := m.TopFeatures(0)
	if len(all) != 3 {
		t.Errorf("unlimited length = %d, want 3 (zero-gain omitted)", len(all))
	}
}
