// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

// Package model implements a LambdaRank-objective gradient-boosted
// tree ensemble for ranking recommendations within query groups.
//
// Training is list-aware: per-round gradients come from pairwise label
// swaps weighted by the |delta NDCG| each swap would cause, computed
// strictly within query groups. Trees are fit to those gradients with
// second-order (Newton) leaf values, and boosting stops early when the
// held-out NDCG stops improving.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Training errors.
var (
	// ErrNoGroups means the training set had no usable query groups.
	ErrNoGroups = errors.New("model: no query groups to train on")

	// ErrNoSignal means no group contained a label difference, so no
	// pairwise gradient exists anywhere.
	ErrNoSignal = errors.New("model: no label variation within any group")
)

// Instance is one candidate within a query group.
type Instance struct {
	// Features is the fixed-length feature vector.
	Features []float32

	// Label is the graded relevance in [0,1].
	Label float64
}

// Group is one query group: the candidates competing within a single
// assessment. Gradients and NDCG are computed within the group only.
type Group struct {
	ID        string
	Instances []Instance
}

// groupSpan locates a group inside the flattened instance arrays.
type groupSpan struct {
	start, end int
}

// Config holds training hyperparameters. Zero values take defaults.
type Config struct {
	// BoostRounds is the maximum number of boosting rounds.
	BoostRounds int

	// LearningRate shrinks each tree's contribution.
	LearningRate float64

	// MaxDepth limits tree depth.
	MaxDepth int

	// MinLeafSamples is the minimum instances per leaf.
	MinLeafSamples int

	// L2 is the Newton leaf regularization term.
	L2 float64

	// Sigma is the pairwise sigmoid steepness.
	Sigma float64

	// ValidationRatio is the fraction of groups held out for early
	// stopping. Groups, never instances, are assigned to a split.
	ValidationRatio float64

	// EarlyStopRounds stops training after this many rounds without
	// validation NDCG@10 improvement. Zero disables early stopping.
	EarlyStopRounds int

	// Seed feeds the group shuffle so splits are reproducible.
	Seed int64
}

// withDefaults fills in zero-value hyperparameters.
func (c Config) withDefaults() Config {
	if c.BoostRounds <= 0 {
		c.BoostRounds = 100
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 4
	}
	if c.MinLeafSamples <= 0 {
		c.MinLeafSamples = 2
	}
	if c.L2 <= 0 {
		c.L2 = 1.0
	}
	if c.Sigma <= 0 {
		c.Sigma = 1.0
	}
	if c.ValidationRatio <= 0 || c.ValidationRatio >= 1 {
		c.ValidationRatio = 0.2
	}
	if c.EarlyStopRounds < 0 {
		c.EarlyStopRounds = 0
	}
	return c
}

// Model is a trained ensemble. All fields are exported for gob
// round-tripping; leaf values are stored already shrunken so scoring
// is a plain sum over trees.
type Model struct {
	// Version is a monotonically increasing model version assigned by
	// the caller at save time. Zero means unversioned.
	Version int

	// Trees is the boosted ensemble in training order.
	Trees []Tree

	// NumFeatures is the feature vector length the model was fit to.
	NumFeatures int

	// Importance is per-feature-index accumulated split gain.
	Importance []float64

	// TrainedAt is when training completed.
	TrainedAt time.Time
}

// Score evaluates the ensemble for one feature vector.
func (m *Model) Score(features []float32) float64 {
	var sum float64
	for i := range m.Trees {
		sum += m.Trees[i].Score(features)
	}
	return sum
}

// ImportanceEntry is one feature in a gain-ranked importance report.
type ImportanceEntry struct {
	Index int
	Gain  float64
}

// TopFeatures returns the n highest-gain feature indices in descending
// gain order. Features that never split are omitted.
func (m *Model) TopFeatures(n int) []ImportanceEntry {
	entries := make([]ImportanceEntry, 0, len(m.Importance))
	for i, g := range m.Importance {
		if g > 0 {
			entries = append(entries, ImportanceEntry{Index: i, Gain: g})
		}
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].Gain != entries[b].Gain {
			return entries[a].Gain > entries[b].Gain
		}
		return entries[a].Index < entries[b].Index
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Metrics reports how a training run went.
type Metrics struct {
	TrainNDCG5       float64
	TrainNDCG10      float64
	ValidationNDCG5  float64
	ValidationNDCG10 float64
	Rounds           int
}

// Train fits an ensemble to the given query groups. The context is
// checked every boosting round; cancellation aborts with ctx.Err().
func Train(ctx context.Context, groups []Group, cfg Config) (*Model, Metrics, error) {
	cfg = cfg.withDefaults()

	usable := make([]Group, 0, len(groups))
	for _, g := range groups {
		if len(g.Instances) > 0 {
			usable = append(usable, g)
		}
	}
	if len(usable) == 0 {
		return nil, Metrics{}, ErrNoGroups
	}

	numFeatures := len(usable[0].Instances[0].Features)

	// Group-level split: shuffling then slicing keeps each group whole
	// on one side, which NDCG-based early stopping requires.
	rng := rand.New(rand.NewSource(cfg.Seed))
	order := rng.Perm(len(usable))
	validCount := int(float64(len(usable)) * cfg.ValidationRatio)
	if validCount == 0 && len(usable) >= 2 {
		validCount = 1
	}
	if validCount >= len(usable) {
		validCount = len(usable) - 1
	}

	var trainGroups, validGroups []Group
	for i, idx := range order {
		if i < validCount {
			validGroups = append(validGroups, usable[idx])
		} else {
			trainGroups = append(trainGroups, usable[idx])
		}
	}

	train := flatten(trainGroups)
	valid := flatten(validGroups)

	if !train.hasSignal() {
		return nil, Metrics{}, ErrNoSignal
	}

	trainScores := make([]float64, len(train.labels))
	validScores := make([]float64, len(valid.labels))

	trees := make([]Tree, 0, cfg.BoostRounds)
	treeGains := make([][]float64, 0, cfg.BoostRounds)

	indices := make([]int, len(train.labels))
	for i := range indices {
		indices[i] = i
	}

	params := treeParams{
		maxDepth:       cfg.MaxDepth,
		minLeafSamples: cfg.MinLeafSamples,
		l2:             cfg.L2,
	}

	bestRound := 0
	bestValidNDCG := math.Inf(-1)
	sinceImprovement := 0
	useValidation := len(valid.labels) > 0

	for round := 0; round < cfg.BoostRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, Metrics{}, fmt.Errorf("training cancelled at round %d: %w", round, err)
		}

		grad, hess := lambdaGradients(trainScores, train.labels, train.spans, cfg.Sigma)

		tree, gains := buildTree(train.features, grad, hess, indices, params, numFeatures)
		shrink(&tree, cfg.LearningRate)
		trees = append(trees, tree)
		treeGains = append(treeGains, gains)

		for i, f := range train.features {
			trainScores[i] += tree.Score(f)
		}
		for i, f := range valid.features {
			validScores[i] += tree.Score(f)
		}

		if useValidation {
			ndcg := meanNDCG(valid.spans, validScores, valid.labels, 10)
			if ndcg > bestValidNDCG {
				bestValidNDCG = ndcg
				bestRound = round + 1
				sinceImprovement = 0
			} else {
				sinceImprovement++
				if cfg.EarlyStopRounds > 0 && sinceImprovement >= cfg.EarlyStopRounds {
					break
				}
			}
		} else {
			bestRound = round + 1
		}
	}

	// Truncate to the best validation round and rebuild the per-feature
	// importance from the kept trees only.
	if bestRound == 0 {
		bestRound = len(trees)
	}
	trees = trees[:bestRound]
	importance := make([]float64, numFeatures)
	for _, gains := range treeGains[:bestRound] {
		for i, g := range gains {
			importance[i] += g
		}
	}

	m := &Model{
		Trees:       trees,
		NumFeatures: numFeatures,
		Importance:  importance,
		TrainedAt:   time.Now().UTC(),
	}

	metrics := Metrics{Rounds: bestRound}
	finalTrain := rescore(m, train)
	metrics.TrainNDCG5 = meanNDCG(train.spans, finalTrain, train.labels, 5)
	metrics.TrainNDCG10 = meanNDCG(train.spans, finalTrain, train.labels, 10)
	if useValidation {
		finalValid := rescore(m, valid)
		metrics.ValidationNDCG5 = meanNDCG(valid.spans, finalValid, valid.labels, 5)
		metrics.ValidationNDCG10 = meanNDCG(valid.spans, finalValid, valid.labels, 10)
	}
	return m, metrics, nil
}

// dataset is the flattened view of a group list.
type dataset struct {
	features [][]float32
	labels   []float64
	spans    []groupSpan
}

func flatten(groups []Group) dataset {
	var d dataset
	for _, g := range groups {
		start := len(d.labels)
		for _, inst := range g.Instances {
			d.features = append(d.features, inst.Features)
			d.labels = append(d.labels, inst.Label)
		}
		d.spans = append(d.spans, groupSpan{start: start, end: len(d.labels)})
	}
	return d
}

// hasSignal reports whether any group contains two different labels.
func (d dataset) hasSignal() bool {
	for _, s := range d.spans {
		for i := s.start + 1; i < s.end; i++ {
			if d.labels[i] != d.labels[s.start] {
				return true
			}
		}
	}
	return false
}

// rescore evaluates the final model over a dataset from scratch.
func rescore(m *Model, d dataset) []float64 {
	scores := make([]float64, len(d.features))
	for i, f := range d.features {
		scores[i] = m.Score(f)
	}
	return scores
}

// shrink multiplies every leaf value by the learning rate so the
// stored ensemble scores by plain summation.
func shrink(t *Tree, rate float64) {
	for i := range t.Nodes {
		if t.Nodes[i].Left < 0 {
			t.Nodes[i].Value *= rate
		}
	}
}

// lambdaGradients computes per-instance first and second order
// gradients of the LambdaRank objective. For every in-group pair with
// differing labels, the pairwise cross-entropy gradient is weighted by
// the |delta NDCG| the pair swap would cause at the current ranking.
func lambdaGradients(scores, labels []float64, spans []groupSpan, sigma float64) ([]float64, []float64) {
	grad := make([]float64, len(scores))
	hess := make([]float64, len(scores))

	for _, s := range spans {
		n := s.end - s.start
		if n < 2 {
			continue
		}

		gScores := scores[s.start:s.end]
		gLabels := labels[s.start:s.end]

		// Current rank positions by descending score.
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return gScores[order[a]] > gScores[order[b]]
		})
		rank := make([]int, n)
		for pos, idx := range order {
			rank[idx] = pos
		}

		ideal := make([]float64, n)
		copy(ideal, gLabels)
		sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
		idealDCG := dcg(ideal, 0)
		if idealDCG == 0 {
			continue
		}

		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if gLabels[i] == gLabels[j] {
					continue
				}
				hi, lo := i, j
				if gLabels[j] > gLabels[i] {
					hi, lo = j, i
				}

				deltaNDCG := math.Abs(gain(gLabels[hi])-gain(gLabels[lo])) *
					math.Abs(discount(rank[hi])-discount(rank[lo])) / idealDCG

				rho := 1 / (1 + math.Exp(sigma*(gScores[hi]-gScores[lo])))
				l := sigma * rho * deltaNDCG
				h := sigma * sigma * rho * (1 - rho) * deltaNDCG

				grad[s.start+hi] -= l
				grad[s.start+lo] += l
				hess[s.start+hi] += h
				hess[s.start+lo] += h
			}
		}
	}
	return grad, hess
}
