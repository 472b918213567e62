// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package model

import "sort"

// Node is one node of a regression tree. Nodes are stored flat and
// reference children by slice index so the tree gob-encodes without
// pointer chasing. Leaf nodes have Left == -1.
type Node struct {
	// Feature and Threshold define the split: instances with
	// feature value <= Threshold go left.
	Feature   int
	Threshold float32

	// Left and Right index the child nodes, -1 for leaves.
	Left  int
	Right int

	// Value is the leaf output. Zero for internal nodes.
	Value float64
}

// Tree is a regression tree fit to per-instance gradients and
// hessians with Newton leaf values.
type Tree struct {
	Nodes []Node
}

// Score evaluates the tree for one feature vector.
func (t *Tree) Score(features []float32) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if n.Feature < len(features) && features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeParams controls tree growth.
type treeParams struct {
	maxDepth       int
	minLeafSamples int
	l2             float64
	minGain        float64
}

// treeBuilder grows one tree over a working set of instance indices.
// splitGain accumulates per-feature gain for importance reporting.
type treeBuilder struct {
	features  [][]float32
	grad      []float64
	hess      []float64
	params    treeParams
	splitGain []float64
	nodes     []Node
}

// build fits a tree to the given instance indices and returns it along
// with the per-feature split gains accumulated while growing.
func buildTree(features [][]float32, grad, hess []float64, indices []int, params treeParams, numFeatures int) (Tree, []float64) {
	b := &treeBuilder{
		features:  features,
		grad:      grad,
		hess:      hess,
		params:    params,
		splitGain: make([]float64, numFeatures),
	}
	b.grow(indices, 0)
	return Tree{Nodes: b.nodes}, b.splitGain
}

// grow recursively partitions indices and returns the node index.
func (b *treeBuilder) grow(indices []int, depth int) int {
	var sumG, sumH float64
	for _, i := range indices {
		sumG += b.grad[i]
		sumH += b.hess[i]
	}

	makeLeaf := func() int {
		b.nodes = append(b.nodes, Node{
			Left:  -1,
			Right: -1,
			Value: newtonValue(sumG, sumH, b.params.l2),
		})
		return len(b.nodes) - 1
	}

	if depth >= b.params.maxDepth || len(indices) < 2*b.params.minLeafSamples {
		return makeLeaf()
	}

	feat, threshold, gain := b.bestSplit(indices, sumG, sumH)
	if feat < 0 || gain <= b.params.minGain {
		return makeLeaf()
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if b.features[i][feat] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.params.minLeafSamples || len(right) < b.params.minLeafSamples {
		return makeLeaf()
	}

	b.splitGain[feat] += gain

	// Reserve this node's slot before recursing so children land after it.
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: feat, Threshold: threshold})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit scans every feature for the split with the highest Newton
// gain. Returns feature -1 when no valid split exists.
func (b *treeBuilder) bestSplit(indices []int, sumG, sumH float64) (int, float32, float64) {
	bestFeat := -1
	var bestThreshold float32
	var bestGain float64

	parentScore := scoreTerm(sumG, sumH, b.params.l2)

	order := make([]int, len(indices))
	numFeatures := len(b.splitGain)
	for feat := 0; feat < numFeatures; feat++ {
		copy(order, indices)
		sort.Slice(order, func(a, c int) bool {
			return b.features[order[a]][feat] < b.features[order[c]][feat]
		})

		var leftG, leftH float64
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftG += b.grad[i]
			leftH += b.hess[i]

			cur := b.features[i][feat]
			next := b.features[order[pos+1]][feat]
			if cur == next {
				continue
			}
			if pos+1 < b.params.minLeafSamples || len(order)-pos-1 < b.params.minLeafSamples {
				continue
			}

			rightG := sumG - leftG
			rightH := sumH - leftH
			gain := scoreTerm(leftG, leftH, b.params.l2) +
				scoreTerm(rightG, rightH, b.params.l2) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeat = feat
				// Midpoint keeps the split stable under float32 noise.
				bestThreshold = (cur + next) / 2
			}
		}
	}
	return bestFeat, bestThreshold, bestGain
}

// scoreTerm is the structure-score term G^2/(H+lambda) of the Newton
// split gain.
func scoreTerm(g, h, l2 float64) float64 {
	denom := h + l2
	if denom <= 0 {
		return 0
	}
	return g * g / denom
}

// newtonValue is the optimal leaf output -G/(H+lambda).
func newtonValue(g, h, l2 float64) float64 {
	denom := h + l2
	if denom <= 0 {
		return 0
	}
	return -g / denom
}
