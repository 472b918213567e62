// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package features

import (
	"time"

	"github.com/rankmill/rankmill/internal/ranking"
)

// Extractor adapts this package's pure functions to the engine's
// FeatureExtractor interface. Stateless and safe for concurrent use.
type Extractor struct{}

// NewExtractor returns the feature extractor.
func NewExtractor() Extractor {
	return Extractor{}
}

// Extract implements ranking.FeatureExtractor.
func (Extractor) Extract(rec *ranking.Recommendation, assessment *ranking.Assessment, profile *ranking.UserProfile, history *ranking.History, now time.Time) []float32 {
	return Extract(rec, assessment, profile, history, now)
}

// Names implements ranking.FeatureExtractor.
func (Extractor) Names() []string {
	return Names()
}
