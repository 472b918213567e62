// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package storage

import (
	"fmt"

	"github.com/rankmill/rankmill/internal/ranking"
	"github.com/rankmill/rankmill/internal/ranking/model"
)

// RankerStore adapts Store to the engine's ModelStore interface.
type RankerStore struct {
	store *Store
}

// NewRankerStore opens a model store for the ranking engine at dir.
func NewRankerStore(dir string) (*RankerStore, error) {
	s, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	return &RankerStore{store: s}, nil
}

// SaveModel implements ranking.ModelStore.
func (rs *RankerStore) SaveModel(m ranking.Model, info ranking.ArtifactInfo) (int, error) {
	ensemble, ok := m.(*model.Model)
	if !ok {
		return 0, fmt.Errorf("unsupported model type %T", m)
	}
	return rs.store.Save(ensemble, ArtifactMetadata{
		TrainedAt:          info.TrainedAt,
		GroupCount:         info.GroupCount,
		ExampleCount:       info.ExampleCount,
		BoostRounds:        info.BoostRounds,
		TrainingDurationMS: info.TrainingDuration.Milliseconds(),
	})
}

// LoadModel implements ranking.ModelStore.
func (rs *RankerStore) LoadModel() (ranking.Model, ranking.ArtifactInfo, error) {
	var ensemble model.Model
	meta, err := rs.store.Load(0, &ensemble)
	if err != nil {
		return nil, ranking.ArtifactInfo{}, err
	}
	return &ensemble, ranking.ArtifactInfo{
		Version:      meta.Version,
		TrainedAt:    meta.TrainedAt,
		GroupCount:   meta.GroupCount,
		ExampleCount: meta.ExampleCount,
		BoostRounds:  meta.BoostRounds,
	}, nil
}

// Prune implements ranking.ModelStore.
func (rs *RankerStore) Prune(keep int) error {
	return rs.store.Prune(keep)
}
