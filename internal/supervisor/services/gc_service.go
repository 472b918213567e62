// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GarbageCollector is what the GC loop needs from the store.
type GarbageCollector interface {
	GC() error
}

// StoreGCService runs periodic BadgerDB value-log garbage collection.
// GC errors are logged and retried on the next tick.
type StoreGCService struct {
	store    GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewStoreGCService creates the GC loop. interval defaults to 10m.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStoreGCService(store GarbageCollector, interval time.Duration, logger zerolog.Logger) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("service", "store-gc").Logger(),
		name:     "store-gc",
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := s.store.GC(); err != nil {
				s.logger.Warn().Err(err).Msg("value log gc failed")
			}
		}
	}
}

// String identifies the service in suture's log messages.
func (s *StoreGCService) String() string {
	return s.name
}
