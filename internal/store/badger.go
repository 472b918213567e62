// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

// Package store provides the durable intake store backing training
// and ranking: an append-only interaction event log plus document
// snapshots (recommendations, assessments, user profiles), persisted
// in BadgerDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rankmill/rankmill/internal/ranking"
)

// Key prefixes. Interaction keys embed a zero-padded unix-nano
// timestamp so lexicographic iteration is chronological.
const (
	interactionKeyPrefix    = "interaction:"
	recommendationKeyPrefix = "recommendation:"
	assessmentKeyPrefix     = "assessment:"
	profileKeyPrefix        = "profile:"
)

// Store is the BadgerDB-backed intake store. It implements
// ranking.DataProvider. Safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) a store at dir.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// OpenInMemory opens an ephemeral store, for tests.
func OpenInMemory(logger zerolog.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendInteraction durably records one event. Events are append-only:
// nothing ever updates or deletes them. A missing ID or timestamp is
// filled in here so callers can submit bare events.
func (s *Store) AppendInteraction(ctx context.Context, ev *ranking.Interaction) error {
	if ev == nil {
		return fmt.Errorf("nil interaction")
	}
	if ev.UserID == "" || ev.RecommendationID == "" {
		return fmt.Errorf("interaction requires user_id and recommendation_id")
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if !ranking.IsKnownInteractionType(ev.Type) {
		s.logger.Warn().
			Str("interaction_type", string(ev.Type)).
			Str("user_id", ev.UserID).
			Msg("unrecognized interaction type, will label as neutral")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}

	key := interactionKey(ev.Timestamp, ev.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func interactionKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", interactionKeyPrefix, ts.UnixNano(), id))
}

// Interactions implements ranking.DataProvider. Events are returned in
// chronological order starting at since.
func (s *Store) Interactions(ctx context.Context, since time.Time) ([]ranking.Interaction, error) {
	var out []ranking.Interaction

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(interactionKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(fmt.Sprintf("%s%020d:", interactionKeyPrefix, since.UnixNano()))
		for it.Seek(seek); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var ev ranking.Interaction
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return fmt.Errorf("decode interaction %s: %w", it.Item().Key(), err)
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutRecommendation stores a recommendation snapshot.
func (s *Store) PutRecommendation(ctx context.Context, rec *ranking.Recommendation) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("recommendation requires an id")
	}
	return s.putJSON(recommendationKeyPrefix+rec.ID, rec)
}

// PutAssessment stores an assessment snapshot.
func (s *Store) PutAssessment(ctx context.Context, assessment *ranking.Assessment) error {
	if assessment == nil || assessment.ID == "" {
		return fmt.Errorf("assessment requires an id")
	}
	return s.putJSON(assessmentKeyPrefix+assessment.ID, assessment)
}

// PutProfile stores a user profile snapshot.
func (s *Store) PutProfile(ctx context.Context, profile *ranking.UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return fmt.Errorf("profile requires a user id")
	}
	return s.putJSON(profileKeyPrefix+profile.UserID, profile)
}

func (s *Store) putJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// getJSON loads a document, reporting found=false for missing keys.
func (s *Store) getJSON(key string, v interface{}) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return true, nil
}

// Recommendation implements ranking.DataProvider. Missing documents
// return (nil, nil): the caller treats them as data gaps.
func (s *Store) Recommendation(ctx context.Context, id string) (*ranking.Recommendation, error) {
	var rec ranking.Recommendation
	found, err := s.getJSON(recommendationKeyPrefix+id, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// Assessment implements ranking.DataProvider.
func (s *Store) Assessment(ctx context.Context, id string) (*ranking.Assessment, error) {
	var a ranking.Assessment
	found, err := s.getJSON(assessmentKeyPrefix+id, &a)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

// Profile implements ranking.DataProvider.
func (s *Store) Profile(ctx context.Context, userID string) (*ranking.UserProfile, error) {
	var p ranking.UserProfile
	found, err := s.getJSON(profileKeyPrefix+userID, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// historyCounts accumulates per-type event counts for one user.
type historyCounts struct {
	views, clicks, implements, saves, shares int
	ratingSum                                float64
	ratingCount                              int
	viewSecondsSum                           float64
	viewCount                                int
	categoryEvents                           int
	totalEvents                              int
	lastCategoryEvent                        time.Time
}

// History implements ranking.DataProvider: behavioral aggregates for
// one user within one recommendation category, computed from the
// event log at read time. Returns (nil, nil) when the user has no
// events in the category; cross-user aggregates not derivable from a
// single user's log use fixed neutral values.
func (s *Store) History(ctx context.Context, userID, category string) (*ranking.History, error) {
	category = ranking.NormalizeCategory(category)

	events, err := s.Interactions(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	var c historyCounts
	recCategories := make(map[string]string)

	for i := range events {
		ev := &events[i]
		if ev.UserID != userID {
			continue
		}
		c.totalEvents++

		recCategory, ok := recCategories[ev.RecommendationID]
		if !ok {
			rec, err := s.Recommendation(ctx, ev.RecommendationID)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				recCategory = ranking.NormalizeCategory(rec.Category)
			}
			recCategories[ev.RecommendationID] = recCategory
		}
		if recCategory != category {
			continue
		}

		c.categoryEvents++
		if ev.Timestamp.After(c.lastCategoryEvent) {
			c.lastCategoryEvent = ev.Timestamp
		}

		switch ev.Type {
		case ranking.InteractionView:
			c.views++
			if ev.Value != nil {
				c.viewSecondsSum += *ev.Value
				c.viewCount++
			}
		case ranking.InteractionClick:
			c.clicks++
		case ranking.InteractionImplement:
			c.implements++
		case ranking.InteractionSave, ranking.InteractionFavorite:
			c.saves++
		case ranking.InteractionShare:
			c.shares++
		case ranking.InteractionRate:
			if ev.Value != nil {
				c.ratingSum += *ev.Value
				c.ratingCount++
			}
		}
	}

	if c.categoryEvents == 0 {
		return nil, nil
	}
	return c.toHistory(), nil
}

func (c *historyCounts) toHistory() *ranking.History {
	h := &ranking.History{
		LastSimilarShownAt: c.lastCategoryEvent,
		Interactions:       c.categoryEvents,

		// Neutral values for aggregates that need cross-user data.
		SimilarUserAcceptance: 0.5,
		AgentAccuracy:         0.75,
		GlobalPopularity:      0.25,
	}
	if c.views > 0 {
		h.ClickThroughRate = float64(c.clicks) / float64(c.views)
		h.ShareRate = float64(c.shares) / float64(c.views)
		h.SaveRate = float64(c.saves) / float64(c.views)
	}
	if c.clicks > 0 {
		h.ImplementationRate = float64(c.implements) / float64(c.clicks)
	}
	if c.ratingCount > 0 {
		h.AverageRating = c.ratingSum / float64(c.ratingCount)
	}
	if c.viewCount > 0 {
		h.AverageViewSeconds = c.viewSecondsSum / float64(c.viewCount)
	}
	if c.totalEvents > 0 {
		h.CategoryPopularity = float64(c.categoryEvents) / float64(c.totalEvents)
	}

	switch {
	case c.implements > 0:
		h.FunnelPosition = 0.9
	case c.saves > 0:
		h.FunnelPosition = 0.6
	case c.clicks > 0:
		h.FunnelPosition = 0.4
	case c.views > 0:
		h.FunnelPosition = 0.2
	default:
		h.FunnelPosition = 0.1
	}
	return h
}

// Histories batch-computes per-category histories for one user across
// the given candidate categories, for rank-time feature extraction.
func (s *Store) Histories(ctx context.Context, userID string, categories []string) (map[string]*ranking.History, error) {
	out := make(map[string]*ranking.History, len(categories))
	seen := make(map[string]bool, len(categories))
	for _, raw := range categories {
		category := ranking.NormalizeCategory(raw)
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true

		h, err := s.History(ctx, userID, category)
		if err != nil {
			return nil, err
		}
		if h != nil {
			out[category] = h
		}
	}
	return out, nil
}

// GC runs one Badger value-log garbage collection cycle. Intended to
// be called periodically by the supervisor tree.
func (s *Store) GC() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// InteractionCount reports the number of stored events, for status
// endpoints.
func (s *Store) InteractionCount(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(interactionKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ ranking.DataProvider = (*Store)(nil)
