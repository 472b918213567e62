// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// labelUnknownType is assigned to unrecognized interaction types.
// Events are never rejected for having a type this version does not
// know about; they contribute a weak neutral signal instead.
const labelUnknownType = 0.3

// ComputeLabel converts an interaction into a graded relevance label in
// [0,1]. Pure and total: every (type, value) combination maps to a
// label, and the same input always yields the same output. Labels are
// derived at read time and never stored, so this mapping must stay
// reproducible bit-for-bit across releases.
func ComputeLabel(t InteractionType, value *float64) float64 {
	switch t {
	case InteractionImplement:
		return 1.0
	case InteractionSave, InteractionFavorite:
		return 0.8
	case InteractionRate:
		return rateLabel(value)
	case InteractionShare:
		return 0.6
	case InteractionClick:
		return 0.4
	case InteractionView:
		return viewLabel(value)
	case InteractionDismiss, InteractionHide:
		return 0.0
	case InteractionThumbsUp:
		return 0.7
	case InteractionThumbsDown:
		return 0.1
	default:
		return labelUnknownType
	}
}

// rateLabel tiers a star rating into a relevance label.
func rateLabel(stars *float64) float64 {
	if stars == nil {
		return 0.5
	}
	switch {
	case *stars >= 4.5:
		return 1.0
	case *stars >= 3.5:
		return 0.7
	case *stars >= 2.5:
		return 0.5
	case *stars >= 1.5:
		return 0.2
	default:
		return 0.1
	}
}

// viewLabel converts a view duration in seconds into a label. Long
// views saturate at 0.4 so that passive exposure never outweighs an
// explicit click.
func viewLabel(seconds *float64) float64 {
	if seconds == nil {
		return 0.2
	}
	t := *seconds
	switch {
	case t < 10:
		return 0.1
	case t < 30:
		return 0.15
	case t < 60:
		return 0.25
	default:
		v := 0.25 + (t-60)/300
		if v > 0.4 {
			v = 0.4
		}
		return v
	}
}

// IsKnownInteractionType reports whether t maps to a dedicated label.
func IsKnownInteractionType(t InteractionType) bool {
	switch t {
	case InteractionView, InteractionClick, InteractionImplement,
		InteractionSave, InteractionFavorite, InteractionShare,
		InteractionRate, InteractionDismiss, InteractionHide,
		InteractionThumbsUp, InteractionThumbsDown:
		return true
	default:
		return false
	}
}

// interactionKey groups events belonging to the same (user,
// recommendation) pair.
type interactionKey struct {
	userID           string
	recommendationID string
}

// labelAggregate accumulates labels for one (user, recommendation) pair.
type labelAggregate struct {
	maxLabel     float64
	sumLabel     float64
	count        int
	assessmentID string
}

// BuildTrainingSet converts raw interactions into query groups ready
// for list-wise training. Interactions are grouped by (user,
// recommendation) within the lookback window ending at now; each
// group's label is the strongest signal (max) with mean and count kept
// as auxiliary features. Groups are then joined against their owning
// recommendation and assessment documents via the provider and bucketed
// into one QueryGroup per assessment.
//
// Events whose documents cannot be resolved are skipped rather than
// failing the assembly: a missing upstream document is a data gap, not
// a training error. The returned groups are ordered by assessment id
// and examples within a group by recommendation id, so assembly is
// deterministic for a given event set.
func BuildTrainingSet(ctx context.Context, provider DataProvider, now time.Time, lookback time.Duration) ([]QueryGroup, error) {
	if provider == nil {
		return nil, fmt.Errorf("data provider not set")
	}
	if lookback <= 0 {
		lookback = 90 * 24 * time.Hour
	}

	since := now.Add(-lookback)
	interactions, err := provider.Interactions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	aggregates := aggregateInteractions(interactions, since, now)
	return assembleGroups(ctx, provider, aggregates)
}

// aggregateInteractions folds events into per-(user, recommendation)
// label aggregates, dropping events outside the window.
func aggregateInteractions(interactions []Interaction, since, now time.Time) map[interactionKey]*labelAggregate {
	aggregates := make(map[interactionKey]*labelAggregate)

	for idx := range interactions {
		ev := &interactions[idx]
		if ev.Timestamp.Before(since) || ev.Timestamp.After(now) {
			continue
		}

		label := ComputeLabel(ev.Type, ev.Value)
		key := interactionKey{userID: ev.UserID, recommendationID: ev.RecommendationID}

		agg, ok := aggregates[key]
		if !ok {
			agg = &labelAggregate{}
			aggregates[key] = agg
		}
		if label > agg.maxLabel || agg.count == 0 {
			agg.maxLabel = label
		}
		agg.sumLabel += label
		agg.count++
		if agg.assessmentID == "" {
			agg.assessmentID = ev.AssessmentID()
		}
	}

	return aggregates
}

// assembleGroups joins aggregates against their documents and buckets
// them into per-assessment query groups.
func assembleGroups(ctx context.Context, provider DataProvider, aggregates map[interactionKey]*labelAggregate) ([]QueryGroup, error) {
	byAssessment := make(map[string][]TrainingExample)

	// Deterministic iteration over the aggregate map.
	keys := make([]interactionKey, 0, len(aggregates))
	for key := range aggregates {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].userID != keys[j].userID {
			return keys[i].userID < keys[j].userID
		}
		return keys[i].recommendationID < keys[j].recommendationID
	})

	for _, key := range keys {
		agg := aggregates[key]

		rec, err := provider.Recommendation(ctx, key.recommendationID)
		if err != nil || rec == nil {
			continue
		}

		assessmentID := agg.assessmentID
		if assessmentID == "" {
			assessmentID = rec.AssessmentID
		}
		if assessmentID == "" {
			continue
		}

		assessment, err := provider.Assessment(ctx, assessmentID)
		if err != nil || assessment == nil {
			continue
		}

		profile, _ := provider.Profile(ctx, key.userID)
		history, _ := provider.History(ctx, key.userID, rec.Category)

		byAssessment[assessmentID] = append(byAssessment[assessmentID], TrainingExample{
			UserID:           key.userID,
			RecommendationID: key.recommendationID,
			Recommendation:   *rec,
			Assessment:       *assessment,
			Profile:          profile,
			History:          history,
			Label:            agg.maxLabel,
			MeanLabel:        agg.sumLabel / float64(agg.count),
			Count:            agg.count,
		})
	}

	assessmentIDs := make([]string, 0, len(byAssessment))
	for id := range byAssessment {
		assessmentIDs = append(assessmentIDs, id)
	}
	sort.Strings(assessmentIDs)

	groups := make([]QueryGroup, 0, len(assessmentIDs))
	for _, id := range assessmentIDs {
		examples := byAssessment[id]
		sort.Slice(examples, func(i, j int) bool {
			if examples[i].RecommendationID != examples[j].RecommendationID {
				return examples[i].RecommendationID < examples[j].RecommendationID
			}
			return examples[i].UserID < examples[j].UserID
		})
		groups = append(groups, QueryGroup{AssessmentID: id, Examples: examples})
	}

	return groups, nil
}
