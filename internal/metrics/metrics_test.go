// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRank(t *testing.T) {
	before := testutil.ToFloat64(RankRequestsTotal.WithLabelValues("fallback"))
	RecordRank(true, 25, 0.6, 12*time.Millisecond)
	after := testutil.ToFloat64(RankRequestsTotal.WithLabelValues("fallback"))
	if after != before+1 {
		t.Errorf("fallback counter = %v, want %v", after, before+1)
	}

	before = testutil.ToFloat64(RankRequestsTotal.WithLabelValues("model"))
	RecordRank(false, 10, 0.8, 5*time.Millisecond)
	after = testutil.ToFloat64(RankRequestsTotal.WithLabelValues("model"))
	if after != before+1 {
		t.Errorf("model counter = %v, want %v", after, before+1)
	}
}

func TestRecordTraining(t *testing.T) {
	outcomes := []string{"success", "insufficient_data", "error", "busy"}
	for _, outcome := range outcomes {
		before := testutil.ToFloat64(TrainingRunsTotal.WithLabelValues(outcome))
		RecordTraining(outcome, time.Second)
		after := testutil.ToFloat64(TrainingRunsTotal.WithLabelValues(outcome))
		if after != before+1 {
			t.Errorf("outcome %q counter = %v, want %v", outcome, after, before+1)
		}
	}
}

func TestRecordInteraction(t *testing.T) {
	before := testutil.ToFloat64(InteractionsIngestedTotal.WithLabelValues("click"))
	RecordInteraction("click")
	after := testutil.ToFloat64(InteractionsIngestedTotal.WithLabelValues("click"))
	if after != before+1 {
		t.Errorf("click counter = %v, want %v", after, before+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/rank", "200"))
	RecordAPIRequest("POST", "/api/v1/rank", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/rank", "200"))
	if after != before+1 {
		t.Errorf("api counter = %v, want %v", after, before+1)
	}
}

func TestModelVersionGauge(t *testing.T) {
	ModelVersion.Set(7)
	if got := testutil.ToFloat64(ModelVersion); got != 7 {
		t.Errorf("model version gauge = %v, want 7", got)
	}
	ModelVersion.Set(0)
	if got := testutil.ToFloat64(ModelVersion); got != 0 {
		t.Errorf("model version gauge = %v, want 0", got)
	}
}
