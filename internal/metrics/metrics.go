// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

// Package metrics provides Prometheus instrumentation for ranking,
// training, and ingest, exported on the /metrics endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ranking metrics
	RankRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_requests_total",
			Help: "Total number of rank requests served",
		},
		[]string{"mode"}, // "model" or "fallback"
	)

	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rank_duration_seconds",
			Help:    "Latency of rank requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RankCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rank_candidates",
			Help:    "Candidate list sizes per rank request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	RankDiversityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rank_diversity_score",
			Help:    "Simpson diversity of returned result sets",
			Buckets: []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0},
		},
	)

	// Training metrics
	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of training runs by outcome",
		},
		[]string{"outcome"}, // "success", "insufficient_data", "error", "busy"
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Wall clock duration of training runs in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 600, 1800},
		},
	)

	TrainingValidationNDCG = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_validation_ndcg_at_10",
			Help: "Validation NDCG@10 of the most recent successful training run",
		},
	)

	TrainingGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_query_groups",
			Help: "Query group count of the most recent training set",
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Version number of the currently serving model, 0 when serving fallback",
		},
	)

	// Ingest metrics
	InteractionsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_ingested_total",
			Help: "Total number of interaction events accepted",
		},
		[]string{"type"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRank records one served rank request.
func RecordRank(fallback bool, candidates int, diversity float64, duration time.Duration) {
	mode := "model"
	if fallback {
		mode = "fallback"
	}
	RankRequestsTotal.WithLabelValues(mode).Inc()
	RankDuration.Observe(duration.Seconds())
	RankCandidates.Observe(float64(candidates))
	RankDiversityScore.Observe(diversity)
}

// RecordTraining records one completed training run.
func RecordTraining(outcome string, duration time.Duration) {
	TrainingRunsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		TrainingDuration.Observe(duration.Seconds())
	}
}

// RecordInteraction records one accepted interaction event.
func RecordInteraction(interactionType string) {
	InteractionsIngestedTotal.WithLabelValues(interactionType).Inc()
}

// RecordAPIRequest records one handled HTTP request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
