// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rankmill/rankmill/internal/logging"
	"github.com/rankmill/rankmill/internal/metrics"
	"github.com/rankmill/rankmill/internal/ranking"
	"github.com/rankmill/rankmill/internal/store"
	"github.com/rankmill/rankmill/internal/validation"
)

// Handler serves the ranking API. It holds the engine and the intake
// store; both are required.
type Handler struct {
	ranker *ranking.Ranker
	store  *store.Store
}

// NewHandler creates the API handler.
func NewHandler(ranker *ranking.Ranker, st *store.Store) *Handler {
	return &Handler{ranker: ranker, store: st}
}

// decode reads and validates a JSON request body into v. It writes the
// error response itself and reports whether decoding succeeded.
func decode(rw *ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return false
	}
	return true
}

// RankRequestBody is the payload of POST /api/v1/rank.
type RankRequestBody struct {
	UserID       string                   `json:"user_id" validate:"required"`
	AssessmentID string                   `json:"assessment_id"`
	Assessment   *ranking.Assessment      `json:"assessment"`
	Candidates   []ranking.Recommendation `json:"candidates" validate:"required,min=1"`
	TopK         int                      `json:"top_k" validate:"gte=0,lte=500"`
	Lambda       *float64                 `json:"lambda" validate:"omitempty,gte=0,lte=1"`
}

// RankResponseBody is the payload returned by POST /api/v1/rank.
type RankResponseBody struct {
	Items          []ranking.ScoredRecommendation `json:"items"`
	DiversityScore float64                        `json:"diversity_score"`
	ModelVersion   int                            `json:"model_version"`
	Fallback       bool                           `json:"fallback"`
	DurationMs     int64                          `json:"duration_ms"`
}

// Rank handles POST /api/v1/rank: scores and orders the submitted
// candidates for the user. Ranking never fails; without a trained
// model the candidates come back ordered by agent confidence.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var body RankRequestBody
	if !decode(rw, r, &body) {
		return
	}

	assessment := body.Assessment
	if assessment == nil && body.AssessmentID != "" {
		a, err := h.store.Assessment(r.Context(), body.AssessmentID)
		if err != nil {
			rw.StoreError(err)
			return
		}
		assessment = a
	}

	profile, err := h.store.Profile(r.Context(), body.UserID)
	if err != nil {
		rw.StoreError(err)
		return
	}

	categories := make([]string, 0, len(body.Candidates))
	for i := range body.Candidates {
		categories = append(categories, body.Candidates[i].Category)
	}
	histories, err := h.store.Histories(r.Context(), body.UserID, categories)
	if err != nil {
		rw.StoreError(err)
		return
	}

	resp := h.ranker.Rank(ranking.RankRequest{
		Candidates: body.Candidates,
		Assessment: assessment,
		Profile:    profile,
		Histories:  histories,
		TopK:       body.TopK,
		Lambda:     body.Lambda,
	})

	metrics.RecordRank(resp.Fallback, len(body.Candidates), resp.DiversityScore, resp.Duration)

	rw.Success(RankResponseBody{
		Items:          resp.Items,
		DiversityScore: resp.DiversityScore,
		ModelVersion:   resp.ModelVersion,
		Fallback:       resp.Fallback,
		DurationMs:     resp.Duration.Milliseconds(),
	})
}

// ExplainRequestBody is the payload of POST /api/v1/explain.
type ExplainRequestBody struct {
	UserID           string                  `json:"user_id" validate:"required"`
	RecommendationID string                  `json:"recommendation_id"`
	Recommendation   *ranking.Recommendation `json:"recommendation"`
	AssessmentID     string                  `json:"assessment_id"`
	Assessment       *ranking.Assessment     `json:"assessment"`
}

// Explain handles POST /api/v1/explain: reports the score and the
// top feature contributions for one candidate.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var body ExplainRequestBody
	if !decode(rw, r, &body) {
		return
	}

	rec := body.Recommendation
	if rec == nil {
		if body.RecommendationID == "" {
			rw.BadRequest("recommendation or recommendation_id is required")
			return
		}
		stored, err := h.store.Recommendation(r.Context(), body.RecommendationID)
		if err != nil {
			rw.StoreError(err)
			return
		}
		if stored == nil {
			rw.NotFound("recommendation not found: " + body.RecommendationID)
			return
		}
		rec = stored
	}

	assessment := body.Assessment
	if assessment == nil {
		assessmentID := body.AssessmentID
		if assessmentID == "" {
			assessmentID = rec.AssessmentID
		}
		if assessmentID != "" {
			a, err := h.store.Assessment(r.Context(), assessmentID)
			if err != nil {
				rw.StoreError(err)
				return
			}
			assessment = a
		}
	}

	profile, err := h.store.Profile(r.Context(), body.UserID)
	if err != nil {
		rw.StoreError(err)
		return
	}
	history, err := h.store.History(r.Context(), body.UserID, rec.Category)
	if err != nil {
		rw.StoreError(err)
		return
	}

	rw.Success(h.ranker.Explain(rec, assessment, profile, history))
}

// Interactions handles POST /api/v1/interactions: appends one feedback
// event to the log. Unknown interaction types are accepted and later
// labeled with a neutral relevance.
func (h *Handler) Interactions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var ev ranking.Interaction
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}
	if ev.UserID == "" || ev.RecommendationID == "" {
		rw.BadRequest("user_id and recommendation_id are required")
		return
	}
	if ev.Type == ranking.InteractionRate && ev.Value != nil && (*ev.Value < 1 || *ev.Value > 5) {
		rw.BadRequest("rating value must be between 1 and 5")
		return
	}

	if err := h.store.AppendInteraction(r.Context(), &ev); err != nil {
		rw.StoreError(err)
		return
	}
	metrics.RecordInteraction(string(ev.Type))

	rw.Created(map[string]string{"id": ev.ID})
}

// PutRecommendation handles PUT /api/v1/recommendations: upserts a
// recommendation snapshot used to resolve training examples.
func (h *Handler) PutRecommendation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var rec ranking.Recommendation
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}
	if rec.ID == "" {
		rw.BadRequest("id is required")
		return
	}
	if err := h.store.PutRecommendation(r.Context(), &rec); err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(map[string]string{"id": rec.ID})
}

// PutAssessment handles PUT /api/v1/assessments.
func (h *Handler) PutAssessment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var a ranking.Assessment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}
	if a.ID == "" {
		rw.BadRequest("id is required")
		return
	}
	if err := h.store.PutAssessment(r.Context(), &a); err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(map[string]string{"id": a.ID})
}

// PutProfile handles PUT /api/v1/profiles.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var p ranking.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}
	if p.UserID == "" {
		rw.BadRequest("user_id is required")
		return
	}
	if err := h.store.PutProfile(r.Context(), &p); err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(map[string]string{"user_id": p.UserID})
}

// Train handles POST /api/v1/train: runs one synchronous training
// cycle. Only one run may be active at a time.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	start := time.Now()

	m, err := h.ranker.Train(r.Context())
	switch {
	case errors.Is(err, ranking.ErrTrainingInProgress):
		metrics.RecordTraining("busy", 0)
		rw.Conflict("a training run is already in progress")
		return
	case err != nil:
		metrics.RecordTraining("error", 0)
		logging.Error().Err(err).Msg("Training failed")
		rw.InternalError("training failed: " + err.Error())
		return
	case m == nil:
		metrics.RecordTraining("insufficient_data", 0)
		rw.Success(map[string]interface{}{
			"trained": false,
			"reason":  "insufficient training data",
		})
		return
	}

	metrics.RecordTraining("success", time.Since(start))
	metrics.TrainingValidationNDCG.Set(m.ValidationNDCG10)
	metrics.TrainingGroups.Set(float64(m.GroupCount))
	metrics.ModelVersion.Set(float64(h.ranker.ModelVersion()))

	rw.Success(map[string]interface{}{
		"trained": true,
		"metrics": m,
		"version": h.ranker.ModelVersion(),
	})
}

// StatusResponseBody is the payload of GET /api/v1/status.
type StatusResponseBody struct {
	ranking.TrainingStatus
	InteractionCount int `json:"interaction_count"`
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	count, err := h.store.InteractionCount(r.Context())
	if err != nil {
		rw.StoreError(err)
		return
	}

	rw.Success(StatusResponseBody{
		TrainingStatus:   h.ranker.Status(),
		InteractionCount: count,
	})
}

// HealthLive handles GET /healthz/live: process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// HealthReady handles GET /healthz/ready: the store must answer.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, err := h.store.InteractionCount(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "store not ready")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}
