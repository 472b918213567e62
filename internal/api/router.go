// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP routing tree.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router from a handler and middleware config.
func NewRouter(handler *Handler, mwConfig *MiddlewareConfig) *Router {
	return &Router{
		handler:    handler,
		middleware: NewMiddleware(mwConfig),
	}
}

// Setup builds the full routing tree with the middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	// Health endpoints skip rate limiting so monitors can poll freely.
	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics)

		r.Post("/rank", router.handler.Rank)
		r.Post("/explain", router.handler.Explain)
		r.Post("/interactions", router.handler.Interactions)
		r.Put("/recommendations", router.handler.PutRecommendation)
		r.Put("/assessments", router.handler.PutAssessment)
		r.Put("/profiles", router.handler.PutProfile)
		r.Post("/train", router.handler.Train)
		r.Get("/status", router.handler.Status)
	})

	return r
}
