// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

// Package main is the entry point for the Rankmill server.
//
// Rankmill ranks and diversifies advisory recommendations. It learns a
// LambdaMART ranking model from implicit user feedback (views, clicks,
// implementations, ratings) and serves relevance-ordered, MMR
// diversified candidate lists over a REST API.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 loading (defaults, YAML, env)
//  2. Logging: zerolog, structured JSON by default
//  3. Intake store: BadgerDB event log and document snapshots
//  4. Ranking engine: feature extractor, LambdaMART trainer, MMR
//     diversifier, model artifact store
//  5. Supervision: suture tree running the training scheduler, store
//     GC, and the HTTP server
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests, and closes the
// store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rankmill/rankmill/internal/api"
	"github.com/rankmill/rankmill/internal/config"
	"github.com/rankmill/rankmill/internal/logging"
	"github.com/rankmill/rankmill/internal/ranking"
	"github.com/rankmill/rankmill/internal/ranking/diversify"
	"github.com/rankmill/rankmill/internal/ranking/features"
	"github.com/rankmill/rankmill/internal/ranking/model"
	"github.com/rankmill/rankmill/internal/ranking/storage"
	"github.com/rankmill/rankmill/internal/store"
	"github.com/rankmill/rankmill/internal/supervisor"
	"github.com/rankmill/rankmill/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("data_dir", cfg.Store.DataDir).
		Str("artifact_dir", cfg.Store.ArtifactDir).
		Msg("Starting Rankmill")

	// Intake store
	st, err := store.Open(cfg.Store.DataDir, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open intake store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing intake store")
		}
	}()

	// Model artifact store
	modelStore, err := storage.NewRankerStore(cfg.Store.ArtifactDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open artifact store")
	}

	// Ranking engine
	rankingCfg := cfg.RankingConfig()
	ranker, err := ranking.NewRanker(&rankingCfg, logging.Logger(), ranking.RankerDeps{
		Provider:    st,
		Extractor:   features.NewExtractor(),
		Trainer:     model.NewLambdaMART(),
		Store:       modelStore,
		Diversifier: diversify.NewMMR(),
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create ranking engine")
	}
	ranker.LoadArtifact()

	// HTTP surface
	router := api.NewRouter(api.NewHandler(ranker, st), &api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The supervisor logs through slog; bridge it to zerolog.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewTrainingService(ranker, services.TrainingServiceConfig{
		TrainOnStartup: cfg.Ranking.TrainOnStartup,
		TrainInterval:  cfg.Ranking.TrainInterval,
	}, logging.Logger()))
	tree.AddDataService(services.NewStoreGCService(st, cfg.Store.GCInterval, logging.Logger()))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
