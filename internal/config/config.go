// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

// Package config defines the service configuration and loads it with
// layered precedence: built-in defaults, then an optional YAML file,
// then environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rankmill/rankmill/internal/ranking"
)

// Config is the root configuration for the service.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Ranking RankingConfig `koanf:"ranking"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig controls the BadgerDB intake store and artifact storage.
type StoreConfig struct {
	DataDir     string        `koanf:"data_dir"`
	ArtifactDir string        `koanf:"artifact_dir"`
	GCInterval  time.Duration `koanf:"gc_interval"`
}

// RankingConfig controls training, diversification, and serving limits.
type RankingConfig struct {
	// Training schedule.
	TrainInterval  time.Duration `koanf:"train_interval"`
	TrainOnStartup bool          `koanf:"train_on_startup"`

	// Training engine.
	MinGroups       int           `koanf:"min_groups"`
	Lookback        time.Duration `koanf:"lookback"`
	BoostRounds     int           `koanf:"boost_rounds"`
	LearningRate    float64       `koanf:"learning_rate"`
	MaxDepth        int           `koanf:"max_depth"`
	ValidationRatio float64       `koanf:"validation_ratio"`
	EarlyStopRounds int           `koanf:"early_stop_rounds"`
	KeepArtifacts   int           `koanf:"keep_artifacts"`
	Seed            int64         `koanf:"seed"`

	// Diversification.
	DiversityLambda float64 `koanf:"diversity_lambda"`
	DefaultTopK     int     `koanf:"default_top_k"`

	// Serving limits.
	MaxCandidates int           `koanf:"max_candidates"`
	TrainTimeout  time.Duration `koanf:"train_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8470,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Store: StoreConfig{
			DataDir:     "/data/rankmill",
			ArtifactDir: "/data/rankmill/models",
			GCInterval:  10 * time.Minute,
		},
		Ranking: RankingConfig{
			TrainInterval:   24 * time.Hour,
			TrainOnStartup:  false,
			MinGroups:       10,
			Lookback:        90 * 24 * time.Hour,
			BoostRounds:     100,
			LearningRate:    0.1,
			MaxDepth:        4,
			ValidationRatio: 0.2,
			EarlyStopRounds: 10,
			KeepArtifacts:   3,
			Seed:            42,
			DiversityLambda: 0.7,
			DefaultTopK:     10,
			MaxCandidates:   500,
			TrainTimeout:    10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime. It collects the first error per section.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateRanking(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("server.rate_limit_reqs must be non-negative, got %d", c.Server.RateLimitReqs)
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir must not be empty")
	}
	if c.Store.ArtifactDir == "" {
		return fmt.Errorf("store.artifact_dir must not be empty")
	}
	return nil
}

func (c *Config) validateRanking() error {
	rc := c.RankingConfig()
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	if c.Ranking.TrainInterval <= 0 {
		return fmt.Errorf("ranking.train_interval must be positive, got %s", c.Ranking.TrainInterval)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace|debug|info|warn|error|fatal, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// RankingConfig converts the flat configuration into the engine's
// config type.
func (c *Config) RankingConfig() ranking.Config {
	return ranking.Config{
		Training: ranking.TrainingConfig{
			MinGroups:       c.Ranking.MinGroups,
			Lookback:        c.Ranking.Lookback,
			BoostRounds:     c.Ranking.BoostRounds,
			LearningRate:    c.Ranking.LearningRate,
			MaxDepth:        c.Ranking.MaxDepth,
			ValidationRatio: c.Ranking.ValidationRatio,
			EarlyStopRounds: c.Ranking.EarlyStopRounds,
			KeepArtifacts:   c.Ranking.KeepArtifacts,
		},
		Diversity: ranking.DiversityConfig{
			Lambda: c.Ranking.DiversityLambda,
			TopK:   c.Ranking.DefaultTopK,
		},
		Limits: ranking.LimitsConfig{
			MaxCandidates: c.Ranking.MaxCandidates,
			TrainTimeout:  c.Ranking.TrainTimeout,
		},
		Seed: c.Ranking.Seed,
	}
}
