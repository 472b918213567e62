// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8470 {
		t.Errorf("server.port = %d, want 8470", cfg.Server.Port)
	}
	if cfg.Ranking.BoostRounds != 100 {
		t.Errorf("ranking.boost_rounds = %d, want 100", cfg.Ranking.BoostRounds)
	}
	if cfg.Ranking.DiversityLambda != 0.7 {
		t.Errorf("ranking.diversity_lambda = %v, want 0.7", cfg.Ranking.DiversityLambda)
	}
	if cfg.Ranking.Lookback != 90*24*time.Hour {
		t.Errorf("ranking.lookback = %v, want 2160h", cfg.Ranking.Lookback)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("RANKING_BOOST_ROUNDS", "50")
	t.Setenv("RANKING_DIVERSITY_LAMBDA", "0.5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server.port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Ranking.BoostRounds != 50 {
		t.Errorf("ranking.boost_rounds = %d, want 50", cfg.Ranking.BoostRounds)
	}
	if cfg.Ranking.DiversityLambda != 0.5 {
		t.Errorf("ranking.diversity_lambda = %v, want 0.5", cfg.Ranking.DiversityLambda)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors_origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 7700
ranking:
  min_groups: 25
  learning_rate: 0.05
store:
  data_dir: /tmp/rankmill-test
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7700 {
		t.Errorf("server.port = %d, want 7700", cfg.Server.Port)
	}
	if cfg.Ranking.MinGroups != 25 {
		t.Errorf("ranking.min_groups = %d, want 25", cfg.Ranking.MinGroups)
	}
	if cfg.Ranking.LearningRate != 0.05 {
		t.Errorf("ranking.learning_rate = %v, want 0.05", cfg.Ranking.LearningRate)
	}
	if cfg.Store.DataDir != "/tmp/rankmill-test" {
		t.Errorf("store.data_dir = %q", cfg.Store.DataDir)
	}
	// Untouched sections keep their defaults.
	if cfg.Ranking.BoostRounds != 100 {
		t.Errorf("ranking.boost_rounds = %d, want default 100", cfg.Ranking.BoostRounds)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7700\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7800")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7800 {
		t.Errorf("server.port = %d, want env override 7800", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "read_timeout"},
		{"empty data dir", func(c *Config) { c.Store.DataDir = "" }, "data_dir"},
		{"bad lambda", func(c *Config) { c.Ranking.DiversityLambda = 1.5 }, "ranking"},
		{"bad train interval", func(c *Config) { c.Ranking.TrainInterval = 0 }, "train_interval"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformIgnoresUnknown(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("PATH mapped to %q, want dropped", got)
	}
	if got := envTransformFunc("HTTP_PORT"); got != "server.port" {
		t.Errorf("HTTP_PORT mapped to %q", got)
	}
	if got := envTransformFunc("RANKING_TRAIN_TIMEOUT"); got != "ranking.train_timeout" {
		t.Errorf("RANKING_TRAIN_TIMEOUT mapped to %q", got)
	}
}

func TestRankingConfigConversion(t *testing.T) {
	cfg := defaultConfig()
	rc := cfg.RankingConfig()
	if rc.Training.MinGroups != cfg.Ranking.MinGroups {
		t.Errorf("min groups = %d", rc.Training.MinGroups)
	}
	if rc.Diversity.Lambda != cfg.Ranking.DiversityLambda {
		t.Errorf("lambda = %v", rc.Diversity.Lambda)
	}
	if rc.Limits.TrainTimeout != cfg.Ranking.TrainTimeout {
		t.Errorf("train timeout = %v", rc.Limits.TrainTimeout)
	}
	if err := rc.Validate(); err != nil {
		t.Errorf("converted config invalid: %v", err)
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8470}
	if got := s.Addr(); got != "127.0.0.1:8470" {
		t.Errorf("Addr() = %q", got)
	}
}
