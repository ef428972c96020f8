// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Analysis.SessionTimeout != 30*time.Minute {
		t.Errorf("expected default session timeout 30m, got %v", cfg.Analysis.SessionTimeout)
	}
	if cfg.Analysis.MinimumSampleSize != 100 {
		t.Errorf("expected default minimum sample 100, got %d", cfg.Analysis.MinimumSampleSize)
	}
	if cfg.Analysis.MinimumDuration != 7*24*time.Hour {
		t.Errorf("expected default minimum duration 7 days, got %v", cfg.Analysis.MinimumDuration)
	}
	if cfg.Analysis.ConfidenceLevel != 0.95 {
		t.Errorf("expected default confidence 0.95, got %v", cfg.Analysis.ConfidenceLevel)
	}
	if cfg.Reports.RetainDaily != 30 || cfg.Reports.RetainWeekly != 10 || cfg.Reports.RetainMonthly != 10 {
		t.Errorf("unexpected default retention: %+v", cfg.Reports)
	}
	if cfg.NATS.Enabled {
		t.Error("expected NATS disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
analysis:
  session_timeout: 15m
experiments:
  - id: thumbnail
    name: Thumbnail Test
    primary_metric: completion_rate
    secondary_metrics:
      - engagement_rate
    variants:
      - id: A
        name: Current
      - id: B
        name: New
    minimum_sample_size: 200
    confidence_level: 0.99
    recommendation:
      action: Roll out variant B
      impact: Higher completion
      implementation: Swap the default thumbnail
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090 from file, got %d", cfg.Server.Port)
	}
	if cfg.Analysis.SessionTimeout != 15*time.Minute {
		t.Errorf("expected session timeout 15m, got %v", cfg.Analysis.SessionTimeout)
	}
	if len(cfg.Experiments) != 1 {
		t.Fatalf("expected 1 experiment, got %d", len(cfg.Experiments))
	}

	exp := cfg.Experiments[0]
	if exp.ID != "thumbnail" {
		t.Errorf("expected experiment id thumbnail, got %s", exp.ID)
	}
	if len(exp.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(exp.Variants))
	}
	if exp.MinimumSampleSize != 200 {
		t.Errorf("expected minimum sample 200, got %d", exp.MinimumSampleSize)
	}
	if exp.Recommendation == nil || exp.Recommendation.Action != "Roll out variant B" {
		t.Errorf("expected recommendation, got %+v", exp.Recommendation)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "3000")
	t.Setenv("MINIMUM_SAMPLE_SIZE", "50")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000 from env, got %d", cfg.Server.Port)
	}
	if cfg.Analysis.MinimumSampleSize != 50 {
		t.Errorf("expected minimum sample 50 from env, got %d", cfg.Analysis.MinimumSampleSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug from env, got %s", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "duplicate experiment ids",
			yaml: `
experiments:
  - id: exp1
    primary_metric: completion_rate
    variants: [{id: A}, {id: B}]
  - id: exp1
    primary_metric: completion_rate
    variants: [{id: A}, {id: B}]
`,
		},
		{
			name: "single variant",
			yaml: `
experiments:
  - id: exp1
    primary_metric: completion_rate
    variants: [{id: A}]
`,
		},
		{
			name: "duplicate variant ids",
			yaml: `
experiments:
  - id: exp1
    primary_metric: completion_rate
    variants: [{id: A}, {id: A}]
`,
		},
		{
			name: "confidence out of range",
			yaml: `
experiments:
  - id: exp1
    primary_metric: completion_rate
    variants: [{id: A}, {id: B}]
    confidence_level: 1.5
`,
		},
		{
			name: "bad start date",
			yaml: `
experiments:
  - id: exp1
    primary_metric: completion_rate
    variants: [{id: A}, {id: B}]
    start_date: someday
`,
		},
		{
			name: "missing primary metric",
			yaml: `
experiments:
  - id: exp1
    variants: [{id: A}, {id: B}]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml)
			if _, err := LoadFile(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestExperimentModels(t *testing.T) {
	path := writeConfigFile(t, `
experiments:
  - id: thumbnail
    primary_metric: completion_rate
    variants: [{id: A}, {id: B}]
    start_date: "2026-01-15"
  - id: autoplay
    primary_metric: engagement_rate
    variants: [{id: off}, {id: on}]
    minimum_sample_size: 500
    confidence_level: 0.99
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	exps := cfg.ExperimentModels(now)
	if len(exps) != 2 {
		t.Fatalf("expected 2 experiments, got %d", len(exps))
	}

	thumb := exps[0]
	if thumb.StartDate != time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC) {
		t.Errorf("expected parsed start date, got %v", thumb.StartDate)
	}
	if thumb.MinimumSample != 100 {
		t.Errorf("expected inherited minimum sample 100, got %d", thumb.MinimumSample)
	}
	if thumb.ConfidenceLevel != 0.95 {
		t.Errorf("expected inherited confidence 0.95, got %v", thumb.ConfidenceLevel)
	}
	if thumb.Name != "thumbnail" {
		t.Errorf("expected name to default to id, got %s", thumb.Name)
	}

	auto := exps[1]
	if auto.MinimumSample != 500 {
		t.Errorf("expected minimum sample 500, got %d", auto.MinimumSample)
	}
	if auto.ConfidenceLevel != 0.99 {
		t.Errorf("expected confidence 0.99, got %v", auto.ConfidenceLevel)
	}
	if !auto.StartDate.Equal(now) {
		t.Errorf("expected start date defaulted to now, got %v", auto.StartDate)
	}
}
