// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

// Package config loads and validates SplitStat configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an
// optional YAML file, then environment variables. Environment variables
// take the highest precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/models"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig       `koanf:"server"`
	Logging     LoggingConfig      `koanf:"logging"`
	EventLog    EventLogConfig     `koanf:"event_log"`
	NATS        NATSConfig         `koanf:"nats"`
	Analysis    AnalysisConfig     `koanf:"analysis"`
	Reports     ReportsConfig      `koanf:"reports"`
	Experiments []ExperimentConfig `koanf:"experiments"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// EventLogConfig holds the durable event log (Badger) settings.
type EventLogConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`

	// SyncWrites fsyncs every append. Slower but events survive a crash.
	SyncWrites bool `koanf:"sync_writes"`

	// Replay loads persisted events into the in-memory store on startup.
	Replay bool `koanf:"replay"`
}

// NATSConfig holds the event ingestion pipeline settings.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	Topic          string `koanf:"topic"`
	DurableName    string `koanf:"durable_name"`
	QueueGroup     string `koanf:"queue_group"`
	Subscribers    int    `koanf:"subscribers" validate:"min=1"`
}

// AnalysisConfig holds analysis pass settings and per-experiment defaults.
type AnalysisConfig struct {
	// SessionTimeout is the inactivity gap that splits a user's events
	// into separate sessions.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// PassInterval is how often the scheduler runs a full analysis pass.
	PassInterval time.Duration `koanf:"pass_interval"`

	// Defaults applied to experiments that do not set their own values.
	MinimumSampleSize int           `koanf:"minimum_sample_size" validate:"min=1"`
	MinimumDuration   time.Duration `koanf:"minimum_duration"`
	ConfidenceLevel   float64       `koanf:"confidence_level" validate:"gt=0,lt=1"`
}

// ReportsConfig holds report generation and retention settings.
type ReportsConfig struct {
	// Cadence expressions, e.g. "daily@09:00", "weekly@Mon-09:00",
	// "monthly@1st-09:00". Empty disables that report type.
	Daily   string `koanf:"daily"`
	Weekly  string `koanf:"weekly"`
	Monthly string `koanf:"monthly"`

	// Retention caps per report type. The oldest report is evicted when
	// a cap is exceeded.
	RetainDaily   int `koanf:"retain_daily" validate:"min=1"`
	RetainWeekly  int `koanf:"retain_weekly" validate:"min=1"`
	RetainMonthly int `koanf:"retain_monthly" validate:"min=1"`

	// ArchivePath persists generated reports to disk when non-empty.
	ArchivePath string `koanf:"archive_path"`
}

// VariantConfig is one experiment arm.
type VariantConfig struct {
	ID   string `koanf:"id" validate:"required"`
	Name string `koanf:"name"`
}

// RecommendationConfig is a static recommendation attached to an
// experiment, emitted in reports when the experiment declares a winner.
type RecommendationConfig struct {
	Action         string `koanf:"action" validate:"required"`
	Impact         string `koanf:"impact"`
	Implementation string `koanf:"implementation"`
}

// ExperimentConfig is one A/B test definition. The first variant is the
// control.
type ExperimentConfig struct {
	ID               string          `koanf:"id" validate:"required"`
	Name             string          `koanf:"name"`
	Variants         []VariantConfig `koanf:"variants" validate:"min=2,dive"`
	PrimaryMetric    string          `koanf:"primary_metric" validate:"required"`
	SecondaryMetrics []string        `koanf:"secondary_metrics"`

	// StartDate is RFC 3339 or "2006-01-02". Defaults to process start.
	StartDate string `koanf:"start_date"`

	// Zero means inherit the analysis defaults.
	MinimumSampleSize int           `koanf:"minimum_sample_size" validate:"min=0"`
	MinimumDuration   time.Duration `koanf:"minimum_duration"`
	ConfidenceLevel   float64       `koanf:"confidence_level"`

	Recommendation *RecommendationConfig `koanf:"recommendation"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		EventLog: EventLogConfig{
			Enabled:    true,
			Path:       "/data/splitstat/events",
			SyncWrites: false,
			Replay:     true,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/splitstat/nats",
			Topic:          "splitstat.events",
			DurableName:    "event-recorder",
			QueueGroup:     "recorders",
			Subscribers:    4,
		},
		Analysis: AnalysisConfig{
			SessionTimeout:    30 * time.Minute,
			PassInterval:      1 * time.Hour,
			MinimumSampleSize: 100,
			MinimumDuration:   7 * 24 * time.Hour,
			ConfidenceLevel:   0.95,
		},
		Reports: ReportsConfig{
			Daily:         "daily@09:00",
			Weekly:        "weekly@Mon-09:00",
			Monthly:       "monthly@1st-09:00",
			RetainDaily:   30,
			RetainWeekly:  10,
			RetainMonthly: 10,
			ArchivePath:   "",
		},
	}
}

// validate is the shared validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for errors. Unknown metric names are
// permitted (custom metrics may be registered at wiring time) but logged.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]bool, len(c.Experiments))
	for i := range c.Experiments {
		exp := &c.Experiments[i]
		if seen[exp.ID] {
			return fmt.Errorf("duplicate experiment id %q", exp.ID)
		}
		seen[exp.ID] = true

		variantIDs := make(map[string]bool, len(exp.Variants))
		for _, v := range exp.Variants {
			if variantIDs[v.ID] {
				return fmt.Errorf("experiment %q: duplicate variant id %q", exp.ID, v.ID)
			}
			variantIDs[v.ID] = true
		}

		if exp.ConfidenceLevel != 0 && (exp.ConfidenceLevel <= 0 || exp.ConfidenceLevel >= 1) {
			return fmt.Errorf("experiment %q: confidence level must be in (0, 1)", exp.ID)
		}
		if exp.StartDate != "" {
			if _, err := parseStartDate(exp.StartDate); err != nil {
				return fmt.Errorf("experiment %q: %w", exp.ID, err)
			}
		}

		if !models.IsKnownMetric(exp.PrimaryMetric) {
			logging.Warn().
				Str("experiment", exp.ID).
				Str("metric", exp.PrimaryMetric).
				Msg("Primary metric is not built in; a custom metric must be registered")
		}
		for _, m := range exp.SecondaryMetrics {
			if !models.IsKnownMetric(m) {
				logging.Warn().
					Str("experiment", exp.ID).
					Str("metric", m).
					Msg("Secondary metric is not built in; a custom metric must be registered")
			}
		}
	}

	return nil
}

// parseStartDate accepts RFC 3339 or a bare date.
func parseStartDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q (want RFC 3339 or YYYY-MM-DD)", s)
	}
	return t, nil
}

// Experiments converts the configured experiment definitions into domain
// models, filling in analysis defaults where a definition left a value unset.
func (c *Config) ExperimentModels(now time.Time) []*models.Experiment {
	out := make([]*models.Experiment, 0, len(c.Experiments))
	for i := range c.Experiments {
		ec := &c.Experiments[i]

		variants := make([]models.Variant, len(ec.Variants))
		for j, v := range ec.Variants {
			name := v.Name
			if name == "" {
				name = v.ID
			}
			variants[j] = models.Variant{ID: v.ID, Name: name}
		}

		name := ec.Name
		if name == "" {
			name = ec.ID
		}

		start := now
		if ec.StartDate != "" {
			// Validated in Validate.
			start, _ = parseStartDate(ec.StartDate)
		}

		minSample := ec.MinimumSampleSize
		if minSample == 0 {
			minSample = c.Analysis.MinimumSampleSize
		}
		minDuration := ec.MinimumDuration
		if minDuration == 0 {
			minDuration = c.Analysis.MinimumDuration
		}
		confidence := ec.ConfidenceLevel
		if confidence == 0 {
			confidence = c.Analysis.ConfidenceLevel
		}

		exp := &models.Experiment{
			ID:               ec.ID,
			Name:             name,
			Variants:         variants,
			PrimaryMetric:    ec.PrimaryMetric,
			SecondaryMetrics: ec.SecondaryMetrics,
			StartDate:        start,
			MinimumSample:    minSample,
			MinimumDuration:  minDuration,
			ConfidenceLevel:  confidence,
		}
		if ec.Recommendation != nil {
			exp.Recommendation = &models.Recommendation{
				ExperimentID:   ec.ID,
				Action:         ec.Recommendation.Action,
				Impact:         ec.Recommendation.Impact,
				Implementation: ec.Recommendation.Implementation,
			}
		}
		out = append(out, exp)
	}
	return out
}
