// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

// Package main is the entry point for the SplitStat server application.
//
// SplitStat ingests raw user interaction events, reconstructs sessions,
// computes per-variant metrics for configured experiments, and runs
// two-proportion significance tests to recommend whether a variant
// should ship. Decisions and scheduled reports are exposed over a REST
// API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Event log: BadgerDB write-ahead persistence for recorded events (optional)
//  3. Analysis engine: Session reconstruction, metrics, and significance testing
//  4. Report pipeline: History ring buffers plus BadgerDB archive (optional)
//  5. NATS ingest (optional): JetStream event consumption, embedded server supported
//  6. Scheduler: Periodic analysis passes and cadence-driven report generation
//  7. HTTP server: REST API with Prometheus metrics at /metrics
//
// All long-running components are managed by a suture supervisor tree
// and restart independently on failure.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (SPLITSTAT_ prefix)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// Experiments are declared in the config file; see config.example.yaml.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Stops the scheduler and NATS consumer
//   - Closes the event log and report archive
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/splitstat/splitstat/internal/analysis"
	"github.com/splitstat/splitstat/internal/api"
	"github.com/splitstat/splitstat/internal/config"
	"github.com/splitstat/splitstat/internal/eventstore"
	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/metrics"
	"github.com/splitstat/splitstat/internal/report"
	"github.com/splitstat/splitstat/internal/scheduler"
	"github.com/splitstat/splitstat/internal/supervisor"
	"github.com/splitstat/splitstat/internal/supervisor/services"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Int("experiments", len(cfg.Experiments)).
		Bool("event_log", cfg.EventLog.Enabled).
		Bool("nats", cfg.NATS.Enabled).
		Msg("Starting SplitStat with supervisor tree")

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.AppUptime.Set(time.Since(startTime).Seconds())
		}
	}()

	// Open the durable event log, or run in memory-only mode
	var eventLog eventstore.Log = eventstore.NopLog{}
	if cfg.EventLog.Enabled {
		badgerLog, err := eventstore.OpenLog(cfg.EventLog.Path, cfg.EventLog.SyncWrites)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.EventLog.Path).Msg("Failed to open event log")
		}
		eventLog = badgerLog
		logging.Info().Str("path", cfg.EventLog.Path).Msg("Event log opened")
	} else {
		logging.Info().Msg("Event log disabled, events held in memory only")
	}
	defer func() {
		if err := eventLog.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event log")
		}
	}()

	store := eventstore.NewStore()
	recorder := eventstore.NewRecorder(store, eventLog)

	// Rebuild the in-memory store from the event log on startup
	if cfg.EventLog.Enabled && cfg.EventLog.Replay {
		replayed, err := recorder.Replay(context.Background())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to replay event log")
		}
		logging.Info().Int("events", replayed).Msg("Event log replayed")
	}

	experiments := cfg.ExperimentModels(time.Now())
	registry := analysis.NewRegistry()
	engine := analysis.NewEngine(store, registry, experiments, cfg.Analysis.SessionTimeout)
	for _, exp := range experiments {
		logging.Info().
			Str("experiment_id", exp.ID).
			Str("primary_metric", exp.PrimaryMetric).
			Int("variants", len(exp.Variants)).
			Msg("Experiment registered")
	}

	// Report pipeline: in-memory history with optional durable archive
	history := report.NewHistory(cfg.Reports.RetainDaily, cfg.Reports.RetainWeekly, cfg.Reports.RetainMonthly)
	var archive *report.Archive
	if cfg.Reports.ArchivePath != "" {
		archive, err = report.OpenArchive(cfg.Reports.ArchivePath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Reports.ArchivePath).Msg("Failed to open report archive")
		}
		defer func() {
			if err := archive.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing report archive")
			}
		}()
		logging.Info().Str("path", cfg.Reports.ArchivePath).Msg("Report archive opened")
	}
	generator := report.NewGenerator(history, archive)

	cadences, err := reportCadences(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid report cadence")
	}

	schedulerCfg := scheduler.DefaultConfig()
	schedulerCfg.PassInterval = cfg.Analysis.PassInterval
	schedulerCfg.Cadences = cadences
	sched := scheduler.New(schedulerCfg, engine, generator, engine)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())

	// Initialize NATS event ingestion (optional, runtime-gated)
	ingestComponents, err := initIngest(cfg, recorder)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS ingest")
	}
	addIngestToSupervisor(tree, ingestComponents)
	defer closeIngest(ingestComponents)

	handler := api.NewHandler(recorder, engine, generator, history)
	if ingestComponents != nil {
		handler.SetEventPublisher(ingestComponents.publisher, cfg.NATS.Topic)
		logging.Info().Str("topic", cfg.NATS.Topic).Msg("HTTP ingest publishing to NATS")
	}

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	if cfg.Server.RateLimitReqs > 0 {
		mwCfg.RateLimitRequests = cfg.Server.RateLimitReqs
	}
	if cfg.Server.RateLimitWindow > 0 {
		mwCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(mwCfg))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddAnalysisService(services.NewSchedulerService(sched))
	logging.Info().
		Dur("pass_interval", schedulerCfg.PassInterval).
		Int("cadences", len(cadences)).
		Msg("Analysis scheduler added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// reportCadences parses the configured report schedules. Empty cadence
// strings disable that report type.
func reportCadences(cfg *config.Config) ([]*scheduler.Cadence, error) {
	var cadences []*scheduler.Cadence
	for _, expr := range []string{cfg.Reports.Daily, cfg.Reports.Weekly, cfg.Reports.Monthly} {
		if expr == "" {
			continue
		}
		c, err := scheduler.ParseCadence(expr)
		if err != nil {
			return nil, fmt.Errorf("parse cadence %q: %w", expr, err)
		}
		cadences = append(cadences, c)
	}
	return cadences, nil
}
