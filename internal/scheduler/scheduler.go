// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/models"
	"github.com/splitstat/splitstat/internal/report"
)

// AnalysisRunner runs one full analysis pass over the event store.
type AnalysisRunner interface {
	RunAnalysisPass(ctx context.Context) (map[string]*models.Decision, error)
}

// ReportGenerator produces a report of the given type from current decisions.
type ReportGenerator interface {
	Generate(reportType models.ReportType, src report.DecisionSource, now time.Time) *models.Report
}

// Config controls scheduler behavior.
type Config struct {
	// CheckInterval is how often due work is checked for. Minimum 1s.
	CheckInterval time.Duration

	// PassInterval is how often an analysis pass runs.
	PassInterval time.Duration

	// Cadences are the report schedules to honor.
	Cadences []*Cadence

	// Enabled controls whether the scheduler does any work.
	Enabled bool
}

// DefaultConfig returns scheduler defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval: time.Minute,
		PassInterval:  time.Hour,
		Enabled:       true,
	}
}

// Scheduler periodically runs analysis passes and generates reports
// when their cadence comes due.
type Scheduler struct {
	config    Config
	runner    AnalysisRunner
	generator ReportGenerator
	source    report.DecisionSource
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler. The runner and source are required; the
// generator may be nil to disable report generation.
func New(config Config, runner AnalysisRunner, generator ReportGenerator, source report.DecisionSource) *Scheduler {
	if config.CheckInterval < time.Second {
		config.CheckInterval = time.Second
	}
	if config.PassInterval <= 0 {
		config.PassInterval = time.Hour
	}
	return &Scheduler{
		config:    config,
		runner:    runner,
		generator: generator,
		source:    source,
		now:       time.Now,
	}
}

// Start begins the scheduling loop. It returns an error if the
// scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true

	if !s.config.Enabled {
		logging.Info().Msg("Scheduler disabled by configuration")
		go func() {
			defer close(s.doneCh)
			select {
			case <-ctx.Done():
			case <-s.stopCh:
			}
		}()
		return nil
	}

	logging.Info().
		Dur("check_interval", s.config.CheckInterval).
		Dur("pass_interval", s.config.PassInterval).
		Int("cadences", len(s.config.Cadences)).
		Msg("Scheduler started")

	go s.run(ctx)
	return nil
}

// Stop halts the scheduling loop and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	doneCh := s.doneCh
	s.running = false
	s.mu.Unlock()

	<-doneCh
	logging.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	now := s.now()
	nextPass := now.Add(s.config.PassInterval)
	nextReport := make(map[models.ReportType]time.Time, len(s.config.Cadences))
	for _, c := range s.config.Cadences {
		nextReport[c.Type] = c.NextRun(now)
	}

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			now = s.now()

			if !now.Before(nextPass) {
				s.runPass(ctx)
				nextPass = now.Add(s.config.PassInterval)
			}

			for _, c := range s.config.Cadences {
				if !now.Before(nextReport[c.Type]) {
					s.generateReport(ctx, c.Type, now)
					nextReport[c.Type] = c.NextRun(now)
				}
			}
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	if _, err := s.runner.RunAnalysisPass(ctx); err != nil {
		logging.Err(err).Msg("Scheduled analysis pass failed")
	}
}

func (s *Scheduler) generateReport(ctx context.Context, reportType models.ReportType, now time.Time) {
	if s.generator == nil {
		return
	}

	// Reports reflect fresh decisions, so run a pass first.
	if _, err := s.runner.RunAnalysisPass(ctx); err != nil {
		logging.Err(err).Str("type", string(reportType)).Msg("Pre-report analysis pass failed")
		return
	}

	rep := s.generator.Generate(reportType, s.source, now)
	logging.Info().
		Str("type", string(reportType)).
		Str("report_id", rep.ID).
		Int("winners", len(rep.Winners)).
		Msg("Scheduled report generated")
}
