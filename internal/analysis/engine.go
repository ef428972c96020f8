// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/splitstat/splitstat/internal/eventstore"
	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/metrics"
	"github.com/splitstat/splitstat/internal/models"
)

// Engine runs analysis passes. A pass is a synchronous recomputation over
// a snapshot of the full event set: partition events per experiment and
// variant, reconstruct sessions, compute metrics, test the best
// challenger against the control, and apply the decision gates.
type Engine struct {
	store          *eventstore.Store
	registry       *Registry
	experiments    []*models.Experiment
	sessionTimeout time.Duration

	mu        sync.RWMutex
	decisions map[string]*models.Decision
	lastPass  time.Time
}

// NewEngine creates an Engine over the given store and experiment set.
func NewEngine(store *eventstore.Store, registry *Registry, experiments []*models.Experiment, sessionTimeout time.Duration) *Engine {
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}
	return &Engine{
		store:          store,
		registry:       registry,
		experiments:    experiments,
		sessionTimeout: sessionTimeout,
		decisions:      make(map[string]*models.Decision),
	}
}

// Experiments returns the configured experiment set.
func (e *Engine) Experiments() []*models.Experiment {
	return e.experiments
}

// Experiment returns one experiment by id.
func (e *Engine) Experiment(id string) (*models.Experiment, bool) {
	for _, exp := range e.experiments {
		if exp.ID == id {
			return exp, true
		}
	}
	return nil, false
}

// Decisions returns the decisions produced by the most recent pass,
// keyed by experiment id.
func (e *Engine) Decisions() map[string]*models.Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*models.Decision, len(e.decisions))
	for k, v := range e.decisions {
		out[k] = v
	}
	return out
}

// Decision returns the latest decision for one experiment.
func (e *Engine) Decision(experimentID string) (*models.Decision, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.decisions[experimentID]
	return d, ok
}

// TotalUsers returns the distinct-user count across all variants of the
// configured experiments. Users whose events carry no experiment binding
// are stored but not analyzed, so they do not count here.
func (e *Engine) TotalUsers() int {
	users := make(map[string]struct{})
	for _, event := range e.store.Snapshot() {
		for _, exp := range e.experiments {
			if exp.HasVariant(event.VariantFor(exp.ID)) {
				users[event.UserID] = struct{}{}
				break
			}
		}
	}
	return len(users)
}

// RunAnalysisPass recomputes every experiment's decision from the current
// event snapshot. The context gates only the outer loop; the per-
// experiment computation is pure and fast.
func (e *Engine) RunAnalysisPass(ctx context.Context) (map[string]*models.Decision, error) {
	start := time.Now()
	snapshot := e.store.Snapshot()

	decisions := make(map[string]*models.Decision, len(e.experiments))
	totalSessions := 0
	for _, exp := range e.experiments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, sessions := e.analyzeExperiment(exp, snapshot, start)
		decisions[exp.ID] = d
		totalSessions += sessions
		metrics.RecordDecision(exp.ID, string(d.State))
	}

	e.mu.Lock()
	e.decisions = decisions
	e.lastPass = start
	e.mu.Unlock()

	metrics.RecordAnalysisPass(time.Since(start), totalSessions)
	logging.Info().
		Int("experiments", len(e.experiments)).
		Int("events", len(snapshot)).
		Int("sessions", totalSessions).
		Dur("took", time.Since(start)).
		Msg("Analysis pass complete")

	return decisions, nil
}

// analyzeExperiment computes one experiment's decision from the snapshot.
// Returns the decision and the number of sessions reconstructed.
func (e *Engine) analyzeExperiment(exp *models.Experiment, snapshot []models.Event, now time.Time) (*models.Decision, int) {
	byVariant := partitionByVariant(exp, snapshot)

	sessionCount := 0
	variantMetrics := make([]models.VariantMetrics, 0, len(exp.Variants))
	metricsByID := make(map[string]models.VariantMetrics, len(exp.Variants))
	for _, v := range exp.Variants {
		events := byVariant[v.ID]
		sessions := ReconstructAll(events, e.sessionTimeout)
		sessionCount += len(sessions)

		vm := e.registry.VariantMetrics(v.ID, events, sessions, exp.PrimaryMetric, exp.SecondaryMetrics)
		variantMetrics = append(variantMetrics, vm)
		metricsByID[v.ID] = vm
	}

	control := metricsByID[exp.Control().ID]

	// Only the best challenger is tested against control; multiple
	// comparison correction is out of scope.
	var result *models.SignificanceResult
	if best, ok := bestChallenger(exp, metricsByID); ok {
		result = TestSignificance(control, best, exp.MinimumSample, exp.ConfidenceLevel)
	}

	return Decide(exp, variantMetrics, result, now), sessionCount
}

// partitionByVariant buckets events by this experiment's variant binding.
// Events without a binding, or bound to an unknown variant, are ignored.
func partitionByVariant(exp *models.Experiment, events []models.Event) map[string][]models.Event {
	out := make(map[string][]models.Event, len(exp.Variants))
	for _, e := range events {
		variantID := e.VariantFor(exp.ID)
		if variantID == "" || !exp.HasVariant(variantID) {
			continue
		}
		out[variantID] = append(out[variantID], e)
	}
	return out
}

// bestChallenger picks the non-control variant with the strictly highest
// primary metric. Ties keep the earlier configured variant.
func bestChallenger(exp *models.Experiment, metricsByID map[string]models.VariantMetrics) (models.VariantMetrics, bool) {
	challengers := exp.Challengers()
	if len(challengers) == 0 {
		return models.VariantMetrics{}, false
	}

	best := metricsByID[challengers[0].ID]
	for _, v := range challengers[1:] {
		if vm := metricsByID[v.ID]; vm.PrimaryMetricValue > best.PrimaryMetricValue {
			best = vm
		}
	}
	return best, true
}
