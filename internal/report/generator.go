// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

// Package report turns analysis decisions into report snapshots, keeps a
// bounded per-type history, and optionally archives reports to disk.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/splitstat/splitstat/internal/metrics"
	"github.com/splitstat/splitstat/internal/models"
)

// Generator assembles Report snapshots from the latest analysis pass.
type Generator struct {
	history *History
	archive *Archive
}

// NewGenerator creates a Generator writing into the given history.
// archive may be nil when report persistence is disabled.
func NewGenerator(history *History, archive *Archive) *Generator {
	return &Generator{history: history, archive: archive}
}

// DecisionSource provides the inputs a report is built from. The analysis
// engine satisfies this.
type DecisionSource interface {
	Experiments() []*models.Experiment
	Decisions() map[string]*models.Decision
	TotalUsers() int
}

// Generate builds one report of the given type from the source's latest
// decisions, appends it to history, and archives it if an archive is
// configured. Archive failure is reported by log only; the in-memory
// report always lands.
func (g *Generator) Generate(reportType models.ReportType, src DecisionSource, now time.Time) *models.Report {
	start := time.Now()
	decisions := src.Decisions()

	rep := &models.Report{
		ID:              uuid.New().String(),
		Type:            reportType,
		Date:            now,
		Experiments:     make(map[string]models.ExperimentResult),
		Winners:         []models.Winner{},
		Recommendations: []models.Recommendation{},
	}

	var confidences []float64
	for _, exp := range src.Experiments() {
		d, ok := decisions[exp.ID]
		if !ok {
			continue
		}

		rep.Experiments[exp.ID] = models.ExperimentResult{
			Name:     exp.Name,
			State:    d.State,
			Result:   d.Result,
			Metrics:  d.Metrics,
			Message:  d.Message,
			Variants: len(exp.Variants),
		}
		rep.KeyMetrics.ExperimentsAnalyzed++

		if d.State != models.DecisionDecided || d.Result == nil {
			rep.KeyMetrics.PendingExperiments++
			continue
		}

		rep.Winners = append(rep.Winners, models.Winner{
			ExperimentID: exp.ID,
			Name:         exp.Name,
			Winner:       winnerName(exp, d.Result.WinnerVariantID),
			Confidence:   FormatPercent(d.Result.Confidence * 100),
			Lift:         FormatPercent(d.Result.Lift),
		})
		rep.Recommendations = append(rep.Recommendations, recommendationFor(exp, d.Result))
		confidences = append(confidences, d.Result.Confidence)
		rep.KeyMetrics.WinnersDeclared++
	}

	rep.KeyMetrics.TotalUsers = src.TotalUsers()
	rep.KeyMetrics.AvgConfidence = mean(confidences)

	g.history.Append(rep)
	if g.archive != nil {
		g.archive.Save(rep)
	}

	metrics.RecordReportGenerated(string(reportType), time.Since(start))
	return rep
}

// winnerName resolves a variant id to its display name.
func winnerName(exp *models.Experiment, variantID string) string {
	for _, v := range exp.Variants {
		if v.ID == variantID {
			return v.Name
		}
	}
	return variantID
}

// recommendationFor returns the experiment's static recommendation, or a
// generic one templated from the measured lift.
func recommendationFor(exp *models.Experiment, result *models.SignificanceResult) models.Recommendation {
	if exp.Recommendation != nil {
		rec := *exp.Recommendation
		rec.ExperimentID = exp.ID
		return rec
	}
	return models.Recommendation{
		ExperimentID: exp.ID,
		Action:       fmt.Sprintf("Roll out variant %s for %s", winnerName(exp, result.WinnerVariantID), exp.Name),
		Impact: fmt.Sprintf("Measured %s improvement on %s at %s confidence",
			FormatPercent(result.Lift), exp.PrimaryMetric, FormatPercent(result.Confidence*100)),
		Implementation: fmt.Sprintf("Make variant %s the default for all users", result.WinnerVariantID),
	}
}

// FormatPercent renders a percentage as "NN.N%". An infinite value (a
// lift over a zero control rate) renders as "n/a".
func FormatPercent(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", v)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
