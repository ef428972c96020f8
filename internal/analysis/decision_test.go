// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package analysis

import (
	"strings"
	"testing"
	"time"

	"github.com/splitstat/splitstat/internal/models"
)

func testExperiment(start time.Time) *models.Experiment {
	return &models.Experiment{
		ID:              "thumbnail",
		Name:            "Thumbnail Test",
		Variants:        []models.Variant{{ID: "A", Name: "Current"}, {ID: "B", Name: "New"}},
		PrimaryMetric:   models.MetricCompletionRate,
		StartDate:       start,
		MinimumSample:   100,
		MinimumDuration: 7 * 24 * time.Hour,
		ConfidenceLevel: 0.95,
	}
}

func TestDecideDeclaresWinner(t *testing.T) {
	now := time.Now()
	exp := testExperiment(now.Add(-10 * 24 * time.Hour))
	metrics := []models.VariantMetrics{vm("A", 0.10, 150), vm("B", 0.18, 150)}
	result := TestSignificance(metrics[0], metrics[1], exp.MinimumSample, exp.ConfidenceLevel)

	d := Decide(exp, metrics, result, now)
	if d.State != models.DecisionDecided {
		t.Fatalf("expected decided, got %s (%s)", d.State, d.Message)
	}
	if d.Result.WinnerVariantID != "B" {
		t.Errorf("expected winner B, got %q", d.Result.WinnerVariantID)
	}
	if d.UsersNeeded != 0 || d.DaysRemaining != 0 {
		t.Errorf("decided state must report no outstanding gates: %+v", d)
	}
}

func TestDecideSampleGateBeatsLift(t *testing.T) {
	now := time.Now()
	exp := testExperiment(now.Add(-30 * 24 * time.Hour))
	// Enormous lift, but the thin variant has 40 users.
	metrics := []models.VariantMetrics{vm("A", 0.10, 150), vm("B", 0.30, 40)}
	result := TestSignificance(metrics[0], metrics[1], exp.MinimumSample, exp.ConfidenceLevel)

	d := Decide(exp, metrics, result, now)
	if d.State != models.DecisionAccumulating {
		t.Fatalf("expected accumulating, got %s", d.State)
	}
	if d.UsersNeeded != 60 {
		t.Errorf("expected 60 more users needed, got %d", d.UsersNeeded)
	}
	if !strings.Contains(d.Message, "60 more users") {
		t.Errorf("expected actionable message, got %q", d.Message)
	}
}

func TestDecideDurationGate(t *testing.T) {
	now := time.Now()
	// Running for 2 days of a 7-day minimum.
	exp := testExperiment(now.Add(-2 * 24 * time.Hour))
	metrics := []models.VariantMetrics{vm("A", 0.10, 150), vm("B", 0.18, 150)}
	result := TestSignificance(metrics[0], metrics[1], exp.MinimumSample, exp.ConfidenceLevel)

	d := Decide(exp, metrics, result, now)
	if d.State != models.DecisionAccumulating {
		t.Fatalf("expected accumulating, got %s", d.State)
	}
	if d.DaysRemaining != 5 {
		t.Errorf("expected 5 days remaining, got %d", d.DaysRemaining)
	}
}

func TestDecideNotSignificant(t *testing.T) {
	now := time.Now()
	exp := testExperiment(now.Add(-10 * 24 * time.Hour))
	// Nearly identical rates: gates pass, statistics do not.
	metrics := []models.VariantMetrics{vm("A", 0.100, 150), vm("B", 0.101, 150)}
	result := TestSignificance(metrics[0], metrics[1], exp.MinimumSample, exp.ConfidenceLevel)

	d := Decide(exp, metrics, result, now)
	if d.State != models.DecisionAccumulating {
		t.Fatalf("expected accumulating, got %s", d.State)
	}
	if !strings.Contains(d.Message, "not statistically significant") {
		t.Errorf("unexpected message: %q", d.Message)
	}
}

func TestDecideNilResult(t *testing.T) {
	now := time.Now()
	exp := testExperiment(now.Add(-10 * 24 * time.Hour))
	metrics := []models.VariantMetrics{vm("A", 0.10, 150), vm("B", 0.18, 150)}

	d := Decide(exp, metrics, nil, now)
	if d.State != models.DecisionDecided {
		// A nil result can only keep accumulating.
		return
	}
	t.Error("nil significance result must not produce a decided state")
}
