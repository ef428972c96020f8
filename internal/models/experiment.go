// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package models

import (
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Variant is a named arm of an experiment. Membership is exclusive: one
// event maps to exactly one variant per experiment.
type Variant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Experiment is the immutable configuration of one A/B test. Created at
// startup from the configuration file; never mutated during analysis.
type Experiment struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Variants         []Variant     `json:"variants"`
	PrimaryMetric    string        `json:"primary_metric"`
	SecondaryMetrics []string      `json:"secondary_metrics,omitempty"`
	StartDate        time.Time     `json:"start_date"`
	MinimumSample    int           `json:"minimum_sample_size"`
	MinimumDuration  time.Duration `json:"minimum_duration"`
	ConfidenceLevel  float64       `json:"confidence_level"`

	// Recommendation is the optional static recommendation emitted when
	// this experiment declares a winner. When nil, the report generator
	// falls back to a generic recommendation templated from the lift.
	Recommendation *Recommendation `json:"recommendation,omitempty"`
}

// Control returns the control arm. The first configured variant is the
// control by convention.
func (e *Experiment) Control() Variant {
	if len(e.Variants) == 0 {
		return Variant{}
	}
	return e.Variants[0]
}

// Challengers returns all non-control arms.
func (e *Experiment) Challengers() []Variant {
	if len(e.Variants) < 2 {
		return nil
	}
	return e.Variants[1:]
}

// HasVariant reports whether the given variant id is one of this
// experiment's arms.
func (e *Experiment) HasVariant(variantID string) bool {
	for _, v := range e.Variants {
		if v.ID == variantID {
			return true
		}
	}
	return false
}

// Elapsed returns the time this experiment has been running as of now.
func (e *Experiment) Elapsed(now time.Time) time.Duration {
	return now.Sub(e.StartDate)
}

// VariantMetrics holds the metric values computed for one variant in one
// analysis pass. Recomputed every pass, discarded the next.
type VariantMetrics struct {
	VariantID string `json:"variant_id"`

	// SampleSize is the count of distinct users among the variant's
	// events, never the raw event count.
	SampleSize int `json:"sample_size"`

	PrimaryMetricValue float64            `json:"primary_metric_value"`
	SecondaryMetrics   map[string]float64 `json:"secondary_metrics,omitempty"`
}

// SignificanceResult is the outcome of one two-proportion z-test between
// a control and the best challenger. Derived, never mutated after creation.
type SignificanceResult struct {
	IsSignificant bool    `json:"is_significant"`
	PValue        float64 `json:"p_value"`
	Confidence    float64 `json:"confidence"`

	// WinnerVariantID is set only when the test is significant.
	WinnerVariantID string `json:"winner_variant_id,omitempty"`

	// Lift is the relative improvement of the challenger over the control
	// on the primary metric, in percent. +Inf when the control rate is 0;
	// serialized as null in that case (see MarshalJSON).
	Lift float64 `json:"lift"`

	// Reason explains a not-significant outcome produced by a policy gate
	// rather than by statistics, e.g. "insufficient sample size".
	Reason string `json:"reason,omitempty"`
}

// MarshalJSON renders an unbounded lift (zero control rate) as null.
// Infinite floats are not representable in JSON and would fail the
// encoder, taking every API response and archived report with them.
func (r *SignificanceResult) MarshalJSON() ([]byte, error) {
	type plain SignificanceResult
	out := struct {
		*plain
		Lift *float64 `json:"lift"`
	}{plain: (*plain)(r)}
	if !math.IsInf(r.Lift, 0) && !math.IsNaN(r.Lift) {
		out.Lift = &r.Lift
	}
	return json.Marshal(out)
}

// DecisionState is the per-pass state of an experiment's decision.
type DecisionState string

const (
	// DecisionAccumulating means one or more gates have not passed yet
	// and the experiment keeps collecting data.
	DecisionAccumulating DecisionState = "accumulating"

	// DecisionDecided means all gates passed and a winner was declared
	// for this pass.
	DecisionDecided DecisionState = "decided"
)

// Decision is the point-in-time output of the decision engine for one
// experiment. It is recomputed from scratch every analysis pass; a
// "decided" state is not a persisted lock.
type Decision struct {
	ExperimentID string        `json:"experiment_id"`
	State        DecisionState `json:"state"`

	// Result is the significance test output for this pass, present even
	// while accumulating (it carries the gate reason).
	Result *SignificanceResult `json:"result,omitempty"`

	// Metrics holds the per-variant metrics this decision was based on.
	Metrics []VariantMetrics `json:"metrics,omitempty"`

	// UsersNeeded is the number of additional distinct users required in
	// the thinnest variant before the sample-size gate passes. Zero when
	// the gate has passed.
	UsersNeeded int `json:"users_needed,omitempty"`

	// DaysRemaining is the time left on the minimum-duration gate, in
	// whole days rounded up. Zero when the gate has passed.
	DaysRemaining int `json:"days_remaining,omitempty"`

	// Message is a human-readable summary, e.g. "needs 37 more users".
	Message string `json:"message,omitempty"`
}
