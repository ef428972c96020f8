// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package models

import (
	"time"
)

// ReportType identifies the cadence a report was generated for.
type ReportType string

const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	switch t {
	case ReportDaily, ReportWeekly, ReportMonthly:
		return true
	}
	return false
}

// Recommendation is an actionable follow-up for an experiment with a
// declared winner.
type Recommendation struct {
	ExperimentID   string `json:"experiment_id,omitempty"`
	Action         string `json:"action"`
	Impact         string `json:"impact"`
	Implementation string `json:"implementation"`
}

// Winner summarizes a decided experiment for report consumers.
// Confidence and Lift are pre-formatted percentage strings ("NN.N%")
// because the report is consumed by a notification collaborator that
// renders them verbatim.
type Winner struct {
	ExperimentID string `json:"experimentId"`
	Name         string `json:"name"`
	Winner       string `json:"winner"`
	Confidence   string `json:"confidence"`
	Lift         string `json:"lift"`
}

// KeyMetrics aggregates headline numbers across all experiments in a
// report.
type KeyMetrics struct {
	// TotalUsers is the count of distinct users across all variants of
	// all experiments.
	TotalUsers int `json:"total_users"`

	// AvgConfidence is the mean confidence across experiments with a
	// declared winner; 0 when there are none.
	AvgConfidence float64 `json:"avg_confidence"`

	ExperimentsAnalyzed int `json:"experiments_analyzed"`
	WinnersDeclared     int `json:"winners_declared"`
	PendingExperiments  int `json:"pending_experiments"`
}

// ExperimentResult is the per-experiment section of a report.
type ExperimentResult struct {
	Name     string              `json:"name"`
	State    DecisionState       `json:"state"`
	Result   *SignificanceResult `json:"result,omitempty"`
	Metrics  []VariantMetrics    `json:"metrics,omitempty"`
	Message  string              `json:"message,omitempty"`
	Variants int                 `json:"variants"`
}

// Report is one snapshot emitted by the report generator. Reports are
// kept in an append-only, bounded history; the oldest snapshot is
// evicted once the per-type retention cap is reached.
type Report struct {
	ID   string     `json:"id"`
	Type ReportType `json:"type"`

	// Date is when the report was generated, serialized as ISO-8601.
	Date time.Time `json:"date"`

	Experiments     map[string]ExperimentResult `json:"experiments"`
	Winners         []Winner                    `json:"winners"`
	Recommendations []Recommendation            `json:"recommendations"`
	KeyMetrics      KeyMetrics                  `json:"keyMetrics"`
}
