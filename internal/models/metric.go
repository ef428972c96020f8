// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package models

// Built-in metric names. The analysis engine computes these from a
// variant's sessions; experiments reference them by name in config.
const (
	MetricCompletionRate  = "completion_rate"
	MetricEngagementRate  = "engagement_rate"
	MetricSessionDuration = "session_duration"
	MetricConversionRate  = "conversion_rate"
	MetricSessionsPerUser = "sessions_per_user"
	MetricEventsPerUser   = "events_per_user"
)

// KnownMetrics lists every built-in metric name.
func KnownMetrics() []string {
	return []string{
		MetricCompletionRate,
		MetricEngagementRate,
		MetricSessionDuration,
		MetricConversionRate,
		MetricSessionsPerUser,
		MetricEventsPerUser,
	}
}

// IsKnownMetric reports whether name is one of the built-in metrics.
func IsKnownMetric(name string) bool {
	for _, m := range KnownMetrics() {
		if m == name {
			return true
		}
	}
	return false
}
