// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

// Package metrics exposes Prometheus instrumentation for SplitStat:
// event ingestion, the durable event log, analysis passes, decisions,
// report generation, and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event Ingestion Metrics
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_recorded_total",
			Help: "Total number of events recorded into the store",
		},
		[]string{"source"}, // "api", "nats", "replay"
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_rejected_total",
			Help: "Total number of events rejected at ingestion",
		},
		[]string{"reason"}, // "validation", "parse"
	)

	EventStoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_store_events",
			Help: "Current number of events held in the in-memory store",
		},
	)

	EventStoreUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_store_users",
			Help: "Current number of distinct users in the event store",
		},
	)

	// Durable Event Log Metrics
	EventLogAppends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_log_appends_total",
			Help: "Total number of events appended to the durable log",
		},
	)

	EventLogFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_log_failures_total",
			Help: "Total number of failed durable log writes",
		},
	)

	EventLogReplayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_log_replayed_total",
			Help: "Total number of events replayed from the durable log at startup",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// Analysis Metrics
	AnalysisPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_pass_duration_seconds",
			Help:    "Duration of full analysis passes in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	AnalysisPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_passes_total",
			Help: "Total number of analysis passes executed",
		},
	)

	SessionsReconstructed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_sessions_reconstructed",
			Help:    "Number of sessions reconstructed per analysis pass",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_decisions_total",
			Help: "Total number of per-experiment decisions produced",
		},
		[]string{"experiment", "state"}, // state: "accumulating", "decided"
	)

	// Report Metrics
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "Total number of reports generated",
		},
		[]string{"type"}, // "daily", "weekly", "monthly"
	)

	ReportsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_evicted_total",
			Help: "Total number of reports evicted by retention caps",
		},
		[]string{"type"},
	)

	ReportGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_generation_duration_seconds",
			Help:    "Duration of report generation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// NATS Ingestion Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of messages published to NATS",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of messages consumed from NATS",
		},
	)

	NATSMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_parse_failed_total",
			Help: "Total number of messages that failed to parse",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordEventRecorded records a successfully stored event.
func RecordEventRecorded(source string) {
	EventsRecorded.WithLabelValues(source).Inc()
}

// RecordEventRejected records an event rejected at ingestion.
func RecordEventRejected(reason string) {
	EventsRejected.WithLabelValues(reason).Inc()
}

// UpdateEventStoreGauges updates the event store size gauges.
func UpdateEventStoreGauges(events, users int) {
	EventStoreSize.Set(float64(events))
	EventStoreUsers.Set(float64(users))
}

// RecordEventLogAppend records a durable log append and its outcome.
func RecordEventLogAppend(err error) {
	if err != nil {
		EventLogFailures.Inc()
		return
	}
	EventLogAppends.Inc()
}

// RecordAnalysisPass records a completed analysis pass.
func RecordAnalysisPass(duration time.Duration, sessions int) {
	AnalysisPassesTotal.Inc()
	AnalysisPassDuration.Observe(duration.Seconds())
	SessionsReconstructed.Observe(float64(sessions))
}

// RecordDecision records one per-experiment decision.
func RecordDecision(experimentID, state string) {
	DecisionsTotal.WithLabelValues(experimentID, state).Inc()
}

// RecordReportGenerated records a generated report.
func RecordReportGenerated(reportType string, duration time.Duration) {
	ReportsGenerated.WithLabelValues(reportType).Inc()
	ReportGenerationDuration.Observe(duration.Seconds())
}

// RecordReportEvicted records a report evicted by a retention cap.
func RecordReportEvicted(reportType string) {
	ReportsEvicted.WithLabelValues(reportType).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
