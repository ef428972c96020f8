// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package analysis

import (
	"github.com/splitstat/splitstat/internal/models"
)

// MetricInput is what a metric function computes over: one variant's
// events, that variant's reconstructed sessions, and the distinct-user
// count. SampleSize is guaranteed > 0 when a metric function runs.
type MetricInput struct {
	Events     []models.Event
	Sessions   []models.Session
	SampleSize int
}

// MetricFunc computes one metric value for a variant. Implementations
// must be pure and must never return NaN; degenerate inputs yield 0.
type MetricFunc func(in MetricInput) float64

// Registry dispatches metric names to computation functions. Built-in
// metrics are registered by NewRegistry; callers may register custom
// metrics before the first analysis pass.
type Registry struct {
	funcs map[string]MetricFunc
}

// NewRegistry creates a Registry with all built-in metrics registered.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]MetricFunc)}
	r.Register(models.MetricCompletionRate, completionRate)
	r.Register(models.MetricEngagementRate, engagementRate)
	r.Register(models.MetricSessionDuration, sessionDuration)
	r.Register(models.MetricConversionRate, conversionRate)
	r.Register(models.MetricSessionsPerUser, sessionsPerUser)
	r.Register(models.MetricEventsPerUser, eventsPerUser)
	return r
}

// Register adds or replaces a metric function.
func (r *Registry) Register(name string, fn MetricFunc) {
	r.funcs[name] = fn
}

// Has reports whether a metric name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Compute evaluates one metric. Unknown names return (0, false); the
// caller omits them rather than failing, so experiments can reference
// metrics that roll out later.
func (r *Registry) Compute(name string, in MetricInput) (float64, bool) {
	fn, ok := r.funcs[name]
	if !ok {
		return 0, false
	}
	return fn(in), true
}

// VariantMetrics computes the full metric set for one variant.
// A variant with no users yields all zeros and an empty secondary map.
func (r *Registry) VariantMetrics(variantID string, events []models.Event, sessions []models.Session, primary string, secondary []string) models.VariantMetrics {
	vm := models.VariantMetrics{
		VariantID:        variantID,
		SecondaryMetrics: make(map[string]float64),
	}

	users := make(map[string]struct{})
	for _, e := range events {
		users[e.UserID] = struct{}{}
	}
	vm.SampleSize = len(users)
	if vm.SampleSize == 0 {
		return vm
	}

	in := MetricInput{Events: events, Sessions: sessions, SampleSize: vm.SampleSize}
	if v, ok := r.Compute(primary, in); ok {
		vm.PrimaryMetricValue = v
	}
	for _, name := range secondary {
		if v, ok := r.Compute(name, in); ok {
			vm.SecondaryMetrics[name] = v
		}
	}
	return vm
}

func countType(events []models.Event, eventType string) int {
	n := 0
	for _, e := range events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// completionRate is completes over starts. Zero starts yields 0.
func completionRate(in MetricInput) float64 {
	starts := countType(in.Events, models.EventVideoStart)
	if starts == 0 {
		return 0
	}
	return float64(countType(in.Events, models.EventVideoComplete)) / float64(starts)
}

// engagementRate is start-or-seek events per user.
func engagementRate(in MetricInput) float64 {
	engaged := countType(in.Events, models.EventVideoStart) + countType(in.Events, models.EventVideoSeek)
	return float64(engaged) / float64(in.SampleSize)
}

// sessionDuration is the mean session length in seconds. No sessions
// yields 0, never NaN.
func sessionDuration(in MetricInput) float64 {
	if len(in.Sessions) == 0 {
		return 0
	}
	total := 0.0
	for i := range in.Sessions {
		total += in.Sessions[i].Duration()
	}
	return total / float64(len(in.Sessions))
}

// conversionRate is conversion events per user.
func conversionRate(in MetricInput) float64 {
	return float64(countType(in.Events, models.EventConversion)) / float64(in.SampleSize)
}

func sessionsPerUser(in MetricInput) float64 {
	return float64(len(in.Sessions)) / float64(in.SampleSize)
}

func eventsPerUser(in MetricInput) float64 {
	return float64(len(in.Events)) / float64(in.SampleSize)
}
