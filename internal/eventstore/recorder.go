// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/metrics"
	"github.com/splitstat/splitstat/internal/models"
)

// Recorder is the single write path into the event store. Every event is
// validated, appended to the in-memory store, and written through to the
// durable log. Log writes go through a circuit breaker so a broken disk
// cannot stall ingestion; the in-memory append always succeeds first, so
// a log failure costs durability, not availability.
type Recorder struct {
	store   *Store
	log     Log
	breaker *gobreaker.CircuitBreaker[interface{}]

	// failureLog throttles persist-failure logging. One warning per
	// interval is enough; the failure counter carries the full rate.
	failureLog *rate.Limiter
}

// NewRecorder creates a Recorder writing through to the given log.
func NewRecorder(store *Store, log Log) *Recorder {
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "event-log",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Recorder{
		store:      store,
		log:        log,
		breaker:    cb,
		failureLog: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// Record validates and stores one event. A validation failure rejects the
// event; a durable-log failure does not.
func (r *Recorder) Record(ctx context.Context, event *models.Event, source string) error {
	if err := event.Validate(); err != nil {
		metrics.RecordEventRejected("validation")
		return fmt.Errorf("invalid event: %w", err)
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	r.store.Append(*event)
	metrics.RecordEventRecorded(source)
	metrics.UpdateEventStoreGauges(r.store.Len(), r.store.DistinctUsers())

	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.log.Append(ctx, event)
	})
	metrics.RecordEventLogAppend(err)
	if err != nil {
		metrics.CircuitBreakerRequests.WithLabelValues("event-log", "failure").Inc()
		if r.failureLog.Allow() {
			logging.Err(err).
				Str("event_id", event.EventID).
				Msg("Event log write failed; event held in memory only")
		}
	} else {
		metrics.CircuitBreakerRequests.WithLabelValues("event-log", "success").Inc()
	}

	return nil
}

// Replay loads every persisted event from the durable log into the
// in-memory store. Called once at startup, before ingestion begins.
func (r *Recorder) Replay(ctx context.Context) (int, error) {
	count := 0
	err := r.log.Replay(ctx, func(event models.Event) error {
		r.store.Append(event)
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("replay event log: %w", err)
	}

	metrics.EventLogReplayed.Add(float64(count))
	metrics.UpdateEventStoreGauges(r.store.Len(), r.store.DistinctUsers())
	if count > 0 {
		logging.Info().Int("events", count).Msg("Replayed events from durable log")
	}
	return count, nil
}

// Store returns the underlying in-memory store.
func (r *Recorder) Store() *Store {
	return r.store
}
