// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known event types used by the built-in metric functions.
// Instrumentation is free to send arbitrary event types; these are the
// ones the analysis core attaches semantics to.
const (
	EventVideoStart    = "start"
	EventVideoComplete = "complete"
	EventVideoSeek     = "seek"
	EventConversion    = "convert"
)

// ExperimentPropertyPrefix is the event-property prefix that binds an
// event to an experiment arm: properties["exp_<experimentID>"] = variantID.
const ExperimentPropertyPrefix = "exp_"

// Event is a single behavioral event reported by the instrumentation
// collaborator. Events are immutable once recorded.
type Event struct {
	// EventID uniquely identifies the event. Assigned at ingestion if the
	// producer did not set one.
	EventID string `json:"event_id,omitempty"`

	// UserID identifies the user the event belongs to.
	UserID string `json:"userId" validate:"required"`

	// Type is the event type string, e.g. "start", "complete", "seek".
	Type string `json:"event" validate:"required"`

	// Timestamp is epoch milliseconds, matching the wire format emitted
	// by the browser instrumentation.
	Timestamp int64 `json:"timestamp" validate:"required,gt=0"`

	// Properties carries arbitrary string key/value pairs. Experiment
	// membership is encoded as properties["exp_<experimentID>"] = variantID.
	Properties map[string]string `json:"properties,omitempty"`
}

// NewEvent creates an event with a unique ID and the current timestamp.
func NewEvent(userID, eventType string) *Event {
	return &Event{
		EventID:    uuid.New().String(),
		UserID:     userID,
		Type:       eventType,
		Timestamp:  time.Now().UnixMilli(),
		Properties: make(map[string]string),
	}
}

// Time returns the event timestamp as time.Time.
func (e *Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// VariantFor returns the variant this event is assigned to for the given
// experiment, or "" if the event carries no binding for it.
func (e *Event) VariantFor(experimentID string) string {
	if e.Properties == nil {
		return ""
	}
	return e.Properties[ExperimentPropertyPrefix+experimentID]
}

// Validate checks required fields and returns an error if validation fails.
func (e *Event) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("user id required")
	}
	if e.Type == "" {
		return fmt.Errorf("event type required")
	}
	if e.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive epoch milliseconds")
	}
	return nil
}

// Session is a time-bounded cluster of one user's events, split by an
// inactivity timeout. Sessions are pure projections recomputed from raw
// events on every analysis pass; they are never persisted.
type Session struct {
	UserID         string  `json:"user_id"`
	StartTime      int64   `json:"start_time"` // epoch millis
	EndTime        int64   `json:"end_time"`   // epoch millis
	Events         []Event `json:"-"`
	VideoPlayCount int     `json:"video_play_count"`
}

// Duration returns the session length in seconds. A single-event session
// has duration 0, which is valid.
func (s *Session) Duration() float64 {
	return float64(s.EndTime-s.StartTime) / 1000.0
}
