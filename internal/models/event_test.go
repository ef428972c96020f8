// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package models

import (
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent("user-1", EventVideoStart)

	if e.EventID == "" {
		t.Error("expected generated event ID")
	}
	if e.UserID != "user-1" {
		t.Errorf("expected userId user-1, got %s", e.UserID)
	}
	if e.Type != EventVideoStart {
		t.Errorf("expected event type %s, got %s", EventVideoStart, e.Type)
	}
	if e.Timestamp == 0 {
		t.Error("expected timestamp to be set")
	}
	if e.Properties == nil {
		t.Error("expected properties map to be initialized")
	}
}

func TestEventTime(t *testing.T) {
	ts := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	e := Event{Timestamp: ts.UnixMilli()}

	if !e.Time().Equal(ts) {
		t.Errorf("expected %v, got %v", ts, e.Time())
	}
}

func TestEventVariantFor(t *testing.T) {
	tests := []struct {
		name         string
		properties   map[string]string
		experimentID string
		want         string
	}{
		{
			name:         "assigned variant",
			properties:   map[string]string{"exp_thumbnail": "B"},
			experimentID: "thumbnail",
			want:         "B",
		},
		{
			name:         "not enrolled",
			properties:   map[string]string{"exp_other": "A"},
			experimentID: "thumbnail",
			want:         "",
		},
		{
			name:         "nil properties",
			experimentID: "thumbnail",
			want:         "",
		},
		{
			name:         "non experiment property ignored",
			properties:   map[string]string{"thumbnail": "B"},
			experimentID: "thumbnail",
			want:         "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{Properties: tt.properties}
			if got := e.VariantFor(tt.experimentID); got != tt.want {
				t.Errorf("expected variant %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name:  "valid event",
			event: Event{EventID: "e1", UserID: "u1", Type: "start", Timestamp: 1700000000000},
		},
		{
			name:    "missing user",
			event:   Event{EventID: "e1", Type: "start", Timestamp: 1700000000000},
			wantErr: true,
		},
		{
			name:    "missing type",
			event:   Event{EventID: "e1", UserID: "u1", Timestamp: 1700000000000},
			wantErr: true,
		},
		{
			name:    "zero timestamp",
			event:   Event{EventID: "e1", UserID: "u1", Type: "start"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected wantErr=%v, got err=%v", tt.wantErr, err)
			}
		})
	}
}

func TestSessionDuration(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		want    float64
	}{
		{
			name:    "five minutes",
			session: Session{StartTime: 0, EndTime: 300_000},
			want:    300,
		},
		{
			name:    "zero length single event",
			session: Session{StartTime: 1000, EndTime: 1000},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Duration(); got != tt.want {
				t.Errorf("expected %v seconds, got %v", tt.want, got)
			}
		})
	}
}

func TestExperimentControl(t *testing.T) {
	exp := Experiment{
		ID: "thumbnail",
		Variants: []Variant{
			{ID: "A", Name: "Current"},
			{ID: "B", Name: "New"},
			{ID: "C", Name: "Bold"},
		},
	}

	if control := exp.Control(); control.ID != "A" {
		t.Errorf("expected control A, got %s", control.ID)
	}

	challengers := exp.Challengers()
	if len(challengers) != 2 {
		t.Fatalf("expected 2 challengers, got %d", len(challengers))
	}
	if challengers[0].ID != "B" || challengers[1].ID != "C" {
		t.Errorf("unexpected challenger order: %+v", challengers)
	}

	empty := Experiment{ID: "empty"}
	if control := empty.Control(); control.ID != "" {
		t.Error("expected zero control for experiment without variants")
	}
}

func TestExperimentHasVariant(t *testing.T) {
	exp := Experiment{Variants: []Variant{{ID: "A"}, {ID: "B"}}}

	if !exp.HasVariant("B") {
		t.Error("expected variant B to exist")
	}
	if exp.HasVariant("Z") {
		t.Error("did not expect variant Z")
	}
}

func TestReportTypeValid(t *testing.T) {
	for _, valid := range []ReportType{ReportDaily, ReportWeekly, ReportMonthly} {
		if !valid.Valid() {
			t.Errorf("expected %s to be valid", valid)
		}
	}
	if ReportType("hourly").Valid() {
		t.Error("expected hourly to be invalid")
	}
}
