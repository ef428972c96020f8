// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package eventstore

import (
	"context"
	"errors"
	"testing"

	"github.com/splitstat/splitstat/internal/models"
)

// failingLog always fails Append. Replay yields the configured events.
type failingLog struct {
	events []models.Event
}

func (f *failingLog) Append(context.Context, *models.Event) error {
	return errors.New("disk gone")
}

func (f *failingLog) Replay(_ context.Context, fn func(models.Event) error) error {
	for _, e := range f.events {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *failingLog) Close() error { return nil }

func TestRecorderRecord(t *testing.T) {
	store := NewStore()
	rec := NewRecorder(store, NopLog{})

	event := models.Event{EventID: "e1", UserID: "u1", Type: "start", Timestamp: 1000}
	if err := rec.Record(context.Background(), &event, "api"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored event, got %d", store.Len())
	}
}

func TestRecorderAssignsEventID(t *testing.T) {
	store := NewStore()
	rec := NewRecorder(store, NopLog{})

	event := models.Event{UserID: "u1", Type: "start", Timestamp: 1000}
	if err := rec.Record(context.Background(), &event, "api"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.EventID == "" {
		t.Error("expected an assigned event id")
	}
}

func TestRecorderRejectsInvalidEvent(t *testing.T) {
	store := NewStore()
	rec := NewRecorder(store, NopLog{})

	event := models.Event{EventID: "e1", Type: "start", Timestamp: 1000} // no user
	if err := rec.Record(context.Background(), &event, "api"); err == nil {
		t.Error("expected validation error, got nil")
	}
	if store.Len() != 0 {
		t.Errorf("invalid event must not be stored, got %d", store.Len())
	}
}

func TestRecorderSurvivesLogFailure(t *testing.T) {
	store := NewStore()
	rec := NewRecorder(store, &failingLog{})

	event := models.Event{EventID: "e1", UserID: "u1", Type: "start", Timestamp: 1000}
	if err := rec.Record(context.Background(), &event, "api"); err != nil {
		t.Fatalf("log failure must not reject the event: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected event held in memory despite log failure, got %d", store.Len())
	}
}

func TestRecorderReplay(t *testing.T) {
	store := NewStore()
	rec := NewRecorder(store, &failingLog{events: []models.Event{
		{EventID: "e1", UserID: "u1", Type: "start", Timestamp: 1000},
		{EventID: "e2", UserID: "u2", Type: "start", Timestamp: 2000},
	}})

	count, err := rec.Replay(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 replayed events, got %d", count)
	}
	if store.Len() != 2 || store.DistinctUsers() != 2 {
		t.Errorf("expected replayed events in store, got len=%d users=%d", store.Len(), store.DistinctUsers())
	}
}
