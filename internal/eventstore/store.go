// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

// Package eventstore holds recorded events. The in-memory Store is the
// source of truth the analysis engine reads; the Badger-backed Log makes
// events durable across restarts.
package eventstore

import (
	"sort"
	"sync"

	"github.com/splitstat/splitstat/internal/models"
)

// Store is an append-only, thread-safe in-memory event store. Events are
// never mutated or deleted after Append.
type Store struct {
	mu     sync.RWMutex
	events []models.Event
	users  map[string]struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users: make(map[string]struct{}),
	}
}

// Append adds an event to the store. The event is copied; callers may
// reuse the value.
func (s *Store) Append(event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.users[event.UserID] = struct{}{}
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// DistinctUsers returns the number of distinct users seen across all events.
func (s *Store) DistinctUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Snapshot returns a copy of all events, sorted by timestamp ascending.
// Ties preserve insertion order. Analysis passes operate on a snapshot so
// concurrent appends never affect an in-flight pass.
func (s *Store) Snapshot() []models.Event {
	s.mu.RLock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// EventsForUser returns a copy of all events for one user, sorted by
// timestamp ascending.
func (s *Store) EventsForUser(userID string) []models.Event {
	s.mu.RLock()
	var out []models.Event
	for i := range s.events {
		if s.events[i].UserID == userID {
			out = append(out, s.events[i])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}
