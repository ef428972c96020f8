// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

// Package analysis implements the statistical core: session reconstruction,
// per-variant metric computation, two-proportion significance testing, and
// the per-experiment decision policy. Every computation here is a pure
// function over an event snapshot; a pass never mutates recorded events.
package analysis

import (
	"sort"
	"time"

	"github.com/splitstat/splitstat/internal/models"
)

// DefaultSessionTimeout is the inactivity gap that closes a session.
const DefaultSessionTimeout = 30 * time.Minute

// ReconstructSessions groups one user's events into sessions. Events are
// sorted by timestamp; a gap of timeout or more since the session's last
// event starts a new session. A single-event session has duration 0,
// which is valid.
func ReconstructSessions(userID string, events []models.Event, timeout time.Duration) []models.Session {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	timeoutMs := timeout.Milliseconds()
	var sessions []models.Session

	for _, e := range sorted {
		if len(sessions) == 0 || e.Timestamp-sessions[len(sessions)-1].EndTime >= timeoutMs {
			sessions = append(sessions, models.Session{
				UserID:    userID,
				StartTime: e.Timestamp,
				EndTime:   e.Timestamp,
			})
		}

		open := &sessions[len(sessions)-1]
		open.EndTime = e.Timestamp
		open.Events = append(open.Events, e)
		if e.Type == models.EventVideoStart {
			open.VideoPlayCount++
		}
	}

	return sessions
}

// ReconstructAll groups a mixed event slice by user and reconstructs each
// user's sessions independently.
func ReconstructAll(events []models.Event, timeout time.Duration) []models.Session {
	byUser := make(map[string][]models.Event)
	order := make([]string, 0)
	for _, e := range events {
		if _, seen := byUser[e.UserID]; !seen {
			order = append(order, e.UserID)
		}
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	var sessions []models.Session
	for _, userID := range order {
		sessions = append(sessions, ReconstructSessions(userID, byUser[userID], timeout)...)
	}
	return sessions
}
