// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

// Package scheduler drives periodic analysis passes and cadence-based
// report generation.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/splitstat/splitstat/internal/models"
)

// Cadence is a parsed report schedule. Supported forms:
//
//	daily@09:00
//	weekly@Mon-09:00
//	monthly@1st-09:00
type Cadence struct {
	Type       models.ReportType
	Weekday    time.Weekday // weekly only
	DayOfMonth int          // monthly only, 1-based
	Hour       int
	Minute     int
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseCadence parses a cadence expression.
func ParseCadence(expr string) (*Cadence, error) {
	parts := strings.SplitN(expr, "@", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cadence %q (want type@spec)", expr)
	}

	c := &Cadence{Type: models.ReportType(strings.ToLower(parts[0]))}
	spec := parts[1]

	switch c.Type {
	case models.ReportDaily:
		if err := c.parseClock(spec); err != nil {
			return nil, fmt.Errorf("invalid cadence %q: %w", expr, err)
		}

	case models.ReportWeekly:
		dayAndClock := strings.SplitN(spec, "-", 2)
		if len(dayAndClock) != 2 {
			return nil, fmt.Errorf("invalid cadence %q (want weekly@Day-HH:MM)", expr)
		}
		day, ok := weekdays[strings.ToLower(dayAndClock[0])]
		if !ok {
			return nil, fmt.Errorf("invalid cadence %q: unknown weekday %q", expr, dayAndClock[0])
		}
		c.Weekday = day
		if err := c.parseClock(dayAndClock[1]); err != nil {
			return nil, fmt.Errorf("invalid cadence %q: %w", expr, err)
		}

	case models.ReportMonthly:
		dayAndClock := strings.SplitN(spec, "-", 2)
		if len(dayAndClock) != 2 {
			return nil, fmt.Errorf("invalid cadence %q (want monthly@Nth-HH:MM)", expr)
		}
		day, err := parseOrdinal(dayAndClock[0])
		if err != nil {
			return nil, fmt.Errorf("invalid cadence %q: %w", expr, err)
		}
		c.DayOfMonth = day
		if err := c.parseClock(dayAndClock[1]); err != nil {
			return nil, fmt.Errorf("invalid cadence %q: %w", expr, err)
		}

	default:
		return nil, fmt.Errorf("invalid cadence %q: unknown type %q", expr, parts[0])
	}

	return c, nil
}

// parseClock parses "HH:MM" into the cadence.
func (c *Cadence) parseClock(s string) error {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute %q", parts[1])
	}
	c.Hour, c.Minute = hour, minute
	return nil
}

// parseOrdinal parses "1st", "2nd", "15th" into a day of month.
func parseOrdinal(s string) (int, error) {
	s = strings.ToLower(s)
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if trimmed, ok := strings.CutSuffix(s, suffix); ok {
			s = trimmed
			break
		}
	}
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 28 {
		// Cap at 28 so the schedule fires in every month.
		return 0, fmt.Errorf("invalid day of month %q (want 1st-28th)", s)
	}
	return day, nil
}

// NextRun returns the first trigger time strictly after the given time.
func (c *Cadence) NextRun(after time.Time) time.Time {
	t := time.Date(after.Year(), after.Month(), after.Day(), c.Hour, c.Minute, 0, 0, after.Location())

	switch c.Type {
	case models.ReportDaily:
		if !t.After(after) {
			t = t.AddDate(0, 0, 1)
		}

	case models.ReportWeekly:
		offset := (int(c.Weekday) - int(t.Weekday()) + 7) % 7
		t = t.AddDate(0, 0, offset)
		if !t.After(after) {
			t = t.AddDate(0, 0, 7)
		}

	case models.ReportMonthly:
		t = time.Date(after.Year(), after.Month(), c.DayOfMonth, c.Hour, c.Minute, 0, 0, after.Location())
		if !t.After(after) {
			t = time.Date(after.Year(), after.Month()+1, c.DayOfMonth, c.Hour, c.Minute, 0, 0, after.Location())
		}
	}

	return t
}
