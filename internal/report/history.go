// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package report

import (
	"sync"

	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/metrics"
	"github.com/splitstat/splitstat/internal/models"
)

// History keeps the most recent reports per type. Appending beyond a
// type's retention cap evicts the oldest report of that type.
type History struct {
	mu     sync.RWMutex
	byType map[models.ReportType][]*models.Report
	retain map[models.ReportType]int
}

// NewHistory creates a History with per-type retention caps. A cap of 0
// falls back to 1.
func NewHistory(retainDaily, retainWeekly, retainMonthly int) *History {
	retain := map[models.ReportType]int{
		models.ReportDaily:   max(retainDaily, 1),
		models.ReportWeekly:  max(retainWeekly, 1),
		models.ReportMonthly: max(retainMonthly, 1),
	}
	return &History{
		byType: make(map[models.ReportType][]*models.Report),
		retain: retain,
	}
}

// Append adds a report, evicting the oldest of its type beyond the cap.
func (h *History) Append(rep *models.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()

	reports := append(h.byType[rep.Type], rep)
	limit := h.retain[rep.Type]
	for len(reports) > limit {
		evicted := reports[0]
		reports = reports[1:]
		metrics.RecordReportEvicted(string(rep.Type))
		logging.Debug().
			Str("type", string(rep.Type)).
			Str("report_id", evicted.ID).
			Msg("Report evicted by retention cap")
	}
	h.byType[rep.Type] = reports
}

// Reports returns the retained reports of one type, oldest first.
func (h *History) Reports(reportType models.ReportType) []*models.Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*models.Report, len(h.byType[reportType]))
	copy(out, h.byType[reportType])
	return out
}

// Latest returns the most recent report of one type.
func (h *History) Latest(reportType models.ReportType) (*models.Report, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	reports := h.byType[reportType]
	if len(reports) == 0 {
		return nil, false
	}
	return reports[len(reports)-1], true
}

// Find returns a report by id, searching all types.
func (h *History) Find(id string) (*models.Report, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, reports := range h.byType {
		for _, rep := range reports {
			if rep.ID == id {
				return rep, true
			}
		}
	}
	return nil, false
}
