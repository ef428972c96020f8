// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package analysis

import (
	"fmt"
	"time"

	"github.com/splitstat/splitstat/internal/models"
)

// Decide applies the decision gates for one experiment: every variant
// must meet the minimum sample size, the experiment must have run for its
// minimum duration, and the significance test must pass. Any failed gate
// yields an accumulating decision with an actionable message; decisions
// are recomputed from scratch every pass, so a decided state is a
// point-in-time output, not a lock.
func Decide(exp *models.Experiment, variantMetrics []models.VariantMetrics, result *models.SignificanceResult, now time.Time) *models.Decision {
	d := &models.Decision{
		ExperimentID: exp.ID,
		State:        models.DecisionAccumulating,
		Result:       result,
		Metrics:      variantMetrics,
	}

	// Gate (a): sample size across every variant, not just the tested pair.
	for _, vm := range variantMetrics {
		if missing := exp.MinimumSample - vm.SampleSize; missing > d.UsersNeeded {
			d.UsersNeeded = missing
		}
	}
	if d.UsersNeeded > 0 {
		d.Message = fmt.Sprintf("needs %d more users", d.UsersNeeded)
		return d
	}

	// Gate (b): minimum runtime.
	if remaining := exp.MinimumDuration - exp.Elapsed(now); remaining > 0 {
		d.DaysRemaining = int(ceilDays(remaining))
		d.Message = fmt.Sprintf("%d more days of data needed", d.DaysRemaining)
		return d
	}

	// Gate (c): statistics.
	if result == nil || !result.IsSignificant {
		d.Message = "difference not statistically significant yet"
		return d
	}

	d.State = models.DecisionDecided
	d.Message = fmt.Sprintf("winner: %s", result.WinnerVariantID)
	return d
}

// ceilDays converts a remaining duration to whole days, rounding up.
func ceilDays(d time.Duration) int64 {
	const day = 24 * time.Hour
	days := d / day
	if d%day > 0 {
		days++
	}
	return int64(days)
}
