// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package analysis

import (
	"math"

	"github.com/splitstat/splitstat/internal/models"
)

// ReasonInsufficientSample marks a result gated on sample size rather
// than produced by the statistics.
const ReasonInsufficientSample = "insufficient sample size"

// Abramowitz & Stegun 7.1.26 rational approximation coefficients for erf.
const (
	erfP  = 0.3275911
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
)

// erfApprox evaluates the Abramowitz & Stegun approximation to erf(x)
// for x >= 0. Maximum absolute error is about 1.5e-7.
func erfApprox(x float64) float64 {
	t := 1.0 / (1.0 + erfP*x)
	poly := ((((erfA5*t+erfA4)*t+erfA3)*t+erfA2)*t + erfA1) * t
	return 1.0 - poly*math.Exp(-x*x)
}

// TestSignificance runs a two-proportion z-test of challenger against
// control on the primary metric. The test direction is "challenger beats
// control": a challenger rate below the control's can never be declared
// significant. The function never returns NaN for well-formed inputs;
// degenerate cases produce a not-significant result instead.
func TestSignificance(control, challenger models.VariantMetrics, minimumSample int, confidenceLevel float64) *models.SignificanceResult {
	if control.SampleSize < minimumSample || challenger.SampleSize < minimumSample {
		return &models.SignificanceResult{
			IsSignificant: false,
			PValue:        1,
			Confidence:    0,
			Reason:        ReasonInsufficientSample,
		}
	}

	p1, p2 := control.PrimaryMetricValue, challenger.PrimaryMetricValue
	n1, n2 := float64(control.SampleSize), float64(challenger.SampleSize)

	pooled := (p1*n1 + p2*n2) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return &models.SignificanceResult{
			IsSignificant: false,
			PValue:        1,
			Confidence:    0,
			Lift:          lift(p1, p2),
		}
	}

	z := (p2 - p1) / se

	// One-sided p-value: small for a challenger well above control, near
	// 1 for a challenger below it.
	var pValue float64
	if z >= 0 {
		pValue = 0.5 * (1 - erfApprox(z))
	} else {
		pValue = 0.5 * (1 + erfApprox(-z))
	}

	result := &models.SignificanceResult{
		PValue:     pValue,
		Confidence: 1 - pValue,
		Lift:       lift(p1, p2),
	}
	result.IsSignificant = pValue < (1 - confidenceLevel)
	if result.IsSignificant {
		result.WinnerVariantID = challenger.VariantID
	}
	return result
}

// lift is the challenger's relative improvement in percent. A zero
// control rate yields +Inf, which report formatting renders as "n/a".
func lift(p1, p2 float64) float64 {
	if p1 == 0 {
		if p2 == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (p2 - p1) / p1 * 100
}
