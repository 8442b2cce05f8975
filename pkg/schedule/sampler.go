// Package schedule decides when to spend confirmatory polls inside a price
// interval.
//
// The sampler places k polls at the interior quantiles of a blend between
// the learned arrival-time distribution and a uniform distribution over the
// time remaining until the rate-limit quota resets. A healthy budget trusts
// the learned distribution; a scarce one drifts toward even coverage so the
// polls still hedge the whole remaining window.
package schedule

import (
	"sort"

	"github.com/HatiCode/pricewatch/pkg/cdf"
)

// Budget thresholds for the blend ramp. At or above BlendBudgetHigh the
// schedule fully trusts the learned distribution; at or below
// BlendBudgetLow it is fully uniform.
const (
	BlendBudgetHigh = 30
	BlendBudgetLow  = 10
)

// BlendWeight maps the remaining poll budget k to the interpolation factor
// between the targeted and uniform schedules: 0 at k <= 10, 1 at k >= 30,
// linear in between.
func BlendWeight(k int) float64 {
	w := float64(k-BlendBudgetLow) / float64(BlendBudgetHigh-BlendBudgetLow)
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// Compute produces k ascending poll times (seconds elapsed since interval
// start) by inverse-sampling the empirical and uniform CDFs at the same
// quantiles p_j = j/(k+1) and blending the resulting times.
//
// Mid-interval (elapsedNow > 0) the empirical inversion conditions on the
// event not having occurred yet: targets become F(now) + p_j*(1 - F(now)).
// When the learned distribution has no mass left past elapsedNow, the
// uniform times are returned unblended.
//
// Duplicate or near-duplicate times are legal output; the scheduler consumes
// them together on the first matching tick.
func Compute(c cdf.Piecewise, k int, elapsedNow float64, resetSeconds float64) []float64 {
	if k <= 0 {
		return nil
	}
	if elapsedNow < 0 {
		elapsedNow = 0
	}
	if resetSeconds < 0 {
		resetSeconds = 0
	}

	w := BlendWeight(k)

	fNow := 0.0
	if elapsedNow > 0 {
		fNow = c.At(elapsedNow)
	}
	targetedExhausted := fNow >= 1

	times := make([]float64, 0, k)
	for j := 1; j <= k; j++ {
		p := float64(j) / float64(k+1)

		uniform := elapsedNow + p*resetSeconds
		if w == 0 || targetedExhausted {
			times = append(times, uniform)
			continue
		}

		targeted := c.Invert(fNow + p*(1-fNow))
		times = append(times, w*targeted+(1-w)*uniform)
	}

	sort.Float64s(times)
	return times
}
