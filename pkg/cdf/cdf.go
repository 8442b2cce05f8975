// Package cdf builds piecewise-linear empirical CDFs over elapsed
// seconds-in-interval from historical observations, and inverts them for
// quantile sampling.
//
// Each observation [start, end] is modeled as a uniform distribution of total
// mass 1 across its own bracket. The empirical CDF is the average of the
// per-observation CDFs evaluated on the merged grid of all bracket endpoints
// plus the domain bounds, which makes the cumulative curve continuous and
// piecewise linear between knots.
package cdf

import (
	"math"
	"sort"

	"github.com/HatiCode/pricewatch/pkg/observation"
)

// Piecewise is a piecewise-linear CDF: ascending time knots with
// non-decreasing cumulative probabilities, probs[0] == 0 and
// probs[last] == 1.
type Piecewise struct {
	times []float64
	probs []float64
}

// Build constructs the empirical CDF from a set of observations over the
// domain [0, intervalLength].
//
// A degenerate observation (end == start) contributes a step at that
// instant: zero mass before it, full mass at and after it. When the
// resulting curve has no rise at all (for example a single point
// observation at 0), Build falls back to a uniform CDF over the domain.
func Build(obs []observation.Observation, intervalLength float64) Piecewise {
	if intervalLength <= 0 {
		intervalLength = 300
	}
	if len(obs) == 0 {
		return Uniform(0, intervalLength)
	}

	times := buildGrid(obs, intervalLength)

	probs := make([]float64, len(times))
	for i, t := range times {
		var sum float64
		for _, o := range obs {
			sum += massAt(o, t)
		}
		probs[i] = sum / float64(len(obs))
	}

	// Normalize so F(0) = 0 and F(L) = 1. Subtracting F(0) drops any step
	// mass sitting exactly at t=0 (a point observation at the domain
	// boundary): an instant already elapsed when the interval starts
	// carries no scheduling information. A flat curve carries no timing
	// information either and degrades to uniform coverage.
	lo, hi := probs[0], probs[len(probs)-1]
	if hi-lo <= 0 {
		return Uniform(0, intervalLength)
	}
	for i := range probs {
		probs[i] = (probs[i] - lo) / (hi - lo)
	}

	return Piecewise{times: times, probs: probs}
}

// Uniform returns the closed-form linear CDF over [start, end].
func Uniform(start, end float64) Piecewise {
	if end <= start {
		end = start + 1
	}
	return Piecewise{
		times: []float64{start, end},
		probs: []float64{0, 1},
	}
}

// massAt returns the fraction of observation o's mass at or before time t.
func massAt(o observation.Observation, t float64) float64 {
	width := o.End - o.Start
	if width <= 0 {
		// Point observation: step at o.Start.
		if t >= o.Start {
			return 1
		}
		return 0
	}
	f := (t - o.Start) / width
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// buildGrid collects the distinct bracket endpoints plus the domain bounds
// into an ascending grid.
func buildGrid(obs []observation.Observation, intervalLength float64) []float64 {
	seen := make(map[float64]struct{}, 2*len(obs)+2)
	seen[0] = struct{}{}
	seen[intervalLength] = struct{}{}
	for _, o := range obs {
		seen[o.Start] = struct{}{}
		seen[o.End] = struct{}{}
		if o.End <= o.Start && o.Start > 0 {
			// A point observation is a step. Pin a knot immediately below
			// the instant so the rise is confined to an infinitesimally
			// narrow segment instead of smearing across the preceding one.
			seen[math.Nextafter(o.Start, 0)] = struct{}{}
		}
	}

	times := make([]float64, 0, len(seen))
	for t := range seen {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

// At evaluates F(t) by linear interpolation, clamping outside the knot range.
func (c Piecewise) At(t float64) float64 {
	n := len(c.times)
	if n == 0 {
		return 0
	}
	if t <= c.times[0] {
		return c.probs[0]
	}
	if t >= c.times[n-1] {
		return c.probs[n-1]
	}

	j := sort.SearchFloat64s(c.times, t)
	if c.times[j] == t {
		return c.probs[j]
	}
	t0, t1 := c.times[j-1], c.times[j]
	p0, p1 := c.probs[j-1], c.probs[j]
	return p0 + (t-t0)/(t1-t0)*(p1-p0)
}

// Invert returns the time at cumulative probability p by bracketing the
// knot segment with F(t_j) <= p <= F(t_j+1) and interpolating linearly.
// When multiple knots share the same cumulative probability (a flat
// segment), the leftmost knot time is returned.
func (c Piecewise) Invert(p float64) float64 {
	n := len(c.times)
	if n == 0 {
		return 0
	}
	if p <= c.probs[0] {
		return c.times[0]
	}
	if p >= c.probs[n-1] {
		// Leftmost knot that reaches the final probability.
		for j := 0; j < n; j++ {
			if c.probs[j] >= c.probs[n-1] {
				return c.times[j]
			}
		}
		return c.times[n-1]
	}

	j := sort.SearchFloat64s(c.probs, p)
	// probs[j-1] < p <= probs[j] after the boundary checks above.
	p0, p1 := c.probs[j-1], c.probs[j]
	if p1-p0 <= 0 {
		return c.times[j-1]
	}
	t0, t1 := c.times[j-1], c.times[j]
	return t0 + (p-p0)/(p1-p0)*(t1-t0)
}

// Knots returns copies of the knot coordinates, for diagnostics.
func (c Piecewise) Knots() (times, probs []float64) {
	times = make([]float64, len(c.times))
	probs = make([]float64, len(c.probs))
	copy(times, c.times)
	copy(probs, c.probs)
	return times, probs
}
