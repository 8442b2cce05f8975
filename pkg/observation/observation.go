// Package observation maintains the rolling window of interval observations
// that the poll scheduler learns from.
//
// An observation records one historical interval in which the confirmed price
// became available somewhere inside [Start, End] seconds after the interval
// began. The window is a bounded FIFO: once WindowSize observations have been
// recorded, each new observation evicts the oldest.
package observation

// WindowSize is the maximum number of observations retained (N).
const WindowSize = 100

// Cold-start bracket: with no history we assume the confirmed price typically
// lands 15-45 seconds into the interval.
const (
	ColdStartStart = 15.0
	ColdStartEnd   = 45.0
)

// Observation is one historical [start, end] bracket, in seconds elapsed
// since interval start. Immutable once created.
type Observation struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Window is an ordered, bounded sequence of observations.
// Insertion order is arrival order; the oldest entry is evicted first.
type Window struct {
	observations []Observation
}

// NewWindow builds a window from existing observations, keeping only the
// most recent WindowSize entries.
func NewWindow(obs []Observation) Window {
	if len(obs) > WindowSize {
		obs = obs[len(obs)-WindowSize:]
	}
	w := Window{observations: make([]Observation, len(obs))}
	copy(w.observations, obs)
	return w
}

// ColdStart returns a synthetic window of WindowSize copies of the
// conservative {15, 45} bracket.
func ColdStart() Window {
	obs := make([]Observation, WindowSize)
	for i := range obs {
		obs[i] = Observation{Start: ColdStartStart, End: ColdStartEnd}
	}
	return Window{observations: obs}
}

// Append returns a new window with o at the tail, evicting the head if the
// result would exceed WindowSize.
func (w Window) Append(o Observation) Window {
	obs := make([]Observation, 0, len(w.observations)+1)
	obs = append(obs, w.observations...)
	obs = append(obs, o)
	if len(obs) > WindowSize {
		obs = obs[len(obs)-WindowSize:]
	}
	return Window{observations: obs}
}

// Len returns the number of observations in the window.
func (w Window) Len() int { return len(w.observations) }

// Observations returns a copy of the window's contents, oldest first.
func (w Window) Observations() []Observation {
	out := make([]Observation, len(w.observations))
	copy(out, w.observations)
	return out
}

// Last returns the most recent observation, if any.
func (w Window) Last() (Observation, bool) {
	if len(w.observations) == 0 {
		return Observation{}, false
	}
	return w.observations[len(w.observations)-1], true
}
