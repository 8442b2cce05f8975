package schedule

import (
	"context"
	"log/slog"

	"github.com/HatiCode/pricewatch/pkg/cdf"
	"github.com/HatiCode/pricewatch/pkg/observation"
)

// DefaultIntervalLength is the price interval length in seconds.
const DefaultIntervalLength = 300.0

// Scheduler owns the per-site scheduling state: the observation window, the
// current interval's scheduled poll times, and the cursor over them.
//
// It is single-threaded by contract: one owning caller drives it through
// StartInterval, ShouldPollForConfirmed, UpdateBudget and the record
// methods. Nothing here blocks; persistence of new observations happens in
// the background through the observation log.
type Scheduler struct {
	log            *observation.Log
	logger         *slog.Logger
	intervalLength float64

	window observation.Window
	curve  cdf.Piecewise
	stale  bool

	budget       int
	resetSeconds float64

	scheduled []float64
	cursor    int

	pollsThisInterval   int
	lastEstimateElapsed float64
	haveEstimate        bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithIntervalLength overrides the interval length in seconds.
func WithIntervalLength(seconds float64) Option {
	return func(s *Scheduler) {
		if seconds > 0 {
			s.intervalLength = seconds
		}
	}
}

// WithBudget sets the initial poll budget used before any rate-limit
// information has been seen.
func WithBudget(k int) Option {
	return func(s *Scheduler) {
		if k >= 0 {
			s.budget = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scheduler, loading the observation window (or its cold-start
// fallback) from the log.
func New(ctx context.Context, log *observation.Log, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:            log,
		logger:         slog.Default(),
		intervalLength: DefaultIntervalLength,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.window = log.Load(ctx)
	s.resetSeconds = s.intervalLength
	s.stale = true
	return s
}

// StartInterval resets per-interval state and computes the poll schedule for
// the new interval using the budget and reset horizon currently known.
// Must be called before ShouldPollForConfirmed in each interval's timeline.
func (s *Scheduler) StartInterval() {
	s.cursor = 0
	s.pollsThisInterval = 0
	s.haveEstimate = false
	s.lastEstimateElapsed = 0

	s.scheduled = Compute(s.cdf(), s.budget, 0, s.resetSeconds)

	s.logger.Debug("interval started",
		"budget", s.budget,
		"scheduled_polls", len(s.scheduled),
		"blend_weight", BlendWeight(s.budget),
	)
}

// UpdateBudget replaces the remaining schedule with a fresh forward-looking
// one computed from the new budget and reset horizon. Already-consumed polls
// stay counted; the new schedule is the single source of truth for "next
// poll time".
func (s *Scheduler) UpdateBudget(k int, elapsed float64, resetSeconds int) {
	s.budget = k
	s.resetSeconds = float64(resetSeconds)

	s.scheduled = Compute(s.cdf(), k, elapsed, s.resetSeconds)
	s.cursor = 0

	s.logger.Debug("budget updated",
		"budget", k,
		"elapsed", elapsed,
		"reset_seconds", resetSeconds,
		"scheduled_polls", len(s.scheduled),
	)
}

// ShouldPollForConfirmed reports whether a scheduled poll moment has been
// reached. On a true result the cursor advances past every scheduled time
// <= elapsed, so duplicate or already-passed entries are consumed together
// and the same moment is never reported twice within an interval.
func (s *Scheduler) ShouldPollForConfirmed(elapsed float64) bool {
	if s.cursor >= len(s.scheduled) {
		return false
	}
	if s.scheduled[s.cursor] > elapsed {
		return false
	}
	for s.cursor < len(s.scheduled) && s.scheduled[s.cursor] <= elapsed {
		s.cursor++
	}
	s.pollsThisInterval++
	return true
}

// NextPollDelay returns the seconds until the next scheduled poll, or false
// when nothing further is scheduled. A due or overdue poll reports zero.
func (s *Scheduler) NextPollDelay(elapsed float64) (float64, bool) {
	if s.cursor >= len(s.scheduled) {
		return 0, false
	}
	delay := s.scheduled[s.cursor] - elapsed
	if delay < 0 {
		delay = 0
	}
	return delay, true
}

// MarkEstimate records the elapsed time of the latest poll that still
// returned an estimate. It becomes the start of the observation bracket
// built on confirmation.
func (s *Scheduler) MarkEstimate(elapsed float64) {
	s.lastEstimateElapsed = elapsed
	s.haveEstimate = true
}

// RecordConfirmed records the confirmation moment, closing the bracket
// opened by the last estimate. Without a preceding estimate in this
// interval there is no bracket to record.
func (s *Scheduler) RecordConfirmed(elapsed float64) {
	if !s.haveEstimate {
		s.logger.Debug("confirmed without prior estimate, skipping observation", "elapsed", elapsed)
		return
	}
	s.RecordObservation(s.lastEstimateElapsed, elapsed)
}

// RecordObservation appends a [start, end] bracket to the observation log
// and invalidates the cached CDF. Brackets with start >= end carry no
// information and are ignored.
func (s *Scheduler) RecordObservation(start, end float64) {
	if start >= end {
		return
	}

	s.window = s.log.Append(s.window, observation.Observation{Start: start, End: end})
	s.stale = true

	s.logger.Debug("observation recorded",
		"start", start,
		"end", end,
		"window_size", s.window.Len(),
	)
}

// Stats is a read-only diagnostic snapshot of the scheduler state.
type Stats struct {
	ObservationCount  int                      `json:"observationCount"`
	ScheduledPolls    []float64                `json:"scheduledPolls"`
	NextPollIndex     int                      `json:"nextPollIndex"`
	PollsThisInterval int                      `json:"pollsThisInterval"`
	Budget            int                      `json:"budget"`
	BlendWeight       float64                  `json:"blendWeight"`
	LastObservation   *observation.Observation `json:"lastObservation,omitempty"`
}

// Stats returns current diagnostics. No behavioral contract beyond
// read-only reporting.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		ObservationCount:  s.window.Len(),
		ScheduledPolls:    append([]float64(nil), s.scheduled...),
		NextPollIndex:     s.cursor,
		PollsThisInterval: s.pollsThisInterval,
		Budget:            s.budget,
		BlendWeight:       BlendWeight(s.budget),
	}
	if last, ok := s.window.Last(); ok {
		st.LastObservation = &last
	}
	return st
}

// cdf returns the empirical CDF for the current window, rebuilding it only
// when the window has changed.
func (s *Scheduler) cdf() cdf.Piecewise {
	if s.stale {
		s.curve = cdf.Build(s.window.Observations(), s.intervalLength)
		s.stale = false
	}
	return s.curve
}
