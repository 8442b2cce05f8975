// Package main implements the watcher's polling loop.
//
// The manager drives the poll scheduler once per tick:
//
//	interval boundary → StartInterval + estimate poll
//	tick              → ShouldPollForConfirmed → poll → record result
//
// Every response's rate-limit headers feed back into the scheduler's budget,
// and a confirmation closes the interval's observation bracket, which the
// observation log persists in the background.
package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/HatiCode/pricewatch/cmd/watcher/metrics"
	"github.com/HatiCode/pricewatch/pkg/amber"
	"github.com/HatiCode/pricewatch/pkg/schedule"
)

// PriceSource is the poll transport the manager drives.
type PriceSource interface {
	CurrentPrice(ctx context.Context, site string) (amber.Price, amber.Info, bool, error)
}

// Manager owns the per-site polling state machine.
type Manager struct {
	site           string
	client         PriceSource
	scheduler      *schedule.Scheduler
	backoff        *amber.Backoff
	logger         *slog.Logger
	metrics        *metrics.Metrics
	intervalLength time.Duration

	now func() time.Time

	mu                   sync.Mutex
	currentIntervalStart time.Time
	hasConfirmedPrice    bool
	firstIntervalAfterUp bool
	lastPrice            *amber.Price
}

// NewManager creates a Manager.
func NewManager(
	site string,
	client PriceSource,
	scheduler *schedule.Scheduler,
	backoff *amber.Backoff,
	intervalLength time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		site:                 site,
		client:               client,
		scheduler:            scheduler,
		backoff:              backoff,
		logger:               logger,
		metrics:              m,
		intervalLength:       intervalLength,
		now:                  time.Now,
		firstIntervalAfterUp: true,
	}
}

// Run executes the polling loop at the given tick resolution.
// Blocks until the context is canceled.
func (m *Manager) Run(ctx context.Context, tick time.Duration) error {
	m.logger.Info("starting polling loop", "site", m.site, "tick", tick, "interval_length", m.intervalLength)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	m.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("polling loop stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick performs one scheduling decision and, when due, one poll.
// Exported for testing purposes.
func (m *Manager) Tick(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	intervalStart := now.Truncate(m.intervalLength)

	if !intervalStart.Equal(m.currentIntervalStart) {
		m.startInterval(ctx, now, intervalStart)
		return
	}

	if m.hasConfirmedPrice {
		return
	}

	if m.backoff.Limited(now) {
		return
	}

	elapsed := now.Sub(m.currentIntervalStart).Seconds()
	if !m.scheduler.ShouldPollForConfirmed(elapsed) {
		return
	}

	m.poll(ctx, now)
}

// startInterval rolls the state machine into a new interval and spends the
// first poll on the opening estimate.
func (m *Manager) startInterval(ctx context.Context, now time.Time, intervalStart time.Time) {
	wasFirst := m.currentIntervalStart.IsZero()
	if !wasFirst {
		m.firstIntervalAfterUp = false
	}

	m.currentIntervalStart = intervalStart
	m.hasConfirmedPrice = false
	m.scheduler.StartInterval()

	st := m.scheduler.Stats()
	m.logger.Debug("new interval started",
		"interval_start", intervalStart.Format(time.TimeOnly),
		"scheduled_polls", st.ScheduledPolls,
		"budget", st.Budget,
	)

	if m.backoff.Limited(now) {
		m.logger.Debug("skipping opening poll, rate limit backoff active", "until", m.backoff.Until().Format(time.TimeOnly))
		return
	}

	m.poll(ctx, now)
}

// poll makes one API request and feeds the outcome back into the scheduler.
func (m *Manager) poll(ctx context.Context, now time.Time) {
	start := m.now()
	price, info, infoOK, err := m.client.CurrentPrice(ctx, m.site)
	duration := m.now().Sub(start)

	elapsed := now.Sub(m.currentIntervalStart).Seconds()

	if infoOK {
		m.scheduler.UpdateBudget(info.Remaining, elapsed, info.ResetSeconds)
		if m.metrics != nil {
			m.metrics.SetBudgetRemaining(info.Remaining)
			m.metrics.SetBlendWeight(schedule.BlendWeight(info.Remaining))
		}
	}

	if err != nil {
		var rlErr *amber.RateLimitedError
		if errors.As(err, &rlErr) {
			until := m.backoff.RecordRateLimit(now, rlErr.ResetAt)
			if m.metrics != nil {
				m.metrics.RecordPoll(duration.Seconds(), "rate_limited")
			}
			m.logger.Warn("poll rate limited", "site", m.site, "until", until.Format(time.TimeOnly))
			return
		}

		if m.metrics != nil {
			m.metrics.RecordPoll(duration.Seconds(), "error")
			m.metrics.RecordError("client", "poll_failed")
		}
		m.logger.Error("poll failed", "site", m.site, "error", err)
		return
	}

	m.backoff.RecordSuccess()
	m.lastPrice = &price

	if price.Estimate {
		m.scheduler.MarkEstimate(elapsed)
		if m.metrics != nil {
			m.metrics.RecordPoll(duration.Seconds(), "estimate")
		}
		m.logger.Debug("estimate received",
			"site", m.site,
			"per_kwh", price.PerKwh,
			"elapsed", elapsed,
		)
		return
	}

	m.hasConfirmedPrice = true

	// The first interval after startup has no trustworthy estimate bracket:
	// the process may have come up mid-interval.
	if !m.firstIntervalAfterUp {
		m.scheduler.RecordConfirmed(elapsed)
	} else {
		m.logger.Debug("skipping observation on first interval after startup")
	}

	if m.metrics != nil {
		m.metrics.RecordPoll(duration.Seconds(), "confirmed")
		m.metrics.RecordDetectionDelay(elapsed)
		m.metrics.SetObservationCount(m.scheduler.Stats().ObservationCount)
	}

	m.logger.Info("confirmed price detected",
		"site", m.site,
		"per_kwh", price.PerKwh,
		"elapsed", elapsed,
	)
}

// Stats returns the scheduler's diagnostic snapshot. Safe for concurrent
// use with the polling loop.
func (m *Manager) Stats() schedule.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduler.Stats()
}

// LastPrice returns the most recently fetched price, if any.
func (m *Manager) LastPrice() (amber.Price, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastPrice == nil {
		return amber.Price{}, false
	}
	return *m.lastPrice, true
}
