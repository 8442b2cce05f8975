package observation

import (
	"context"
	"log/slog"
	"time"
)

// persistTimeout bounds each background save so a wedged store cannot pile
// up goroutines indefinitely.
const persistTimeout = 5 * time.Second

// Store persists observation windows per site.
//
// Implementations live in pkg/storage (memory, redis). Load failures and
// save failures are treated as recoverable by the Log: scheduling must
// never depend on the store being healthy.
type Store interface {
	// Put replaces the persisted window for a site.
	Put(ctx context.Context, site string, obs []Observation) error

	// GetLatest returns the persisted window for a site.
	// found is false when nothing has been persisted yet.
	GetLatest(ctx context.Context, site string) ([]Observation, bool, error)
}

// Log is the append/load front of the observation window for one site.
//
// Append triggers a fire-and-forget persist: the scheduling decision path
// never waits on the store, and a failed save costs at most one observation
// of learning, not correctness.
type Log struct {
	store  Store
	site   string
	logger *slog.Logger
}

// NewLog creates a Log bound to a store and site.
func NewLog(store Store, site string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{store: store, site: site, logger: logger}
}

// Load returns the persisted window, or the synthetic cold-start window when
// nothing is persisted or the load fails.
func (l *Log) Load(ctx context.Context) Window {
	obs, found, err := l.store.GetLatest(ctx, l.site)
	if err != nil {
		l.logger.Warn("observation load failed, using cold start", "site", l.site, "error", err)
		return ColdStart()
	}
	if !found || len(obs) == 0 {
		l.logger.Debug("no persisted observations, using cold start", "site", l.site)
		return ColdStart()
	}
	return NewWindow(obs)
}

// Append adds o to the window and returns the result for immediate use.
// The resulting window is persisted in the background.
func (l *Log) Append(w Window, o Observation) Window {
	next := w.Append(o)
	l.persist(next.Observations())
	return next
}

func (l *Log) persist(obs []Observation) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := l.store.Put(ctx, l.site, obs); err != nil {
			l.logger.Warn("observation persist failed", "site", l.site, "count", len(obs), "error", err)
		}
	}()
}
