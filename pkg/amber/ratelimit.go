package amber

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Info carries the rate-limit state parsed from IETF RateLimit response
// headers. The scheduler only consumes Remaining and ResetSeconds; the rest
// is diagnostic.
//
// See: https://datatracker.ietf.org/doc/draft-ietf-httpapi-ratelimit-headers/
type Info struct {
	Limit         int    // maximum requests in the window (ratelimit-limit)
	Remaining     int    // requests remaining in the current window
	ResetSeconds  int    // seconds until the quota resets
	WindowSeconds int    // window size from the policy, when present
	Policy        string // raw policy string, e.g. "50;w=300"
}

// ParseInfo extracts rate-limit information from response headers.
// ok is false when the mandatory headers are missing or malformed.
func ParseInfo(h http.Header) (Info, bool) {
	limit, err1 := strconv.Atoi(strings.TrimSpace(h.Get("ratelimit-limit")))
	remaining, err2 := strconv.Atoi(strings.TrimSpace(h.Get("ratelimit-remaining")))
	reset, err3 := strconv.Atoi(strings.TrimSpace(h.Get("ratelimit-reset")))
	if err1 != nil || err2 != nil || err3 != nil {
		return Info{}, false
	}

	info := Info{
		Limit:        limit,
		Remaining:    remaining,
		ResetSeconds: reset,
		Policy:       h.Get("ratelimit-policy"),
	}
	info.WindowSeconds = parsePolicyWindow(info.Policy)
	return info, true
}

// parsePolicyWindow pulls the w= parameter out of a policy string like
// "50;w=300". Returns 0 when absent.
func parsePolicyWindow(policy string) int {
	for _, part := range strings.Split(policy, ";") {
		part = strings.TrimSpace(part)
		if rest, found := strings.CutPrefix(part, "w="); found {
			if w, err := strconv.Atoi(rest); err == nil {
				return w
			}
		}
	}
	return 0
}

// Backoff defaults.
const (
	defaultInitialBackoff = 10 * time.Second
	defaultMaxBackoff     = 300 * time.Second
	resetBuffer           = 2 * time.Second
)

// Backoff tracks 429 backoff state for the API.
//
// When the API supplies a reset time, that time (plus a small buffer) wins.
// Otherwise the backoff starts at 10s and doubles per consecutive 429,
// capped at 300s. Any success clears it.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	until   time.Time
	logger  *slog.Logger
}

// NewBackoff creates a Backoff with default timings.
func NewBackoff(logger *slog.Logger) *Backoff {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backoff{
		initial: defaultInitialBackoff,
		max:     defaultMaxBackoff,
		logger:  logger,
	}
}

// Limited reports whether calls should be held back at the given time.
func (b *Backoff) Limited(now time.Time) bool {
	return !b.until.IsZero() && now.Before(b.until)
}

// Until returns when the backoff expires (zero time when not limited).
func (b *Backoff) Until() time.Time { return b.until }

// RecordSuccess clears the backoff after any successful call.
func (b *Backoff) RecordSuccess() {
	b.current = 0
	b.until = time.Time{}
}

// RecordRateLimit registers a 429. resetAt is the API-provided quota reset
// time, or zero to fall back to exponential backoff. Returns when the
// limit expires.
func (b *Backoff) RecordRateLimit(now, resetAt time.Time) time.Time {
	switch {
	case !resetAt.IsZero():
		b.until = resetAt.Add(resetBuffer)
		b.current = b.until.Sub(now)
		b.logger.Warn("rate limited (429), waiting for quota reset", "until", b.until.Format(time.TimeOnly))
	case b.current == 0:
		b.current = b.initial
		b.until = now.Add(b.current)
		b.logger.Warn("rate limited (429), backing off", "seconds", int(b.current.Seconds()))
	default:
		b.current *= 2
		if b.current > b.max {
			b.current = b.max
		}
		b.until = now.Add(b.current)
		b.logger.Warn("rate limited (429), backing off exponentially", "seconds", int(b.current.Seconds()))
	}
	return b.until
}

// Current returns the current backoff duration, for diagnostics.
func (b *Backoff) Current() time.Duration { return b.current }
