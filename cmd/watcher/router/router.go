// Package router configures HTTP routes for the watcher's diagnostics API.
//
// Routes configured:
//   - GET /schedule/current?site=<name> - Current poll schedule and scheduler stats
//   - GET /observations?site=<name> - Persisted observation window
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// The schedule endpoint reports the scheduler's diagnostic snapshot:
// observation count, scheduled poll times, cursor position, budget, and
// blend weight. The observations endpoint reads the persisted window back
// from the store.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/pricewatch/pkg/httpx"
	"github.com/HatiCode/pricewatch/pkg/observation"
	"github.com/HatiCode/pricewatch/pkg/schedule"
)

var siteNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// StatsSource provides the scheduler's diagnostic snapshot.
type StatsSource interface {
	Stats() schedule.Stats
}

// SetupRoutes configures HTTP endpoints for the watcher. site is the site
// this instance monitors; requests for other sites get a 404.
func SetupRoutes(stats StatsSource, store observation.Store, site string, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.HandleFunc("/schedule/current", handleGetSchedule(stats, site))
	mux.HandleFunc("/observations", handleGetObservations(store, site, logger))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func requestedSite(r *http.Request, w http.ResponseWriter, monitored string) (string, bool) {
	site := r.URL.Query().Get("site")
	if site == "" {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "site parameter required")
		return "", false
	}
	if !siteNameRegex.MatchString(site) {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid site name format")
		return "", false
	}
	if site != monitored {
		httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("site %q is not monitored by this instance", site))
		return "", false
	}
	return site, true
}

// handleGetSchedule returns a handler for GET /schedule/current?site=<name>.
func handleGetSchedule(stats StatsSource, monitored string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site, ok := requestedSite(r, w, monitored)
		if !ok {
			return
		}

		st := stats.Stats()
		resp := map[string]any{
			"site":              site,
			"observationCount":  st.ObservationCount,
			"scheduledPolls":    st.ScheduledPolls,
			"nextPollIndex":     st.NextPollIndex,
			"pollsThisInterval": st.PollsThisInterval,
			"budget":            st.Budget,
			"blendWeight":       st.BlendWeight,
		}
		if st.LastObservation != nil {
			resp["lastObservation"] = st.LastObservation
		}

		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			slog.Error("failed to write JSON response", "error", err)
		}
	}
}

// handleGetObservations returns a handler for GET /observations?site=<name>.
func handleGetObservations(store observation.Store, monitored string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site, ok := requestedSite(r, w, monitored)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		obs, found, err := store.GetLatest(ctx, site)
		if err != nil {
			logger.Error("failed to get observations", "site", site, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("no observations persisted for site %q", site))
			return
		}

		resp := map[string]any{
			"site":         site,
			"count":        len(obs),
			"observations": obs,
		}

		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
