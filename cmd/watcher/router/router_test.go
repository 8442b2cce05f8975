package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HatiCode/pricewatch/pkg/observation"
	"github.com/HatiCode/pricewatch/pkg/schedule"
	"github.com/HatiCode/pricewatch/pkg/storage"
)

type stubStats struct {
	stats schedule.Stats
}

func (s *stubStats) Stats() schedule.Stats { return s.stats }

func testMux(t *testing.T, store observation.Store) *http.ServeMux {
	t.Helper()

	last := observation.Observation{Start: 12, End: 31}
	stats := &stubStats{stats: schedule.Stats{
		ObservationCount:  100,
		ScheduledPolls:    []float64{60, 120, 180, 240},
		NextPollIndex:     1,
		PollsThisInterval: 2,
		Budget:            20,
		BlendWeight:       0.5,
		LastObservation:   &last,
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return SetupRoutes(stats, store, "site-a", logger)
}

func TestHealthEndpoint(t *testing.T) {
	mux := testMux(t, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestScheduleEndpoint(t *testing.T) {
	mux := testMux(t, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/schedule/current?site=site-a", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Site              string                   `json:"site"`
		ObservationCount  int                      `json:"observationCount"`
		ScheduledPolls    []float64                `json:"scheduledPolls"`
		NextPollIndex     int                      `json:"nextPollIndex"`
		PollsThisInterval int                      `json:"pollsThisInterval"`
		Budget            int                      `json:"budget"`
		BlendWeight       float64                  `json:"blendWeight"`
		LastObservation   *observation.Observation `json:"lastObservation"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Site != "site-a" {
		t.Errorf("site = %q, want %q", resp.Site, "site-a")
	}
	if resp.ObservationCount != 100 {
		t.Errorf("observationCount = %d, want 100", resp.ObservationCount)
	}
	if len(resp.ScheduledPolls) != 4 || resp.ScheduledPolls[0] != 60 {
		t.Errorf("scheduledPolls = %v", resp.ScheduledPolls)
	}
	if resp.Budget != 20 || resp.BlendWeight != 0.5 {
		t.Errorf("budget = %d, blendWeight = %v", resp.Budget, resp.BlendWeight)
	}
}

func TestScheduleEndpoint_SiteValidation(t *testing.T) {
	mux := testMux(t, storage.NewMemoryStore())

	tests := []struct {
		name string
		url  string
		want int
	}{
		{name: "missing site", url: "/schedule/current", want: http.StatusBadRequest},
		{name: "invalid site", url: "/schedule/current?site=bad%20site", want: http.StatusBadRequest},
		{name: "unmonitored site", url: "/schedule/current?site=site-b", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestObservationsEndpoint(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Put(context.Background(), "site-a", []observation.Observation{
		{Start: 15, End: 45},
		{Start: 18, End: 22},
	})
	mux := testMux(t, store)

	req := httptest.NewRequest(http.MethodGet, "/observations?site=site-a", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Site         string                    `json:"site"`
		Count        int                       `json:"count"`
		Observations []observation.Observation `json:"observations"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
	if resp.Observations[1].Start != 18 {
		t.Errorf("observations[1] = %+v, want {18 22}", resp.Observations[1])
	}
}

func TestObservationsEndpoint_NothingPersisted(t *testing.T) {
	mux := testMux(t, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/observations?site=site-a", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := testMux(t, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
