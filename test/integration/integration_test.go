//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/HatiCode/pricewatch/pkg/observation"
	"github.com/HatiCode/pricewatch/pkg/storage"
)

// TestRedisStoreRoundTrip exercises the Redis-backed observation store
// against a real Redis container: the learned window must survive a store
// reconnect the same way it survives a watcher restart.
func TestRedisStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	defer container.Terminate(ctx)

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get redis endpoint: %v", err)
	}

	store, err := storage.NewRedisStore(endpoint, "", 0, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create redis store: %v", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	site := "integration-site"
	window := observation.ColdStart().Append(observation.Observation{Start: 18, End: 22})

	t.Run("PutAndGetLatest", func(t *testing.T) {
		if err := store.Put(ctx, site, window.Observations()); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, found, err := store.GetLatest(ctx, site)
		if err != nil {
			t.Fatalf("GetLatest failed: %v", err)
		}
		if !found {
			t.Fatal("GetLatest reported not found after Put")
		}
		if len(got) != observation.WindowSize {
			t.Fatalf("got %d observations, want %d", len(got), observation.WindowSize)
		}
		last := got[len(got)-1]
		if last.Start != 18 || last.End != 22 {
			t.Errorf("last observation = %+v, want {18 22}", last)
		}
	})

	t.Run("GetLatest_UnknownSite", func(t *testing.T) {
		_, found, err := store.GetLatest(ctx, "never-written")
		if err != nil {
			t.Fatalf("GetLatest failed: %v", err)
		}
		if found {
			t.Error("GetLatest reported found for a site never written")
		}
	})

	t.Run("SurvivesReconnect", func(t *testing.T) {
		// A fresh store against the same Redis sees the same window, the
		// way a restarted watcher does on startup.
		second, err := storage.NewRedisStore(endpoint, "", 0, time.Hour)
		if err != nil {
			t.Fatalf("Failed to create second redis store: %v", err)
		}
		defer second.Close()

		got, found, err := second.GetLatest(ctx, site)
		if err != nil {
			t.Fatalf("GetLatest failed: %v", err)
		}
		if !found {
			t.Fatal("window did not survive reconnect")
		}
		if len(got) != observation.WindowSize {
			t.Errorf("got %d observations, want %d", len(got), observation.WindowSize)
		}
	})

	t.Run("LogLoadsPersistedWindow", func(t *testing.T) {
		log := observation.NewLog(store, site, nil)
		w := log.Load(ctx)

		if w.Len() != observation.WindowSize {
			t.Fatalf("loaded window length = %d, want %d", w.Len(), observation.WindowSize)
		}
		last, ok := w.Last()
		if !ok || last.Start != 18 {
			t.Errorf("last observation = %+v, want {18 22}", last)
		}
	})
}
