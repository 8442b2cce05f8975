// Package storage provides observation window persistence implementations.
//
// Both stores implement observation.Store: the watcher persists the rolling
// window after each confirmation and reloads it on startup so the learned
// arrival-time distribution survives restarts.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/HatiCode/pricewatch/pkg/observation"
)

// MemoryStore implements an in-memory observation store.
// It is safe for concurrent use by multiple goroutines.
//
// MemoryStore keeps the latest window per site in a map. It is the default
// backend for single-instance deployments; use RedisStore when windows must
// survive process restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string][]observation.Observation
}

// NewMemoryStore creates a new in-memory observation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string][]observation.Observation),
	}
}

// Put stores the observation window for a site, replacing any existing one.
//
// Returns an error if the site name is empty or the context is canceled.
// This operation is safe for concurrent use.
func (s *MemoryStore) Put(ctx context.Context, site string, obs []observation.Observation) error {
	if site == "" {
		return errors.New("site name cannot be empty")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stored := make([]observation.Observation, len(obs))
	copy(stored, obs)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[site] = stored
	return nil
}

// GetLatest retrieves the stored observation window for a site.
//
// Returns:
//   - obs: The stored window (nil if not found)
//   - found: true if a window exists for this site, false otherwise
//   - error: Context error if context is canceled, nil otherwise
//
// This operation is safe for concurrent use.
func (s *MemoryStore) GetLatest(ctx context.Context, site string) ([]observation.Observation, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, found := s.windows[site]
	if !found {
		return nil, false, nil
	}

	obs := make([]observation.Observation, len(stored))
	copy(obs, stored)
	return obs, true, nil
}

// Len returns the number of sites with a stored window.
// This method is primarily useful for testing and metrics.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows)
}

// Delete removes the stored window for a site.
// Returns true if a window was deleted, false if none existed.
func (s *MemoryStore) Delete(site string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.windows[site]
	delete(s.windows, site)
	return existed
}
