package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HatiCode/pricewatch/pkg/observation"
)

// RedisStore implements observation.Store using Redis as a backend.
// It lets the learned observation window survive restarts and be shared by
// a standby instance.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
}

// storedWindow is the persisted JSON document.
type storedWindow struct {
	SavedAt      time.Time                 `json:"savedAt"`
	Observations []observation.Observation `json:"observations"`
}

// NewRedisStore creates a new Redis-backed observation store.
//
// Parameters:
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string for no auth)
//   - db: Redis database number (typically 0)
//   - ttl: Window expiration duration (0 means no expiration)
//
// Returns an error if the connection to Redis fails or if parameters are invalid.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

// conn returns the client, or an error once the store has been closed.
// Background persists still in flight at shutdown get the error instead of
// a nil dereference; the observation log absorbs it.
func (r *RedisStore) conn() (*redis.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.client == nil {
		return nil, errors.New("redis store is closed")
	}
	return r.client, nil
}

// Put stores the observation window for a site.
// The key format is "pricewatch:observations:{site}".
func (r *RedisStore) Put(ctx context.Context, site string, obs []observation.Observation) error {
	if err := validateSite(site); err != nil {
		return err
	}

	client, err := r.conn()
	if err != nil {
		return err
	}

	doc := storedWindow{
		SavedAt:      time.Now().UTC(),
		Observations: obs,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal observations: %w", err)
	}

	key := observationKey(site)

	if err := client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store observations in redis: %w", err)
	}

	return nil
}

// GetLatest retrieves the stored observation window for a site.
//
// Returns:
//   - obs: The stored window (nil if not found)
//   - found: true if a window exists, false if not found
//   - error: non-nil if an error occurred (excluding "not found")
func (r *RedisStore) GetLatest(ctx context.Context, site string) ([]observation.Observation, bool, error) {
	if err := validateSite(site); err != nil {
		return nil, false, err
	}

	client, err := r.conn()
	if err != nil {
		return nil, false, err
	}

	key := observationKey(site)

	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get observations from redis: %w", err)
	}

	var doc storedWindow
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal observations: %w", err)
	}

	return doc.Observations, true, nil
}

// Close closes the Redis client connection.
// It is safe to call multiple times (idempotent).
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if err != nil && err.Error() == "redis: client is closed" {
		return nil
	}

	return err
}

// Ping checks the Redis connection health.
// Returns an error if the connection is unavailable.
func (r *RedisStore) Ping(ctx context.Context) error {
	client, err := r.conn()
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

func observationKey(site string) string {
	return fmt.Sprintf("pricewatch:observations:%s", site)
}

func validateSite(site string) error {
	if site == "" {
		return errors.New("site name required")
	}
	for _, c := range site {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("invalid site name %q: only alphanumeric, hyphens, and underscores allowed", site)
		}
	}
	return nil
}
