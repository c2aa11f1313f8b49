package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// indexPrefix namespaces the per-node sets listing cached reads of a node.
const indexPrefix = "graph:idx:"

// Manager stores graph read responses in Redis. Every stored read is also
// listed under its node so a write to the node can drop them all.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry := new(CacheEntry)
	if err := json.Unmarshal(data, entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return entry, nil
}

// Set stores entry until its Expires time. Expired entries are not stored.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	keyStr := key.String()
	index := indexKey(key.Path)
	_, err = m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyStr, data, ttl)
		pipe.SAdd(ctx, index, keyStr)
		// The index outlives its newest member.
		pipe.ExpireGT(ctx, index, ttl)
		pipe.ExpireNX(ctx, index, ttl)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	keyStr := key.String()
	_, err := m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keyStr)
		pipe.SRem(ctx, indexKey(key.Path), keyStr)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Invalidate drops every cached read of the node that path belongs to,
// including its edges, for all tokens. It returns the number of entries
// removed.
func (m *Manager) Invalidate(ctx context.Context, path string) (int, error) {
	index := indexKey(path)

	keys, err := m.redis.SMembers(ctx, index).Result()
	if err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis smembers: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := m.redis.Del(ctx, append(keys, index)...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis del: %w", err)
	}
	// The index itself is not an entry.
	n := int(removed) - 1
	if n < 0 {
		n = 0
	}
	CacheInvalidations.Add(float64(n))
	return n, nil
}

// UpdateTTL moves the expiry of an existing entry, after a 304 Not Modified
// confirmed the stored body.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}

// indexKey maps a versioned path to its node index, e.g. "v21.0/123/feed"
// to "graph:idx:v21.0/123". Paths without a version segment index on the
// first segment.
func indexKey(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	n := 1
	if len(segments) > 1 && apiVersion(segments[0]) {
		n = 2
	}
	return indexPrefix + strings.Join(segments[:n], "/")
}

func apiVersion(segment string) bool {
	rest, ok := strings.CutPrefix(segment, "v")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
