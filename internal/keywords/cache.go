package keywords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/metrics"
	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
)

// Cache stores lookup results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]Metric, bool, error)
	Set(ctx context.Context, key string, value []Metric, ttl time.Duration) error
}

// CacheKey identifies a lookup by locale and the sorted, lower-cased seeds.
func CacheKey(seeds []string, locale siteinfo.Locale) string {
	norm := make([]string, 0, len(seeds))
	for _, s := range seeds {
		norm = append(norm, strings.ToLower(strings.TrimSpace(s)))
	}
	slices.Sort(norm)
	return "kw:" + strconv.Itoa(locale.LocationCode) + ":" + locale.Language + ":" + strings.Join(norm, "|")
}

// CachedLookup serves repeated lookups from a cache. Cache errors are
// logged and treated as misses.
type CachedLookup struct {
	next   Lookup
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLookup wraps next with cache.
func NewCachedLookup(next Lookup, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLookup{next: next, cache: cache, ttl: ttl, logger: logger.Named("keywords_cache")}
}

// Configured implements Lookup.
func (c *CachedLookup) Configured() bool {
	return c.next != nil && c.next.Configured()
}

// Lookup implements Lookup.
func (c *CachedLookup) Lookup(ctx context.Context, seeds []string, locale siteinfo.Locale, timeout time.Duration) ([]Metric, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	key := CacheKey(seeds, locale)
	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("keyword cache read failed", zap.Error(err))
	} else if ok {
		metrics.ObserveKeywordCache("hit")
		return cached, nil
	}
	metrics.ObserveKeywordCache("miss")

	result, err := c.next.Lookup(ctx, seeds, locale, timeout)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
		c.logger.Warn("keyword cache write failed", zap.Error(err))
	}
	return result, nil
}

var _ Lookup = (*CachedLookup)(nil)

type memoryEntry struct {
	value   []Metric
	expires time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	clock   plan.Clock
	entries map[string]memoryEntry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache(clock plan.Clock) *MemoryCache {
	return &MemoryCache{clock: clock, entries: make(map[string]memoryEntry)}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) ([]Metric, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.clock.Now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

// Set implements Cache. A non-positive ttl never expires.
func (m *MemoryCache) Set(_ context.Context, key string, value []Metric, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expires time.Time
	if ttl > 0 {
		expires = m.clock.Now().Add(ttl)
	}
	m.entries[key] = memoryEntry{value: slices.Clone(value), expires: expires}
	return nil
}

type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache stores lookups as JSON strings in Redis.
type RedisCache struct {
	rdb    redisCmdable
	prefix string
}

// NewRedisCache wraps a go-redis client.
func NewRedisCache(rdb redisCmdable, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]Metric, bool, error) {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var out []Metric
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false, fmt.Errorf("decode cached metrics: %w", err)
	}
	return out, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, value []Metric, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rdb.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
