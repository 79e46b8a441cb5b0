package behavior

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/silentauth/silentauth/internal/metrics"
)

// BaselineCache stores derived baseline profiles keyed by user and sample
// count, so an unchanged history never triggers recomputation. A new sample
// changes the count and naturally invalidates the cached entry.
type BaselineCache interface {
	Get(ctx context.Context, userID string, sampleCount int) (*BaselineProfile, bool)
	Put(ctx context.Context, profile *BaselineProfile)
}

// MemoryCache is a process-local BaselineCache.
type MemoryCache struct {
	mu       sync.RWMutex
	profiles map[string]*BaselineProfile // userID → latest profile
}

// NewMemoryCache creates a process-local baseline cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{profiles: make(map[string]*BaselineProfile)}
}

func (c *MemoryCache) Get(ctx context.Context, userID string, sampleCount int) (*BaselineProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[userID]
	if !ok || p.SampleCount != sampleCount {
		return nil, false
	}
	return p, true
}

func (c *MemoryCache) Put(ctx context.Context, profile *BaselineProfile) {
	if profile == nil {
		return
	}
	c.mu.Lock()
	c.profiles[profile.UserID] = profile
	c.mu.Unlock()
}

// RedisCache is a BaselineCache backed by Redis, for deployments running
// more than one API instance. Entries expire after ttl as a safety net.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed baseline cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func baselineKey(userID string, sampleCount int) string {
	return fmt.Sprintf("silentauth:baseline:%s:%d", userID, sampleCount)
}

func (c *RedisCache) Get(ctx context.Context, userID string, sampleCount int) (*BaselineProfile, bool) {
	data, err := c.client.Get(ctx, baselineKey(userID, sampleCount)).Bytes()
	if err != nil {
		return nil, false
	}
	var p BaselineProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *RedisCache) Put(ctx context.Context, profile *BaselineProfile) {
	if profile == nil {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	// Best-effort: a failed write just means a recompute later
	_ = c.client.Set(ctx, baselineKey(profile.UserID, profile.SampleCount), data, c.ttl).Err()
}

// Provider resolves a user's current baseline, consulting the cache before
// recomputing from the sample history.
type Provider struct {
	store Store
	cache BaselineCache
}

// NewProvider creates a baseline provider. cache may be nil.
func NewProvider(store Store, cache BaselineCache) *Provider {
	return &Provider{store: store, cache: cache}
}

// Baseline returns the user's current baseline profile, or nil when the
// user has insufficient history.
func (p *Provider) Baseline(ctx context.Context, userID string) (*BaselineProfile, error) {
	if p.cache != nil {
		count, err := p.store.CountByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if count < MinSamplesForBaseline {
			return nil, nil
		}
		if cached, ok := p.cache.Get(ctx, userID, count); ok {
			metrics.BaselineCacheHits.Inc()
			return cached, nil
		}
		metrics.BaselineCacheMisses.Inc()
	}

	samples, err := p.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := BuildBaseline(samples)
	if profile != nil && p.cache != nil {
		p.cache.Put(ctx, profile)
	}
	return profile, nil
}
