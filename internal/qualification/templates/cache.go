package templates

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"converzia_backend/internal/qualification/scoring"
	"converzia_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Cache is the TTL-bounded cache collaborator of the repository.
type Cache interface {
	Get(ctx context.Context, key string) (scoring.Template, bool)
	Set(ctx context.Context, key string, tpl scoring.Template)
	Invalidate(ctx context.Context, key string)
}

type memoryEntry struct {
	tpl       scoring.Template
	expiresAt time.Time
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an in-process cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (scoring.Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return scoring.Template{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return scoring.Template{}, false
	}
	return entry.tpl, true
}

func (c *MemoryCache) Set(_ context.Context, key string, tpl scoring.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{tpl: tpl, expiresAt: c.now().Add(c.ttl)}
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// RedisCache shares resolved templates between API and scheduler processes.
// Redis failures degrade to cache misses.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisCache {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (scoring.Template, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("template cache read failed", "key", key, "error", err)
		}
		return scoring.Template{}, false
	}
	var tpl scoring.Template
	if err := json.Unmarshal(raw, &tpl); err != nil {
		c.log.Warn("template cache entry corrupt", "key", key, "error", err)
		return scoring.Template{}, false
	}
	return tpl, true
}

func (c *RedisCache) Set(ctx context.Context, key string, tpl scoring.Template) {
	raw, err := json.Marshal(tpl)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("template cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("template cache invalidate failed", "key", key, "error", err)
	}
}
