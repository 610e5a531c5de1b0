package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// cacheEntry holds a cached fetch result with its creation timestamp.
type cacheEntry struct {
	result    *FetchResult
	createdAt time.Time
}

// ResponseCache is an in-memory response cache keyed by URL, shared across
// all callers of a backend. It is safe for concurrent use.
type ResponseCache struct {
	mu         sync.RWMutex
	store      map[string]*cacheEntry
	maxEntries int
}

// NewResponseCache creates a ResponseCache with the given capacity. A
// background goroutine evicts entries older than 1 hour every 5 minutes.
func NewResponseCache(maxEntries int) *ResponseCache {
	c := &ResponseCache{
		store:      make(map[string]*cacheEntry),
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// key hashes the URL into a fixed-size cache key.
func (c *ResponseCache) key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

// Get retrieves a cached result younger than maxAge.
func (c *ResponseCache) Get(url string, maxAge time.Duration) (*FetchResult, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[c.key(url)]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > maxAge {
		return nil, false
	}
	return e.result, true
}

// Set stores a result. At capacity, a random entry is evicted to make room
// (map iteration order is random in Go).
func (c *ResponseCache) Set(url string, result *FetchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[c.key(url)] = &cacheEntry{result: result, createdAt: time.Now()}
}

func (c *ResponseCache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}

// CachedEngine decorates a backend with the shared response cache. The cache
// is consulted only when the request allows it (UseCache with a positive
// CacheTTL); retry attempts after a failure pass UseCache=false so a failed
// cached response is never re-served.
type CachedEngine struct {
	inner Engine
	cache *ResponseCache
}

// WithCache wraps an engine with the shared response cache.
func WithCache(inner Engine, cache *ResponseCache) *CachedEngine {
	return &CachedEngine{inner: inner, cache: cache}
}

func (e *CachedEngine) Name() string { return e.inner.Name() }

func (e *CachedEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.UseCache && req.CacheTTL > 0 {
		if cached, hit := e.cache.Get(req.URL, req.CacheTTL); hit {
			slog.Debug("response cache hit", "url", req.URL, "engine", e.inner.Name())
			cp := *cached
			cp.Cached = true
			return &cp, nil
		}
	}

	result, err := e.inner.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	e.cache.Set(req.URL, result)
	return result, nil
}
