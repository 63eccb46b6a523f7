package youtube

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "yt:titles:"

// Cache is the JSON key/value store behind CachedSearcher. *redis.Client
// satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

type patternFlusher interface {
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type cachedTitles struct {
	Titles []string `json:"titles"`
	Source string   `json:"source"`
}

// CachedSearcher serves repeated keyword searches from Cache. Concurrent
// misses for the same key share one upstream call. Failed searches are
// never cached.
type CachedSearcher struct {
	next    Searcher
	cache   Cache
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewCachedSearcher(next Searcher, cache Cache, ttl time.Duration, m *metrics.Metrics) *CachedSearcher {
	return &CachedSearcher{
		next:    next,
		cache:   cache,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "title-cache"),
	}
}

// Search counts exactly one hit or miss per call. The shared upstream call
// runs detached from the first caller's cancellation so other callers
// waiting on the same key still get its result; a cancelled caller returns
// at once with its own context error.
func (c *CachedSearcher) Search(ctx context.Context, keyword string, limit int) Result {
	key := cacheKey(keyword, limit)
	if r, ok := c.lookup(ctx, key, keyword); ok {
		c.recordHit(keyword, key)
		return r
	}
	c.recordMiss()

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if r, ok := c.lookup(flightCtx, key, keyword); ok {
			return r, nil
		}
		r := c.next.Search(flightCtx, keyword, limit)
		if r.OK() {
			entry := cachedTitles{Titles: r.Titles, Source: r.Source}
			if err := c.cache.SetJSON(flightCtx, key, entry, c.ttl); err != nil {
				c.logger.Error("cache set failed", "key", key, "error", err)
			}
		}
		return r, nil
	})
	select {
	case res := <-ch:
		r := res.Val.(Result)
		r.Keyword = keyword
		return r
	case <-ctx.Done():
		return Failed(keyword, "", ctx.Err())
	}
}

// lookup reads the cache without touching the hit and miss counters.
func (c *CachedSearcher) lookup(ctx context.Context, key, keyword string) (Result, bool) {
	var entry cachedTitles
	found, err := c.cache.GetJSON(ctx, key, &entry)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return Result{}, false
	}
	if !found {
		return Result{}, false
	}
	return Result{Keyword: keyword, Titles: entry.Titles, Source: entry.Source, Cached: true}, true
}

func (c *CachedSearcher) recordHit(keyword, key string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "keyword", keyword, "key", key)
}

func (c *CachedSearcher) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Invalidate drops every cached title list. It is a no-op for caches that
// cannot delete by pattern.
func (c *CachedSearcher) Invalidate(ctx context.Context) error {
	f, ok := c.cache.(patternFlusher)
	if !ok {
		return nil
	}
	deleted, err := f.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating title cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *CachedSearcher) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func cacheKey(keyword string, limit int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|limit=%d", normalized, limit)))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
