package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// cacheKeyExcerpt bounds how much cleaned content feeds the cache key. The
// head of a product page changes when the price or title change, which is
// exactly when a stale hit would be wrong.
const cacheKeyExcerpt = 2000

const redisCachePrefix = "llm:extract:"

const cacheSweepInterval = 10 * time.Minute

type cacheEntry struct {
	product   models.ScrapedProduct
	expiresAt time.Time
}

// extractionCache memoizes model extractions per page snapshot. The memory
// tier answers repeat scrapes in-process; the optional Redis tier shares
// results across restarts. Redis failures degrade to memory-only.
type extractionCache struct {
	ttl   time.Duration
	redis *utils.RedisClient

	mu      sync.RWMutex
	entries map[string]cacheEntry

	stop     chan struct{}
	stopOnce sync.Once
}

func newExtractionCache(ttl time.Duration, redis *utils.RedisClient) *extractionCache {
	c := &extractionCache{
		ttl:     ttl,
		redis:   redis,
		entries: make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *extractionCache) janitor() {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *extractionCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *extractionCache) close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// extractionCacheKey ties a cached result to the page snapshot it came from.
func extractionCacheKey(url, cleaned string) string {
	if len(cleaned) > cacheKeyExcerpt {
		cleaned = cleaned[:cacheKeyExcerpt]
	}
	h := fnv.New64a()
	h.Write([]byte(cleaned))
	return fmt.Sprintf("%s:%x", url, h.Sum64())
}

func (c *extractionCache) get(ctx context.Context, key string) (*models.ScrapedProduct, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		if time.Now().Before(entry.expiresAt) {
			product := entry.product
			return &product, true
		}
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}

	if c.redis == nil {
		return nil, false
	}
	var product models.ScrapedProduct
	if err := c.redis.GetJSON(ctx, redisCachePrefix+key, &product); err != nil {
		return nil, false
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{product: product, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return &product, true
}

func (c *extractionCache) put(ctx context.Context, key string, product *models.ScrapedProduct) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{product: *product, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	if c.redis != nil {
		_ = c.redis.SetJSON(ctx, redisCachePrefix+key, product, c.ttl)
	}
}

func (c *extractionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
