package article

import (
	"sync"
	"time"

	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/domain"
)

// PreviewCache keeps article previews for a fixed TTL. A nil cache stores
// nothing.
type PreviewCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	preview  domain.ArticlePreview
	cachedAt time.Time
}

func NewPreviewCache(ttl time.Duration) *PreviewCache {
	if ttl <= 0 {
		ttl = config.PreviewCacheTTL
	}
	return &PreviewCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *PreviewCache) Get(url string) *domain.ArticlePreview {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[url]
	if !ok || c.now().Sub(e.cachedAt) > c.ttl {
		return nil
	}
	p := e.preview
	return &p
}

func (c *PreviewCache) Set(url string, preview *domain.ArticlePreview) {
	if c == nil || preview == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cacheEntry{preview: *preview, cachedAt: c.now()}
}

// Prune drops expired entries and returns how many were removed.
func (c *PreviewCache) Prune() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for url, e := range c.entries {
		if c.now().Sub(e.cachedAt) > c.ttl {
			delete(c.entries, url)
			removed++
		}
	}
	return removed
}
