package folio

import (
	"context"
	"sync"
	"time"
)

// SiteCache is an in-memory TTL cache of the settings and category list,
// read on nearly every public request.
type SiteCache struct {
	mu         sync.RWMutex
	settings   *Settings
	categories []string
	fetched    time.Time
	ttl        time.Duration
	store      *Store
}

// NewSiteCache creates a SiteCache backed by the given Store.
func NewSiteCache(s *Store, ttl time.Duration) *SiteCache {
	return &SiteCache{store: s, ttl: ttl}
}

func (c *SiteCache) valid() bool {
	return c.settings != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *SiteCache) Invalidate() {
	c.mu.Lock()
	c.settings = nil
	c.categories = nil
	c.mu.Unlock()
}

func (c *SiteCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	settings, err := c.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	c.settings = &settings
	c.categories = categories
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached values after making sure they are fresh.
// The write lock is only taken when a reload is needed.
func (c *SiteCache) ensureLoaded(ctx context.Context) (Settings, []string, error) {
	c.mu.RLock()
	if c.valid() {
		settings, categories := *c.settings, c.categories
		c.mu.RUnlock()
		return settings, categories, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return Settings{}, nil, err
	}
	return *c.settings, c.categories, nil
}

// Settings returns the current site settings.
func (c *SiteCache) Settings(ctx context.Context) (Settings, error) {
	settings, _, err := c.ensureLoaded(ctx)
	return settings, err
}

// Categories returns the categories of published posts.
func (c *SiteCache) Categories(ctx context.Context) ([]string, error) {
	_, categories, err := c.ensureLoaded(ctx)
	return categories, err
}
