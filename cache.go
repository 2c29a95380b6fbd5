package agrosite

import (
	"context"
	"sync"
	"time"

	"github.com/agrosite/agrosite/service"
	"github.com/agrosite/agrosite/store"
)

// CatalogCache is an in-memory cache of active products and blog posts with
// TTL. Catalog writes call Invalidate.
type CatalogCache struct {
	mu       sync.RWMutex
	products []store.Product
	posts    []store.BlogPost
	fetched  time.Time
	ttl      time.Duration
	svc      *service.Services
}

// NewCatalogCache creates a CatalogCache backed by svc. A zero ttl disables
// caching.
func NewCatalogCache(svc *service.Services, ttl time.Duration) *CatalogCache {
	return &CatalogCache{svc: svc, ttl: ttl}
}

func (c *CatalogCache) valid() bool {
	return c.products != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.products = nil
	c.posts = nil
	c.mu.Unlock()
}

func (c *CatalogCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	products, err := c.svc.Products.List(ctx, "")
	if err != nil {
		return err
	}
	posts, err := c.svc.Blog.List(ctx, "", 0)
	if err != nil {
		return err
	}
	c.products = products
	c.posts = posts
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached products and posts after ensuring the cache is
// fresh. It tries a read lock first; only takes a write lock if a reload is
// needed.
func (c *CatalogCache) ensureLoaded(ctx context.Context) ([]store.Product, []store.BlogPost, error) {
	c.mu.RLock()
	if c.valid() {
		products, posts := c.products, c.posts
		c.mu.RUnlock()
		return products, posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.products, c.posts, nil
}

// Products returns active products, optionally filtered by category.
func (c *CatalogCache) Products(ctx context.Context, category string) ([]store.Product, error) {
	products, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return products, nil
	}
	filtered := []store.Product{}
	for _, p := range products {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Product returns the active product with slug.
func (c *CatalogCache) Product(ctx context.Context, slug string) (store.Product, error) {
	products, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return store.Product{}, err
	}
	for _, p := range products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return store.Product{}, store.ErrNotFound
}

// Posts returns active posts newest first, filtered by category and then
// truncated to limit when limit is positive.
func (c *CatalogCache) Posts(ctx context.Context, category string, limit int) ([]store.BlogPost, error) {
	_, posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	out := []store.BlogPost{}
	for _, p := range posts {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Post returns the active post with slug.
func (c *CatalogCache) Post(ctx context.Context, slug string) (store.BlogPost, error) {
	_, posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return store.BlogPost{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return store.BlogPost{}, store.ErrNotFound
}
