package registry

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sambabib/depdoctor/pkg/model"
)

const (
	DefaultCacheSize = 4096
	DefaultCacheTTL  = 10 * time.Minute
)

type cacheEntry struct {
	release  *Release
	notFound bool
}

// Cached memoizes another Lookup. Successful releases and not-found answers
// are kept; transient failures are not.
type Cached struct {
	next  Lookup
	cache *expirable.LRU[model.Key, cacheEntry]
}

// NewCached wraps next with an expiring LRU. Non-positive size or ttl use
// the defaults.
func NewCached(next Lookup, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[model.Key, cacheEntry](size, nil, ttl),
	}
}

func (c *Cached) Latest(ctx context.Context, eco model.Ecosystem, name string) (*Release, error) {
	key := model.Key{Ecosystem: eco, Name: name}
	if e, ok := c.cache.Get(key); ok {
		if e.notFound {
			return nil, ErrNotFound
		}
		rel := *e.release
		return &rel, nil
	}

	rel, err := c.next.Latest(ctx, eco, name)
	switch {
	case err == nil && rel != nil:
		stored := *rel
		c.cache.Add(key, cacheEntry{release: &stored})
	case errors.Is(err, ErrNotFound):
		c.cache.Add(key, cacheEntry{notFound: true})
	}
	return rel, err
}

// Len reports the number of live entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}
