package collector

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"CryptoBoard/internal/model"
)

// NoExpiry keeps a cached listing until Invalidate is called, so the
// wrapped fetch runs at most once between invalidations.
const NoExpiry time.Duration = 0

// CachedFetcher caches the whole listing of the wrapped Fetcher.
// Errors are never cached. Concurrent misses share one upstream fetch.
type CachedFetcher struct {
	Fetcher Fetcher
	// TTL is how long a listing is served from cache. NoExpiry means
	// until the next Invalidate.
	TTL time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time

	mu         sync.Mutex
	listing    model.RawListing
	fetchedAt  time.Time
	valid      bool
	generation uint64

	sf singleflight.Group
}

// NewCachedFetcher wraps f with the given TTL.
func NewCachedFetcher(f Fetcher, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Fetcher: f, TTL: ttl}
}

func (c *CachedFetcher) Name() string { return c.Fetcher.Name() }

func (c *CachedFetcher) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// FetchListing returns the cached listing while it is fresh, otherwise
// fetches and caches a new one.
func (c *CachedFetcher) FetchListing(ctx context.Context) (model.RawListing, error) {
	if l, ok := c.lookup(); ok {
		return l, nil
	}
	v, err, _ := c.sf.Do("listing", func() (any, error) {
		if l, ok := c.lookup(); ok {
			return l, nil
		}
		c.mu.Lock()
		gen := c.generation
		c.mu.Unlock()

		l, err := c.Fetcher.FetchListing(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// An Invalidate during the fetch wins; the result is returned but not kept.
		if gen == c.generation {
			c.listing = l
			c.fetchedAt = c.now()
			c.valid = true
		}
		c.mu.Unlock()
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(model.RawListing), nil
}

func (c *CachedFetcher) lookup() (model.RawListing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return nil, false
	}
	if c.TTL > 0 && c.now().Sub(c.fetchedAt) >= c.TTL {
		c.valid = false
		c.listing = nil
		return nil, false
	}
	return c.listing, true
}

// Invalidate drops the cached listing. The next FetchListing goes upstream.
func (c *CachedFetcher) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.valid = false
	c.listing = nil
	c.fetchedAt = time.Time{}
}

// Age reports how old the cached listing is, and whether there is one.
func (c *CachedFetcher) Age() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return 0, false
	}
	return c.now().Sub(c.fetchedAt), true
}
