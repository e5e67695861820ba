package identity

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	profile Profile
	expires time.Time
}

// CachingDirectory wraps another Directory with a TTL-based in-memory cache,
// keeping repeat authenticated requests from hammering the provider API.
type CachingDirectory struct {
	base Directory
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingDirectory returns a Directory that caches lookups for the provided TTL.
func NewCachingDirectory(base Directory, ttl time.Duration) *CachingDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingDirectory{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// Lookup returns a cached profile when available, otherwise it delegates to
// the underlying directory and stores the result.
func (c *CachingDirectory) Lookup(ctx context.Context, subject string) (Profile, error) {
	if c == nil || c.base == nil {
		return Profile{}, ErrDirectoryUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[subject]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.profile, nil
	}

	profile, err := c.base.Lookup(ctx, subject)
	if err != nil {
		return Profile{}, err
	}

	c.mu.Lock()
	c.items[subject] = cacheEntry{profile: profile, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return profile, nil
}

var _ Directory = (*CachingDirectory)(nil)
