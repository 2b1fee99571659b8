package directory

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached wraps a Directory with an expiring LRU over FindOrgByName. The
// ordered organization probe resolves the same small set of names on every
// login, so positive hits are cached briefly. Misses are never cached: a
// freshly created organization must become probe-visible immediately.
type Cached struct {
	Directory

	orgsByName *lru.LRU[string, *Organization]
}

// NewCached wraps inner with an organization-name cache of the given size
// and TTL.
func NewCached(inner Directory, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 128
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cached{
		Directory:  inner,
		orgsByName: lru.NewLRU[string, *Organization](size, nil, ttl),
	}
}

// FindOrgByName implements Directory with caching.
func (c *Cached) FindOrgByName(ctx context.Context, name string) (*Organization, error) {
	if org, ok := c.orgsByName.Get(name); ok {
		cp := *org
		return &cp, nil
	}

	org, err := c.Directory.FindOrgByName(ctx, name)
	if err != nil || org == nil {
		return org, err
	}

	cp := *org
	c.orgsByName.Add(name, &cp)
	return org, nil
}
