package github

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
)

// CachedSnapshotter keeps recent snapshots so repeated runs against the same
// repository do not hit the API again within ttl. Errors are never cached.
type CachedSnapshotter struct {
	next  sources.Snapshotter
	cache *expirable.LRU[string, string]
}

func NewCachedSnapshotter(next sources.Snapshotter, size int, ttl time.Duration) *CachedSnapshotter {
	if size <= 0 {
		size = 64
	}
	return &CachedSnapshotter{
		next:  next,
		cache: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *CachedSnapshotter) Snapshot(ctx context.Context, repoRef string) (string, error) {
	ref, err := ParseReference(repoRef, nil)
	if err != nil {
		return c.next.Snapshot(ctx, repoRef)
	}
	key := strings.ToLower(ref.Host + "/" + ref.FullName())
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.next.Snapshot(ctx, repoRef)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, v)
	return v, nil
}
