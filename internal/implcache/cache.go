package implcache

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/resolver"
	"github.com/vk/wrapgrid/internal/uri"
	"golang.org/x/sync/singleflight"
)

// Cache maps normalized Uri strings to implementations.
type Cache struct {
	resolver *resolver.Resolver

	entries sync.Map // Key: normalized uri string, Value: core.Implementation
	size    atomic.Int64

	walks  singleflight.Group
	builds singleflight.Group
}

// New creates an empty cache that resolves misses with r.
func New(r *resolver.Resolver) *Cache {
	return &Cache{resolver: r}
}

// Get returns the implementation bound to u, if any.
func (c *Cache) Get(u uri.Uri) (core.Implementation, bool) {
	v, ok := c.entries.Load(u.String())
	if !ok {
		return nil, false
	}
	return v.(core.Implementation), true
}

// GetOrResolve returns the implementation bound to u, resolving and binding
// it on a miss. Failed resolutions are not cached.
func (c *Cache) GetOrResolve(ctx context.Context, u uri.Uri) (core.Implementation, error) {
	logger := ctxlog.FromContext(ctx)
	key := u.String()

	if impl, ok := c.Get(u); ok {
		logger.Debug("Implementation cache hit.", "uri", key)
		return impl, nil
	}

	chain := resolvingFrom(ctx)
	if slices.Contains(chain, key) {
		return nil, &core.RedirectCycleError{Path: append(slices.Clone(chain), key)}
	}
	ctx = withResolving(ctx, append(slices.Clone(chain), key))

	v, err, shared := c.walks.Do(key, func() (any, error) {
		if impl, ok := c.Get(u); ok {
			return impl, nil
		}
		logger.Debug("Implementation cache miss, resolving.", "uri", key)

		res, err := c.resolver.Resolve(ctx, u, c)
		if err != nil {
			return nil, err
		}
		for _, hop := range res.Path {
			c.store(hop.String(), res.Implementation)
		}
		logger.Debug("Implementation bound.", "uri", key, "hops", len(res.Path), "cached_hop", res.Cached)
		return res.Implementation, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Shared an in-flight resolution.", "uri", key)
	}
	return v.(core.Implementation), nil
}

// Lookup implements resolver.Memo.
func (c *Cache) Lookup(u uri.Uri) (core.Implementation, bool) {
	return c.Get(u)
}

// Instantiate implements resolver.Memo. Walks that reach the same factory
// rule at the same Uri share a single call to build.
func (c *Cache) Instantiate(ctx context.Context, at uri.Uri, build func(context.Context) (core.Implementation, error)) (core.Implementation, error) {
	key := at.String()
	if impl, ok := c.Get(at); ok {
		return impl, nil
	}

	v, err, _ := c.builds.Do(key, func() (any, error) {
		if impl, ok := c.Get(at); ok {
			return impl, nil
		}
		impl, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return c.store(key, impl), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(core.Implementation), nil
}

// Len returns the number of bound Uris.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Purge drops every entry. It is only meant for client disposal.
func (c *Cache) Purge() {
	c.entries.Range(func(k, _ any) bool {
		if _, loaded := c.entries.LoadAndDelete(k); loaded {
			c.size.Add(-1)
		}
		return true
	})
}

// store binds key unless it is already bound and returns the winner.
func (c *Cache) store(key string, impl core.Implementation) core.Implementation {
	actual, loaded := c.entries.LoadOrStore(key, impl)
	if !loaded {
		c.size.Add(1)
	}
	return actual.(core.Implementation)
}

type resolvingKey struct{}

func resolvingFrom(ctx context.Context) []string {
	chain, _ := ctx.Value(resolvingKey{}).([]string)
	return chain
}

func withResolving(ctx context.Context, chain []string) context.Context {
	return context.WithValue(ctx, resolvingKey{}, chain)
}
