package implcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/redirect"
	"github.com/vk/wrapgrid/internal/resolver"
	"github.com/vk/wrapgrid/internal/uri"
)

type stubImpl struct{ id int32 }

func (s *stubImpl) Invoke(context.Context, string, map[string]any, core.Invoker) core.InvokeResult {
	return core.Ok(s.id)
}

// slowFactory counts instantiations and holds each one open for a moment so
// concurrent callers overlap with it.
type slowFactory struct {
	calls atomic.Int32
	delay time.Duration
}

func (f *slowFactory) build(context.Context, uri.Uri, uri.Uri) (core.Implementation, error) {
	n := f.calls.Add(1)
	time.Sleep(f.delay)
	return &stubImpl{id: n}, nil
}

func newCache(t *testing.T, rules ...redirect.Redirect) *Cache {
	t.Helper()
	table, err := redirect.Sanitize(rules)
	require.NoError(t, err)
	return New(resolver.New(table))
}

func chainRules(t *testing.T, factory core.Factory) []redirect.Redirect {
	t.Helper()
	ab, err := redirect.Parse("ens/a", "ens/b")
	require.NoError(t, err)
	bc, err := redirect.Parse("ens/b", "ens/c")
	require.NoError(t, err)
	return []redirect.Redirect{ab, bc, redirect.ToFactory(uri.ExactPattern(uri.MustParse("ens/c")), factory)}
}

func TestGetOrResolve_ChainSharesOneInstance(t *testing.T) {
	factory := &slowFactory{}
	cache := newCache(t, chainRules(t, factory.build)...)
	ctx := context.Background()

	a, err := cache.GetOrResolve(ctx, uri.MustParse("ens/a"))
	require.NoError(t, err)
	b, err := cache.GetOrResolve(ctx, uri.MustParse("ens/b"))
	require.NoError(t, err)
	c, err := cache.GetOrResolve(ctx, uri.MustParse("ens/c"))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Same(t, b, c)
	assert.EqualValues(t, 1, factory.calls.Load())
	assert.Equal(t, 3, cache.Len())
}

func TestGetOrResolve_TerminalFirstThenEntryPoint(t *testing.T) {
	factory := &slowFactory{}
	cache := newCache(t, chainRules(t, factory.build)...)
	ctx := context.Background()

	c, err := cache.GetOrResolve(ctx, uri.MustParse("ens/c"))
	require.NoError(t, err)
	a, err := cache.GetOrResolve(ctx, uri.MustParse("ens/a"))
	require.NoError(t, err)

	assert.Same(t, c, a)
	assert.EqualValues(t, 1, factory.calls.Load())

	_, ok := cache.Get(uri.MustParse("ens/b"))
	assert.True(t, ok, "intermediate hop should be bound too")
}

func TestGetOrResolve_ConcurrentMissesInstantiateOnce(t *testing.T) {
	factory := &slowFactory{delay: 20 * time.Millisecond}
	cache := newCache(t, chainRules(t, factory.build)...)

	const n = 50
	results := make([]core.Implementation, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// Mix entry points so walks overlap on the shared factory rule.
			target := []string{"ens/a", "ens/b", "ens/c"}[i%3]
			impl, err := cache.GetOrResolve(context.Background(), uri.MustParse(target))
			assert.NoError(t, err)
			results[i] = impl
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, factory.calls.Load())
	for _, impl := range results {
		assert.Same(t, results[0], impl)
	}
}

func TestGetOrResolve_SameUriConcurrently(t *testing.T) {
	factory := &slowFactory{delay: 20 * time.Millisecond}
	cache := newCache(t, redirect.ToFactory(uri.ExactPattern(uri.MustParse("ens/x")), factory.build))

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrResolve(context.Background(), uri.MustParse("ens/x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, factory.calls.Load())
}

func TestGetOrResolve_FailuresAreNotCached(t *testing.T) {
	var calls atomic.Int32
	cache := newCache(t, redirect.ToFactory(uri.ExactPattern(uri.MustParse("ens/flaky")), func(context.Context, uri.Uri, uri.Uri) (core.Implementation, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("temporarily unavailable")
		}
		return &stubImpl{id: 7}, nil
	}))
	ctx := context.Background()

	_, err := cache.GetOrResolve(ctx, uri.MustParse("ens/flaky"))
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	impl, err := cache.GetOrResolve(ctx, uri.MustParse("ens/flaky"))
	require.NoError(t, err)
	assert.Equal(t, int32(7), impl.(*stubImpl).id)
}

func TestGetOrResolve_UnresolvedIsReported(t *testing.T) {
	cache := newCache(t)
	_, err := cache.GetOrResolve(context.Background(), uri.MustParse("ens/nowhere"))

	var unresolved *core.UnresolvedUriError
	require.True(t, errors.As(err, &unresolved))
}

func TestGetOrResolve_SelfResolvingFactoryDoesNotDeadlock(t *testing.T) {
	var cache *Cache
	cache = newCache(t, redirect.ToFactory(uri.ExactPattern(uri.MustParse("ens/self")), func(ctx context.Context, matched, _ uri.Uri) (core.Implementation, error) {
		return cache.GetOrResolve(ctx, matched)
	}))

	done := make(chan error, 1)
	go func() {
		_, err := cache.GetOrResolve(context.Background(), uri.MustParse("ens/self"))
		done <- err
	}()

	select {
	case err := <-done:
		var cycle *core.RedirectCycleError
		require.True(t, errors.As(err, &cycle), "expected *core.RedirectCycleError, got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("self-resolving factory deadlocked")
	}
}

func TestPurge(t *testing.T) {
	factory := &slowFactory{}
	cache := newCache(t, chainRules(t, factory.build)...)

	_, err := cache.GetOrResolve(context.Background(), uri.MustParse("ens/a"))
	require.NoError(t, err)
	require.Equal(t, 3, cache.Len())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get(uri.MustParse("ens/a"))
	assert.False(t, ok)
}
