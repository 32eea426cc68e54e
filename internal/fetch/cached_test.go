package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGetter struct {
	calls  int
	result *Result
	err    error
}

func (g *stubGetter) Get(_ context.Context, urlStr string) (*Result, error) {
	g.calls++
	if g.result != nil {
		r := *g.result
		r.URL = urlStr
		return &r, g.err
	}
	return nil, g.err
}

type memoryCache struct {
	pages    map[string]*CachedPage
	failures map[string]string
	skip     map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		pages:    make(map[string]*CachedPage),
		failures: make(map[string]string),
		skip:     make(map[string]string),
	}
}

func (c *memoryCache) GetFreshPage(_ context.Context, urlStr string, maxAge time.Duration) (*CachedPage, error) {
	p, ok := c.pages[urlStr]
	if !ok || time.Since(p.FetchedAt) > maxAge {
		return nil, nil
	}
	return p, nil
}

func (c *memoryCache) StorePage(_ context.Context, urlStr, html string, statusCode int) error {
	c.pages[urlStr] = &CachedPage{URL: urlStr, HTML: html, StatusCode: statusCode, FetchedAt: time.Now()}
	return nil
}

func (c *memoryCache) RecordFailedFetch(_ context.Context, urlStr string, _ int, errMsg string) error {
	c.failures[urlStr] = errMsg
	return nil
}

func (c *memoryCache) ShouldSkipURL(_ context.Context, urlStr string) (bool, string, error) {
	reason, ok := c.skip[urlStr]
	return ok, reason, nil
}

func TestCachedFetcher_MissThenHit(t *testing.T) {
	next := &stubGetter{result: &Result{HTML: "<p>page</p>", StatusCode: 200}}
	cache := newMemoryCache()
	f := NewCachedFetcher(next, cache, time.Hour, zerolog.Nop())

	first, err := f.Get(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "<p>page</p>", first.HTML)

	second, err := f.Get(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "<p>page</p>", second.HTML)

	assert.Equal(t, 1, next.calls)
}

func TestCachedFetcher_StaleEntryRefetched(t *testing.T) {
	next := &stubGetter{result: &Result{HTML: "fresh", StatusCode: 200}}
	cache := newMemoryCache()
	cache.pages["https://example.com/a"] = &CachedPage{HTML: "old", FetchedAt: time.Now().Add(-48 * time.Hour)}
	f := NewCachedFetcher(next, cache, time.Hour, zerolog.Nop())

	result, err := f.Get(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "fresh", result.HTML)
	assert.Equal(t, 1, next.calls)
}

func TestCachedFetcher_RecordsFailure(t *testing.T) {
	next := &stubGetter{err: errors.New("boom")}
	cache := newMemoryCache()
	f := NewCachedFetcher(next, cache, time.Hour, zerolog.Nop())

	_, err := f.Get(context.Background(), "https://example.com/a")
	require.Error(t, err)
	assert.Contains(t, cache.failures["https://example.com/a"], "boom")
}

func TestCachedFetcher_SkipsBackedOffURL(t *testing.T) {
	next := &stubGetter{result: &Result{HTML: "x", StatusCode: 200}}
	cache := newMemoryCache()
	cache.skip["https://example.com/gone"] = "permanent failure"
	f := NewCachedFetcher(next, cache, time.Hour, zerolog.Nop())

	_, err := f.Get(context.Background(), "https://example.com/gone")
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "permanent failure")
	assert.Equal(t, 0, next.calls)
}

func TestCachedFetcher_NilCachePassesThrough(t *testing.T) {
	next := &stubGetter{result: &Result{HTML: "x", StatusCode: 200}}
	f := NewCachedFetcher(next, nil, 0, zerolog.Nop())

	_, err := f.Get(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	_, err = f.Get(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
