package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCacheTTL is how long a successfully fetched profile page is reused.
const DefaultCacheTTL = 24 * time.Hour

// CachedPage is a page served from the cache.
type CachedPage struct {
	URL        string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
}

// PageCache stores fetched pages and failure bookkeeping.
// The Postgres store implements it.
type PageCache interface {
	GetFreshPage(ctx context.Context, urlStr string, maxAge time.Duration) (*CachedPage, error)
	StorePage(ctx context.Context, urlStr, html string, statusCode int) error
	RecordFailedFetch(ctx context.Context, urlStr string, statusCode int, errMsg string) error
	ShouldSkipURL(ctx context.Context, urlStr string) (bool, string, error)
}

// CachedFetcher wraps a Getter with page caching.
type CachedFetcher struct {
	next     Getter
	cache    PageCache
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewCachedFetcher creates a cached getter. A nil cache passes every request through.
func NewCachedFetcher(next Getter, cache PageCache, ttl time.Duration, logger zerolog.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{next: next, cache: cache, cacheTTL: ttl, log: logger}
}

// Get returns a fresh cached page when available, otherwise fetches and caches it.
// Cache errors are logged and never fail the fetch.
func (f *CachedFetcher) Get(ctx context.Context, urlStr string) (*Result, error) {
	if f.cache == nil {
		return f.next.Get(ctx, urlStr)
	}

	// Step 1: permanent failures and backoff windows short-circuit
	skip, reason, err := f.cache.ShouldSkipURL(ctx, urlStr)
	if err != nil {
		f.log.Warn().Err(err).Str("url", urlStr).Msg("page cache skip check failed")
	} else if skip {
		return nil, &Error{URL: urlStr, Message: fmt.Sprintf("URL skipped: %s", reason)}
	}

	// Step 2: fresh cached copy
	cached, err := f.cache.GetFreshPage(ctx, urlStr, f.cacheTTL)
	if err != nil {
		f.log.Warn().Err(err).Str("url", urlStr).Msg("page cache read failed")
	} else if cached != nil {
		f.log.Debug().Str("url", urlStr).Time("fetched_at", cached.FetchedAt).Msg("page cache hit")
		return &Result{URL: cached.URL, HTML: cached.HTML, StatusCode: cached.StatusCode}, nil
	}

	// Step 3: network
	result, err := f.next.Get(ctx, urlStr)
	if err != nil {
		statusCode := 0
		if result != nil {
			statusCode = result.StatusCode
		}
		if recErr := f.cache.RecordFailedFetch(ctx, urlStr, statusCode, err.Error()); recErr != nil {
			f.log.Warn().Err(recErr).Str("url", urlStr).Msg("failed to record fetch failure")
		}
		return result, err
	}

	// Step 4: store
	if err := f.cache.StorePage(ctx, urlStr, result.HTML, result.StatusCode); err != nil {
		f.log.Warn().Err(err).Str("url", urlStr).Msg("page cache write failed")
	}
	return result, nil
}
