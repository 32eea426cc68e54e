package fetch

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPaceInterval is the pause between consecutive requests to one host.
const DefaultPaceInterval = 2 * time.Second

// Pacer spaces out requests to third-party hosts.
type Pacer interface {
	// Wait blocks until a request to urlStr may be issued or ctx is done.
	Wait(ctx context.Context, urlStr string) error
}

// NoPacer never waits. Used by tests and cached reads.
type NoPacer struct{}

// Wait returns immediately unless ctx is already done.
func (NoPacer) Wait(ctx context.Context, _ string) error {
	return ctx.Err()
}

// HostPacer keeps one token-bucket limiter per host, so concurrent workers
// share a host's request budget.
type HostPacer struct {
	interval time.Duration
	burst    int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostPacer allows one request per interval per host, with the given burst.
func NewHostPacer(interval time.Duration, burst int) *HostPacer {
	if interval <= 0 {
		interval = DefaultPaceInterval
	}
	if burst < 1 {
		burst = 1
	}
	return &HostPacer{
		interval: interval,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks on the limiter for the URL's host.
func (p *HostPacer) Wait(ctx context.Context, urlStr string) error {
	return p.limiter(hostOf(urlStr)).Wait(ctx)
}

func (p *HostPacer) limiter(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(p.interval), p.burst)
		p.limiters[host] = l
	}
	return l
}

func hostOf(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Host == "" {
		return urlStr
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
