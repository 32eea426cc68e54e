// Package fetch - browser.go provides headless browser rendering for the JavaScript directory pages.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// RenderOptions controls how a page is rendered.
type RenderOptions struct {
	// WaitSelector must be visible before the page is captured.
	WaitSelector string
	// Scrolls is the number of scroll-to-bottom passes for lazily loaded lists.
	Scrolls int
	// ScrollPause is the pause after each scroll.
	ScrollPause time.Duration
	// Timeout bounds the whole render.
	Timeout time.Duration
}

// Renderer returns the HTML of a page after JavaScript has run.
type Renderer interface {
	Render(ctx context.Context, urlStr string, opts RenderOptions) (string, error)
}

// ChromeRenderer renders pages in one shared headless Chrome, one tab per render.
// Requires Chrome/Chromium to be installed on the system.
type ChromeRenderer struct {
	pacer Pacer
	log   zerolog.Logger

	once          sync.Once
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewChromeRenderer creates a renderer. The browser starts on first use.
func NewChromeRenderer(pacer Pacer, logger zerolog.Logger) *ChromeRenderer {
	if pacer == nil {
		pacer = NoPacer{}
	}
	return &ChromeRenderer{pacer: pacer, log: logger}
}

func (r *ChromeRenderer) start() {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	r.browserCtx = browserCtx
	r.cancelAlloc = cancelAlloc
	r.cancelBrowser = cancelBrowser
}

// Render navigates to urlStr, waits for opts.WaitSelector, scrolls and returns the outer HTML.
func (r *ChromeRenderer) Render(ctx context.Context, urlStr string, opts RenderOptions) (string, error) {
	r.once.Do(r.start)

	if err := r.pacer.Wait(ctx, urlStr); err != nil {
		return "", &Error{URL: urlStr, Message: "pacing wait aborted", Cause: err}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.log.Debug().Str("url", urlStr).Msg("rendering page in headless browser")

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	waitSelector := opts.WaitSelector
	if waitSelector == "" {
		waitSelector = "body"
	}

	actions := []chromedp.Action{
		chromedp.Navigate(urlStr),
		chromedp.WaitVisible(waitSelector, chromedp.ByQuery),
	}
	for i := 0; i < opts.Scrolls; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil),
			chromedp.Sleep(opts.ScrollPause),
		)
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return "", &Error{URL: urlStr, Message: "browser rendering failed", Cause: err}
	}

	r.log.Debug().Str("url", urlStr).Int("bytes", len(html)).Msg("rendered page")
	return html, nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() {
	if r.cancelBrowser != nil {
		r.cancelBrowser()
	}
	if r.cancelAlloc != nil {
		r.cancelAlloc()
	}
}

// StaticRenderer serves pre-rendered HTML keyed by URL. Used by tests and
// for replaying saved listings.
type StaticRenderer map[string]string

// Render returns the stored page or an error when the URL is unknown.
func (s StaticRenderer) Render(_ context.Context, urlStr string, _ RenderOptions) (string, error) {
	html, ok := s[urlStr]
	if !ok {
		return "", &Error{URL: urlStr, Message: fmt.Sprintf("no rendered page for %s", urlStr)}
	}
	return html, nil
}
