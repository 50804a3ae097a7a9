package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/mkaralis/storeforge/internal/config"
	"github.com/mkaralis/storeforge/internal/types"
)

// BrowserFetcher is the fallback retrieval strategy: a headless browser
// driven via Rod with stealth patches, used when the stealth HTTP client
// cannot get past the target's bot mitigation.
//
// Browser instances are pooled with worker affinity: each worker slot
// gets one lazily-created, long-lived browser that is reused across
// fetches for the lifetime of the process.
type BrowserFetcher struct {
	pool   *BrowserPool
	cfg    *config.BrowserConfig
	logger *slog.Logger
}

// NewBrowserFetcher creates the headless browser fallback fetcher.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		pool:   NewBrowserPool(cfg.Browser.PoolSize, cfg.Browser.UserDataDir, logger),
		cfg:    &cfg.Browser,
		logger: logger.With("component", "browser_fetcher"),
	}
}

// Fetch navigates to the URL, waits for the document body to be present,
// and returns the rendered page source.
func (bf *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	browser, release, err := bf.pool.Acquire(ctx)
	if err != nil {
		return "", &types.FetchError{URL: pageURL, Err: err}
	}
	defer release()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", &types.FetchError{URL: pageURL, Err: fmt.Errorf("stealth page: %w", err)}
	}
	defer page.Close()

	timeout := bf.cfg.PageTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	if err := page.Timeout(timeout).Navigate(pageURL); err != nil {
		return "", &types.FetchError{URL: pageURL, Err: err}
	}

	// Wait for the body element before reading the source; dynamic pages
	// often deliver an empty shell first.
	if _, err := page.Timeout(timeout).Element("body"); err != nil {
		return "", &types.FetchError{URL: pageURL, Err: fmt.Errorf("wait for body: %w", err)}
	}

	html, err := page.HTML()
	if err != nil {
		return "", &types.FetchError{URL: pageURL, Err: err}
	}

	bf.logger.Debug("browser fetch complete", "url", pageURL, "size", len(html))
	return html, nil
}

// Close shuts down all pooled browsers.
func (bf *BrowserFetcher) Close() error {
	return bf.pool.Close()
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// BrowserPool holds up to size long-lived browser instances. Each slot
// is created lazily on first acquire and reused until the pool closes;
// the pool never tears an instance down mid-request.
type BrowserPool struct {
	slots       chan *rod.Browser
	created     int
	size        int
	userDataDir string
	mu          sync.Mutex
	closed      bool
	logger      *slog.Logger
}

// NewBrowserPool creates a pool of the given size.
func NewBrowserPool(size int, userDataDir string, logger *slog.Logger) *BrowserPool {
	if size < 1 {
		size = 1
	}
	return &BrowserPool{
		slots:       make(chan *rod.Browser, size),
		size:        size,
		userDataDir: userDataDir,
		logger:      logger.With("component", "browser_pool"),
	}
}

// errPoolClosed is returned by Acquire once Close has run.
var errPoolClosed = errors.New("browser pool closed")

// Acquire returns a browser and a release func. A new instance is
// launched only when all existing instances are busy and the pool is
// below capacity.
func (p *BrowserPool) Acquire(ctx context.Context) (*rod.Browser, func(), error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil, errPoolClosed
	}
	select {
	case b := <-p.slots:
		p.mu.Unlock()
		return b, func() { p.release(b) }, nil
	default:
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()
		b, err := p.launch()
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, nil, err
		}
		return b, func() { p.release(b) }, nil
	}
	p.mu.Unlock()

	// At capacity: wait for a free instance. The slots channel is never
	// closed, so a nil receive can only mean a bug elsewhere; treat it as
	// a closed pool rather than handing out a nil browser.
	select {
	case b := <-p.slots:
		if b == nil {
			return nil, nil, errPoolClosed
		}
		return b, func() { p.release(b) }, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// release returns a browser to the pool. The closed check and the send
// happen under the same lock so a concurrent Close cannot race the
// handoff.
func (p *BrowserPool) release(b *rod.Browser) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = b.Close()
		return
	}
	select {
	case p.slots <- b:
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		_ = b.Close()
	}
}

// launch starts a headless Chromium instance with anti-automation flags.
func (p *BrowserPool) launch() (*rod.Browser, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if p.userDataDir != "" {
		l = l.UserDataDir(p.userDataDir)
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	p.logger.Info("browser instance launched")
	return browser, nil
}

// Close shuts down every pooled browser. The slots channel stays open;
// the closed flag keeps Acquire from handing out instances and release
// from re-pooling them, so idle browsers are drained here and in-flight
// ones are closed on release.
func (p *BrowserPool) Close() error {
	p.mu.Lock()
	p.closed = true
	var firstErr error
	for {
		select {
		case b := <-p.slots:
			if err := b.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			p.mu.Unlock()
			return firstErr
		}
	}
}
