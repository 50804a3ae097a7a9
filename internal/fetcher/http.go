package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/mkaralis/storeforge/internal/config"
	"github.com/mkaralis/storeforge/internal/types"
)

// StealthFetcher is the primary retrieval strategy: a net/http client
// with browser-emulating headers, randomized identity signals, and a
// short randomized pre-request delay.
type StealthFetcher struct {
	client *http.Client
	cfg    *config.FetcherConfig
	logger *slog.Logger

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewStealthFetcher creates the primary HTTP fetcher.
func NewStealthFetcher(cfg *config.Config, logger *slog.Logger) (*StealthFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Fetcher.TLSInsecure,
			MinVersion:         tls.VersionTLS12,
		},
		DisableCompression: true, // We handle decompression ourselves (including brotli)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.Fetcher.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.Fetcher.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.Fetcher.MaxRedirects)
		}
		return nil
	}

	return &StealthFetcher{
		client: &http.Client{
			Transport:     transport,
			Jar:           jar,
			Timeout:       cfg.Fetcher.RequestTimeout,
			CheckRedirect: redirectPolicy,
		},
		cfg:    &cfg.Fetcher,
		logger: logger.With("component", "stealth_fetcher"),
		sleep:  time.Sleep,
	}, nil
}

// Fetch retrieves the page HTML with a randomized identity.
func (f *StealthFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	// Short randomized delay to reduce request-pattern detectability.
	f.sleep(randomDelay(f.cfg.MinDelay, f.cfg.MaxDelay))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &types.FetchError{URL: pageURL, Err: err}
	}

	id := NewIdentity(pageURL, f.cfg.UserAgents)
	id.Apply(req)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", classifyFetchError(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return "", &types.FetchError{
			URL:          pageURL,
			StatusCode:   resp.StatusCode,
			Err:          fmt.Errorf("access denied by target site"),
			AccessDenied: true,
		}
	}
	if resp.StatusCode >= 400 {
		return "", &types.FetchError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	var reader io.Reader = resp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", &types.FetchError{URL: pageURL, Err: err}
	}
	if len(body) == 0 {
		return "", &types.FetchError{URL: pageURL, Err: types.ErrEmptyResponse}
	}

	html := decodeBody(body, resp.Header.Get("Content-Encoding"), f.logger)

	f.logger.Debug("fetch complete",
		"url", pageURL,
		"status", resp.StatusCode,
		"size", len(html),
		"duration", time.Since(start),
	)

	return html, nil
}

// Close releases resources.
func (f *StealthFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *StealthFetcher) Type() string {
	return "stealth_http"
}

// decodeBody decompresses the body per Content-Encoding. Failed gzip
// decoding falls back to an explicit decompress attempt and finally to
// the raw bytes, so a mangled encoding header never loses the page.
func decodeBody(body []byte, encoding string, logger *slog.Logger) string {
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err == nil {
			if out, rerr := io.ReadAll(gz); rerr == nil {
				return string(out)
			}
		}
		logger.Warn("gzip decode failed, returning raw bytes")
		return string(body)
	case "deflate":
		fr := flate.NewReader(bytes.NewReader(body))
		if out, err := io.ReadAll(fr); err == nil {
			return string(out)
		}
		return string(body)
	case "br":
		if out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body))); err == nil {
			return string(out)
		}
		return string(body)
	default:
		return string(body)
	}
}

// classifyFetchError tags TLS/certificate failures so the caller can
// surface a distinct, user-actionable message.
func classifyFetchError(pageURL string, err error) *types.FetchError {
	fe := &types.FetchError{URL: pageURL, Err: err}

	var certErr *x509.CertificateInvalidError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) {
		fe.Certificate = true
		return fe
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) || strings.Contains(err.Error(), "certificate") {
		fe.Certificate = true
	}
	return fe
}

// randomDelay returns a uniformly random duration in [min, max].
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
