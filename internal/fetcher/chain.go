package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkaralis/storeforge/internal/observability"
	"github.com/mkaralis/storeforge/internal/types"
)

// ChainFetcher tries each strategy in order and returns the first
// successful page. It fails only after every strategy is exhausted,
// aggregating all attempt messages into a single FetchError.
type ChainFetcher struct {
	strategies []Fetcher
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewChainFetcher creates a fetcher chain. Strategies are tried in the
// order given.
func NewChainFetcher(logger *slog.Logger, strategies ...Fetcher) *ChainFetcher {
	return &ChainFetcher{
		strategies: strategies,
		logger:     logger.With("component", "fetch_chain"),
	}
}

// SetMetrics attaches operational counters to the chain.
func (c *ChainFetcher) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// Fetch runs the strategy chain.
func (c *ChainFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var attempts []string
	var certificate, accessDenied bool
	var lastErr error

	if c.metrics != nil {
		c.metrics.FetchesTotal.Add(1)
	}

	for i, s := range c.strategies {
		html, err := s.Fetch(ctx, pageURL)
		if err == nil {
			if c.metrics != nil {
				c.metrics.BytesDownloaded.Add(int64(len(html)))
				if i > 0 && s.Type() == "browser" {
					c.metrics.BrowserFallbacks.Add(1)
				}
			}
			return html, nil
		}

		c.logger.Warn("fetch strategy failed", "strategy", s.Type(), "url", pageURL, "error", err)
		attempts = append(attempts, fmt.Sprintf("%s attempt failed: %v", s.Type(), err))
		lastErr = err

		var fe *types.FetchError
		if errors.As(err, &fe) {
			certificate = certificate || fe.Certificate
			accessDenied = accessDenied || fe.AccessDenied
		}

		// Context cancellation ends the chain; later strategies would
		// fail the same way.
		if ctx.Err() != nil {
			break
		}
	}

	if c.metrics != nil {
		c.metrics.FetchesFailed.Add(1)
	}

	return "", &types.FetchError{
		URL:          pageURL,
		Attempts:     attempts,
		Err:          lastErr,
		Certificate:  certificate,
		AccessDenied: accessDenied,
	}
}

// Close closes every strategy in the chain.
func (c *ChainFetcher) Close() error {
	var firstErr error
	for _, s := range c.strategies {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Type returns the fetcher type identifier.
func (c *ChainFetcher) Type() string {
	return "chain"
}
