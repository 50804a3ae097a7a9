package fetcher

import "context"

// Fetcher is the interface for all page retrieval strategies.
type Fetcher interface {
	// Fetch retrieves the HTML content at the given URL.
	Fetch(ctx context.Context, url string) (string, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}
