package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mkaralis/storeforge/internal/config"
	"github.com/mkaralis/storeforge/internal/types"
)

// SearchClient queries external image-search providers. Providers are
// tried in priority order; the first one that returns results wins.
type SearchClient struct {
	cfg    *config.SearchConfig
	client *http.Client
	logger *slog.Logger

	bingEndpoint   string
	googleEndpoint string
}

// NewSearchClient creates an image search client.
func NewSearchClient(cfg *config.SearchConfig, logger *slog.Logger) *SearchClient {
	return &SearchClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:         logger.With("component", "image_search"),
		bingEndpoint:   "https://api.bing.microsoft.com/v7.0/images/search",
		googleEndpoint: "https://www.googleapis.com/customsearch/v1",
	}
}

// Search runs the provider chain for the query.
func (sc *SearchClient) Search(ctx context.Context, query string) ([]types.ScrapedImage, error) {
	if sc.cfg.BingKey != "" {
		images, err := sc.searchBing(ctx, query)
		if err != nil {
			sc.logger.Warn("bing image search failed", "query", query, "error", err)
		} else if len(images) > 0 {
			return images, nil
		}
	}

	if sc.cfg.GoogleKey != "" && sc.cfg.GoogleSearchCX != "" {
		images, err := sc.searchGoogle(ctx, query)
		if err != nil {
			sc.logger.Warn("google image search failed", "query", query, "error", err)
		} else if len(images) > 0 {
			return images, nil
		}
	}

	return nil, nil
}

func (sc *SearchClient) searchBing(ctx context.Context, query string) ([]types.ScrapedImage, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(sc.cfg.MaxResults))
	params.Set("imageType", "Shopping")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.bingEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", sc.cfg.BingKey)

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing search: HTTP %d", resp.StatusCode)
	}

	var result struct {
		Value []struct {
			ContentURL string `json:"contentUrl"`
			Name       string `json:"name"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode bing response: %w", err)
	}

	images := make([]types.ScrapedImage, 0, len(result.Value))
	for _, item := range result.Value {
		images = append(images, types.ScrapedImage{
			URL:    item.ContentURL,
			Alt:    item.Name,
			Width:  item.Width,
			Height: item.Height,
		})
	}
	return images, nil
}

func (sc *SearchClient) searchGoogle(ctx context.Context, query string) ([]types.ScrapedImage, error) {
	params := url.Values{}
	params.Set("key", sc.cfg.GoogleKey)
	params.Set("cx", sc.cfg.GoogleSearchCX)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", strconv.Itoa(sc.cfg.MaxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.googleEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google search: HTTP %d", resp.StatusCode)
	}

	var result struct {
		Items []struct {
			Link  string `json:"link"`
			Title string `json:"title"`
			Image struct {
				Width  int `json:"width"`
				Height int `json:"height"`
			} `json:"image"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode google response: %w", err)
	}

	images := make([]types.ScrapedImage, 0, len(result.Items))
	for _, item := range result.Items {
		images = append(images, types.ScrapedImage{
			URL:    item.Link,
			Alt:    item.Title,
			Width:  item.Image.Width,
			Height: item.Image.Height,
		})
	}
	return images, nil
}
