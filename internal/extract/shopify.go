package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkaralis/storeforge/internal/types"
)

// shopifyImageSelectors target the product-image markup of common
// Shopify themes, highest-signal first.
var shopifyImageSelectors = []string{
	"img.product__image",
	"img.product-featured-media",
	"img.product-single__image",
	`[data-product-media-type="image"] img`,
	"[data-product-single-media-wrapper] img",
	".product-gallery__image img",
	".product__media img",
	".featured-image",
}

// titleSelectors locate product titles when meta tags are missing.
var titleSelectors = []string{
	"h1.product-title",
	"h1.product__title",
	"h1.product-single__title",
	".product-title",
	".product__title",
	"[data-product-title]",
}

// PlatformExtractor runs the platform-specific extraction mode: theme
// selectors first, then an image-search fallback keyed by the page's
// product title.
type PlatformExtractor struct {
	search *SearchClient
	logger *slog.Logger
}

// NewPlatformExtractor creates a platform-aware extractor. search may be
// nil, in which case the fallback is skipped.
func NewPlatformExtractor(search *SearchClient, logger *slog.Logger) *PlatformExtractor {
	return &PlatformExtractor{
		search: search,
		logger: logger.With("component", "platform_extractor"),
	}
}

// ExtractShopify extracts product images from a Shopify page. If none of
// the theme selectors match, it falls back to searching by the detected
// product title (and brand, when present).
func (pe *PlatformExtractor) ExtractShopify(ctx context.Context, pageURL, rawHTML string) ([]types.ScrapedImage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Err: err}
	}

	seen := make(map[string]bool)
	var images []types.ScrapedImage

	for _, selector := range shopifyImageSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			for _, attr := range []string{"src", "data-src", "data-srcset", "data-original"} {
				src, ok := sel.Attr(attr)
				if !ok || src == "" {
					continue
				}
				src = resolveURL(base, src)
				if seen[src] {
					continue
				}
				seen[src] = true
				alt, _ := sel.Attr("alt")
				width, height := imgDimensions(sel)
				images = append(images, types.ScrapedImage{
					URL:    src,
					Alt:    alt,
					Width:  width,
					Height: height,
				})
			}
		})
	}

	if len(images) > 0 {
		pe.logger.Info("images found via theme selectors", "url", pageURL, "count", len(images))
		return images, nil
	}

	title, brand := ProductTitle(doc)
	if title == "" || pe.search == nil {
		return nil, nil
	}

	query := title
	if brand != "" {
		query = brand + " " + title
	}
	pe.logger.Info("no selector matches, falling back to image search", "query", query)
	return pe.search.Search(ctx, query)
}

// ProductTitle returns the page's product title and brand, preferring
// OpenGraph meta tags and falling back to common theme title selectors.
func ProductTitle(doc *goquery.Document) (title, brand string) {
	if content, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		title = strings.TrimSpace(content)
	}
	if title == "" {
		raw := doc.Find("title").First().Text()
		title = strings.TrimSpace(strings.SplitN(raw, "|", 2)[0])
	}
	if title == "" {
		for _, selector := range titleSelectors {
			if el := doc.Find(selector).First(); el.Length() > 0 {
				title = strings.TrimSpace(el.Text())
				break
			}
		}
	}

	if content, ok := doc.Find(`meta[property="og:brand"]`).Attr("content"); ok {
		brand = strings.TrimSpace(content)
	}
	return title, brand
}
