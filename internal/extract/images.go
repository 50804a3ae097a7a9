package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkaralis/storeforge/internal/types"
)

// ImageExtractor discovers product image candidates across every source
// a storefront page embeds them in: img tags (including lazy-load data
// attributes and srcset), inline background-image CSS, and structured
// data blocks.
type ImageExtractor struct {
	logger *slog.Logger
}

// NewImageExtractor creates a new image extractor.
func NewImageExtractor(logger *slog.Logger) *ImageExtractor {
	return &ImageExtractor{
		logger: logger.With("component", "image_extractor"),
	}
}

// lazySrcAttrs are tried in priority order before the plain src attribute.
var lazySrcAttrs = []string{
	"data-src",
	"data-lazy-src",
	"data-original",
	"data-fallback-src",
	"data-zoom-image",
	"data-large_image",
	"data-full-image",
	"data-image",
	"data-lazy",
}

var backgroundURLRe = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)
var styleWidthRe = regexp.MustCompile(`width:\s*(\d+)px`)
var styleHeightRe = regexp.MustCompile(`height:\s*(\d+)px`)

// Extract runs the broad discovery pass over the page markup. Discovered
// URLs are resolved against pageURL and deduplicated by exact string
// match within this call.
func (ie *ImageExtractor) Extract(pageURL, rawHTML string) ([]types.ScrapedImage, error) {
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

	add := func(img types.ScrapedImage) {
		if img.URL == "" || seen[img.URL] {
			return
		}
		if !IsLikelyProductImage(img.URL) {
			return
		}
		seen[img.URL] = true
		images = append(images, img)
	}

	// Pass 1: img elements.
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := imgSource(sel)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		src = resolveURL(base, src)

		if srcset, ok := sel.Attr("srcset"); ok {
			src = resolveURL(base, largestFromSrcset(srcset, src))
		}

		width, height := imgDimensions(sel)
		cssClass, _ := sel.Attr("class")
		alt, _ := sel.Attr("alt")
		add(types.ScrapedImage{
			URL:        src,
			Alt:        alt,
			Width:      width,
			Height:     height,
			CSSClasses: cssClass,
		})
	})

	// Pass 2: inline background-image styles.
	doc.Find("div[style], section[style], a[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		if !strings.Contains(style, "background-image") {
			return
		}
		m := backgroundURLRe.FindStringSubmatch(style)
		if m == nil {
			return
		}
		label, _ := sel.Attr("aria-label")
		add(types.ScrapedImage{URL: resolveURL(base, m[1]), Alt: label})
	})

	// Pass 3: structured data blocks (image/thumbnail keys, recursively).
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}
		walkStructuredImages(data, func(src string) {
			add(types.ScrapedImage{URL: resolveURL(base, src)})
		})
	})

	ie.logger.Debug("image discovery complete", "url", pageURL, "count", len(images))
	return images, nil
}

// walkStructuredImages descends nested objects and lists looking for
// string values under image/thumbnail keys.
func walkStructuredImages(node any, emit func(string)) {
	switch v := node.(type) {
	case map[string]any:
		for key, value := range v {
			if s, ok := value.(string); ok && (key == "image" || key == "thumbnail") {
				emit(s)
				continue
			}
			walkStructuredImages(value, emit)
		}
	case []any:
		for _, item := range v {
			walkStructuredImages(item, emit)
		}
	}
}

// imgSource returns the best source attribute: the lazy-load data
// attributes first, then src, then any attribute whose name hints at an
// image source.
func imgSource(sel *goquery.Selection) string {
	for _, attr := range lazySrcAttrs {
		if v, ok := sel.Attr(attr); ok && v != "" {
			return v
		}
	}
	if v, ok := sel.Attr("src"); ok && v != "" {
		return v
	}
	for _, node := range sel.Nodes {
		for _, a := range node.Attr {
			lower := strings.ToLower(a.Key)
			if (strings.Contains(lower, "src") || strings.Contains(lower, "image")) && a.Val != "" {
				return a.Val
			}
		}
	}
	return ""
}

// imgDimensions pulls width/height from attributes, data attributes, or
// an inline style, in that order.
func imgDimensions(sel *goquery.Selection) (int, int) {
	width := firstAttrInt(sel, "width", "data-width", "data-original-width")
	height := firstAttrInt(sel, "height", "data-height", "data-original-height")

	if width == 0 || height == 0 {
		style, _ := sel.Attr("style")
		if width == 0 {
			if m := styleWidthRe.FindStringSubmatch(style); m != nil {
				width, _ = strconv.Atoi(m[1])
			}
		}
		if height == 0 {
			if m := styleHeightRe.FindStringSubmatch(style); m != nil {
				height, _ = strconv.Atoi(m[1])
			}
		}
	}
	return width, height
}

func firstAttrInt(sel *goquery.Selection, attrs ...string) int {
	for _, attr := range attrs {
		if v, ok := sel.Attr(attr); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// largestFromSrcset picks the widest candidate from a srcset attribute,
// falling back to the given source on any parse trouble.
func largestFromSrcset(srcset, fallback string) string {
	maxWidth := 0
	largest := fallback
	for _, entry := range strings.Split(srcset, ",") {
		parts := strings.Fields(strings.TrimSpace(entry))
		if len(parts) != 2 {
			continue
		}
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, parts[1])
		w, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if w > maxWidth {
			maxWidth = w
			largest = parts[0]
		}
	}
	return largest
}

// resolveURL makes a discovered source absolute against the page URL.
// Protocol-relative URLs get https.
func resolveURL(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

// skipPatterns mark URLs that are almost never product shots.
var skipPatterns = []string{
	"icon", "logo", "placeholder", "thumbnail",
	"avatar", "favicon", "social", "banner",
	"tracking", "pixel", "advertisement",
	"sprite", "loading", "blank",
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// qualityIndicators mark URLs that likely point at full-size product media.
var qualityIndicators = []string{"large", "full", "zoom", "high", "original", "product", "hero", "560x560"}

// cdnPatterns are hosting paths known to serve product imagery.
var cdnPatterns = []string{"cdn.shopify.com", "webstorage.gr", "mmimages"}

// IsLikelyProductImage filters out icons, logos, tracking pixels and
// other non-product URLs. A candidate passes when it avoids the skip
// patterns and carries an image extension, a quality indicator, or a
// known CDN path.
func IsLikelyProductImage(imageURL string) bool {
	lower := strings.ToLower(imageURL)

	for _, p := range skipPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}

	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	for _, q := range qualityIndicators {
		if strings.Contains(lower, q) {
			return true
		}
	}
	for _, cdn := range cdnPatterns {
		if strings.Contains(lower, cdn) {
			return true
		}
	}
	return false
}
