package platform

import (
	"log/slog"
	"os"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const shopifyPage = `<html>
<head>
<script src="https://cdn.shopify.com/s/files/1/0001/theme.js"></script>
</head>
<body><div class="product">Widget</div></body>
</html>`

const wordpressPage = `<html>
<head>
<meta name="generator" content="WordPress 6.4">
<link rel="stylesheet" href="/wp-content/themes/shop/style.css">
<script src="/wp-includes/js/jquery.js"></script>
</head>
<body></body>
</html>`

const plainPage = `<html><head><title>Hello</title></head><body><p>Nothing here.</p></body></html>`

func TestScoreShopify(t *testing.T) {
	d := NewDetector(testLogger)

	score := d.Score("https://shop.myshopify.com/products/widget", shopifyPage)
	if score.Platform != "shopify" {
		t.Fatalf("expected shopify, got %q", score.Platform)
	}
	if score.Confidence < 80 {
		t.Errorf("expected high confidence, got %d", score.Confidence)
	}
	if score.Confidence > 100 {
		t.Errorf("confidence exceeds cap: %d", score.Confidence)
	}
}

func TestScoreWordpress(t *testing.T) {
	d := NewDetector(testLogger)

	score := d.Score("https://example.com/shop/widget", wordpressPage)
	if score.Platform != "wordpress" {
		t.Fatalf("expected wordpress, got %q", score.Platform)
	}
	if score.Confidence <= confidenceThreshold {
		t.Errorf("expected confidence above threshold, got %d", score.Confidence)
	}
}

func TestScoreUnknown(t *testing.T) {
	d := NewDetector(testLogger)

	score := d.Score("https://example.com/page", plainPage)
	if score.Platform != "unknown" {
		t.Errorf("expected unknown, got %q", score.Platform)
	}
	if score.Confidence != 0 {
		t.Errorf("expected zero confidence, got %d", score.Confidence)
	}
}

func TestScoreCaseInsensitive(t *testing.T) {
	d := NewDetector(testLogger)

	page := `<html><body><div>CDN.SHOPIFY.COM asset host, data-shopify section</div></body></html>`
	score := d.Score("https://SHOP.MYSHOPIFY.COM/x", page)
	if score.Platform != "shopify" {
		t.Errorf("expected case-insensitive match, got %q", score.Platform)
	}
}

func TestScoreThresholdBoundary(t *testing.T) {
	d := NewDetector(testLogger)

	// A single /products/ URL hit scores exactly 30, which is not enough.
	score := d.Score("https://example.com/products/widget", plainPage)
	if score.Platform != "unknown" {
		t.Errorf("score at threshold should report unknown, got %q", score.Platform)
	}
}
