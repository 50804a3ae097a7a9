package content

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mkaralis/storeforge/internal/analytics"
	"github.com/mkaralis/storeforge/internal/extract"
	"github.com/mkaralis/storeforge/internal/fetcher"
	"github.com/mkaralis/storeforge/internal/gen"
	"github.com/mkaralis/storeforge/internal/platform"
	"github.com/mkaralis/storeforge/internal/template"
	"github.com/mkaralis/storeforge/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type stubFetcher struct {
	html  string
	err   error
	urls  []string
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	s.calls++
	s.urls = append(s.urls, url)
	if s.err != nil {
		return "", s.err
	}
	return s.html, nil
}

func (s *stubFetcher) Close() error { return nil }
func (s *stubFetcher) Type() string { return "stub" }

type stubModel struct {
	response string
}

func (s *stubModel) Generate(_ context.Context, _ string) (string, error) {
	return s.response, nil
}

type fakeAssetWriter struct {
	key     string
	content any
	err     error
}

func (f *fakeAssetWriter) CreateAsset(_ context.Context, key string, content any) error {
	if f.err != nil {
		return f.err
	}
	f.key = key
	f.content = content
	return nil
}

const productPage = `<html>
<head><title>Acme Widget</title></head>
<body>
<h1>Acme Widget</h1>
<p>The finest widget money can buy.</p>
<img src="https://cdn.shop.example/photos/widget.jpg" alt="Widget" width="800" height="600">
</body>
</html>`

const sourceTemplate = `/*
 * Product template
 */
{
  "Product Title": "placeholder title",
  "sections": {
    "gallery": {
      "settings": {"image": "old-image-ref"}
    }
  }
}`

func writeTemplate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "product.json")
	if err := os.WriteFile(path, []byte(sourceTemplate), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return dir
}

func newTestService(t *testing.T, fetch fetcher.Fetcher, assets AssetWriter) *Service {
	t.Helper()
	return NewService(
		fetch,
		extract.NewCleaner(testLogger),
		extract.NewImageExtractor(testLogger),
		extract.NewPlatformExtractor(nil, testLogger),
		platform.NewDetector(testLogger),
		gen.NewOrchestrator(&stubModel{response: `{"Product Title": "Acme Widget Pro"}`}, 1, time.Millisecond, testLogger),
		template.NewMerger(testLogger),
		assets,
		analytics.NopStore{},
		writeTemplate(t),
		testLogger,
	)
}

func TestGenerateTemplateContent(t *testing.T) {
	fetch := &stubFetcher{html: productPage}
	assets := &fakeAssetWriter{}
	s := newTestService(t, fetch, assets)

	result, err := s.GenerateTemplateContent(context.Background(), "product.json", "https://shop.example/products/widget", "en")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !result.Success {
		t.Error("expected success")
	}
	if len(result.TemplateSuffix) != 10 {
		t.Errorf("expected 10-digit suffix, got %q", result.TemplateSuffix)
	}
	if result.ImageCount != 1 {
		t.Errorf("expected 1 image, got %d", result.ImageCount)
	}
	if result.Content["Product Title"] != "Acme Widget Pro" {
		t.Errorf("model content missing from result: %v", result.Content["Product Title"])
	}

	wantKey := "templates/product." + result.TemplateSuffix + ".json"
	if assets.key != wantKey {
		t.Errorf("asset key: got %q, want %q", assets.key, wantKey)
	}

	doc := assets.content.(map[string]any)
	if doc["Product Title"] != "Acme Widget Pro" {
		t.Errorf("title not merged into persisted template: %v", doc["Product Title"])
	}
	imageRef := doc["sections"].(map[string]any)["gallery"].(map[string]any)["settings"].(map[string]any)["image"]
	if imageRef != "shopify://shop_images/widget.jpg" {
		t.Errorf("image slot not filled from extracted pool: %v", imageRef)
	}
}

func TestGenerateRejectsUnsupportedLanguage(t *testing.T) {
	fetch := &stubFetcher{html: productPage}
	s := newTestService(t, fetch, nil)

	_, err := s.GenerateTemplateContent(context.Background(), "product.json", "https://shop.example/p", "de")
	if !errors.Is(err, types.ErrUnsupportedLang) {
		t.Errorf("expected ErrUnsupportedLang, got %v", err)
	}
	if fetch.calls != 0 {
		t.Error("fetch attempted despite invalid language")
	}
}

func TestGenerateRejectsInvalidURL(t *testing.T) {
	fetch := &stubFetcher{html: productPage}
	s := newTestService(t, fetch, nil)

	_, err := s.GenerateTemplateContent(context.Background(), "product.json", "ftp://example.com/p", "en")
	if !errors.Is(err, types.ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}

func TestGenerateWithoutAssetWriter(t *testing.T) {
	fetch := &stubFetcher{html: productPage}
	s := newTestService(t, fetch, nil)

	result, err := s.GenerateTemplateContent(context.Background(), "product.json", "https://shop.example/p", "en")
	if err != nil {
		t.Fatalf("generate without store: %v", err)
	}
	if !result.Success {
		t.Error("expected success when no store is connected")
	}
}

func TestGenerateAssetWriteFailure(t *testing.T) {
	fetch := &stubFetcher{html: productPage}
	assets := &fakeAssetWriter{err: errors.New("theme not found")}
	s := newTestService(t, fetch, assets)

	_, err := s.GenerateTemplateContent(context.Background(), "product.json", "https://shop.example/p", "en")
	if err == nil {
		t.Fatal("expected asset write failure to propagate")
	}
}

func TestSchemeFallbackOnCertificateError(t *testing.T) {
	certErr := &types.FetchError{URL: "https://shop.example/p", Certificate: true}
	fetch := &retryFetcher{firstErr: certErr, html: productPage}
	s := newTestService(t, fetch, nil)

	images, err := s.ExtractImages(context.Background(), "https://shop.example/p")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(images) != 1 {
		t.Errorf("expected extraction to succeed via http retry, got %d images", len(images))
	}
	if len(fetch.urls) != 2 || !strings.HasPrefix(fetch.urls[1], "http://") {
		t.Errorf("expected plain-http retry, got %v", fetch.urls)
	}
}

// retryFetcher fails the first call and succeeds afterwards.
type retryFetcher struct {
	firstErr error
	html     string
	urls     []string
}

func (r *retryFetcher) Fetch(_ context.Context, url string) (string, error) {
	r.urls = append(r.urls, url)
	if len(r.urls) == 1 {
		return "", r.firstErr
	}
	return r.html, nil
}

func (r *retryFetcher) Close() error { return nil }
func (r *retryFetcher) Type() string { return "retry" }

func TestCreateTemplateFromSuppliedContent(t *testing.T) {
	assets := &fakeAssetWriter{}
	s := newTestService(t, &stubFetcher{html: productPage}, assets)

	suffix, err := s.CreateTemplate(context.Background(), "product.json",
		types.GenerationResult{"Product Title": "Prebuilt Title"},
		[]types.ScrapedImage{{URL: "https://cdn.shop.example/photos/widget.jpg"}},
	)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if len(suffix) != 10 {
		t.Errorf("unexpected suffix: %q", suffix)
	}

	doc := assets.content.(map[string]any)
	if doc["Product Title"] != "Prebuilt Title" {
		t.Errorf("content not merged: %v", doc["Product Title"])
	}
}

func TestCreateTemplateMissingSource(t *testing.T) {
	s := newTestService(t, &stubFetcher{html: productPage}, nil)

	_, err := s.CreateTemplate(context.Background(), "absent.json", nil, nil)
	var te *types.TemplateError
	if !errors.As(err, &te) {
		t.Errorf("expected TemplateError, got %v", err)
	}
}

func TestDetectPlatform(t *testing.T) {
	page := `<html><body><script src="https://cdn.shopify.com/s/files/1/theme.js"></script></body></html>`
	fetch := &stubFetcher{html: page}
	s := newTestService(t, fetch, nil)

	score, err := s.DetectPlatform(context.Background(), "https://shop.myshopify.com/products/widget")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if score.Platform != "shopify" {
		t.Errorf("expected shopify, got %q", score.Platform)
	}
}
