package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mkaralis/storeforge/internal/analytics"
	"github.com/mkaralis/storeforge/internal/content"
	"github.com/mkaralis/storeforge/internal/extract"
	"github.com/mkaralis/storeforge/internal/gen"
	"github.com/mkaralis/storeforge/internal/platform"
	"github.com/mkaralis/storeforge/internal/template"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type stubFetcher struct{ html string }

func (s *stubFetcher) Fetch(_ context.Context, _ string) (string, error) { return s.html, nil }
func (s *stubFetcher) Close() error                                      { return nil }
func (s *stubFetcher) Type() string                                      { return "stub" }

type stubModel struct{ response string }

func (s *stubModel) Generate(_ context.Context, _ string) (string, error) {
	return s.response, nil
}

const testPage = `<html><body>
<h1>Acme Widget</h1>
<img src="https://cdn.shop.example/photos/widget.jpg" alt="Widget">
</body></html>`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	tmpl := `{"Product Title": "placeholder"}`
	if err := os.WriteFile(filepath.Join(dir, "product.json"), []byte(tmpl), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	fetch := &stubFetcher{html: testPage}
	service := content.NewService(
		fetch,
		extract.NewCleaner(testLogger),
		extract.NewImageExtractor(testLogger),
		extract.NewPlatformExtractor(nil, testLogger),
		platform.NewDetector(testLogger),
		gen.NewOrchestrator(&stubModel{response: `{"Product Title": "Acme Widget Pro"}`}, 1, time.Millisecond, testLogger),
		template.NewMerger(testLogger),
		nil,
		analytics.NopStore{},
		dir,
		testLogger,
	)

	return NewServer(0, service, analytics.NopStore{}, nil, testLogger)
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/languages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var body struct {
		Languages []string `json:"languages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Languages) != 3 {
		t.Errorf("expected 3 languages, got %v", body.Languages)
	}
}

func TestGenerateContentEndpoint(t *testing.T) {
	payload := `{"url": "https://shop.example/products/widget", "language": "en"}`
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/ai/generate-content", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		TemplateSuffix string `json:"template_suffix"`
		Success        bool   `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success {
		t.Error("expected success")
	}
	if len(body.TemplateSuffix) != 10 {
		t.Errorf("unexpected suffix: %q", body.TemplateSuffix)
	}
}

func TestGenerateContentInvalidURL(t *testing.T) {
	payload := `{"url": "not-a-url", "language": "en"}`
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/ai/generate-content", payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_url") {
		t.Errorf("expected invalid_url code, got %s", rec.Body.String())
	}
}

func TestGenerateContentUnsupportedLanguage(t *testing.T) {
	payload := `{"url": "https://shop.example/p", "language": "de"}`
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/ai/generate-content", payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported_language") {
		t.Errorf("expected unsupported_language code, got %s", rec.Body.String())
	}
}

func TestGenerateContentBadJSON(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/ai/generate-content", "{broken")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestExtractImagesEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/images/extract?url=https%3A%2F%2Fshop.example%2Fp", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("expected 1 image, got %d", body.Count)
	}
}

func TestCreateTemplateEndpoint(t *testing.T) {
	payload := `{"source": "product.json", "content": {"Product Title": "Prebuilt"}, "images": []}`
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/templates/create", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body["template_suffix"]) != 10 {
		t.Errorf("unexpected suffix: %q", body["template_suffix"])
	}
	if !strings.HasPrefix(body["asset_key"], "templates/product.") {
		t.Errorf("unexpected asset key: %q", body["asset_key"])
	}
}

func TestProductsRequireConnectedStore(t *testing.T) {
	s := newTestServer(t)
	for _, target := range []string{"/api/products", "/api/themes"} {
		rec := doRequest(t, s, http.MethodGet, target, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", target, rec.Code)
		}
	}
}

func TestCORSHeader(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/health", "")
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
}
