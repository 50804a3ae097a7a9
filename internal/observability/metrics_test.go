package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestServeHTTPExpositionFormat(t *testing.T) {
	m := NewMetrics(testLogger)
	m.FetchesTotal.Add(3)
	m.GenerationsTotal.Add(2)
	m.TemplatesCreated.Add(1)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE storeforge_fetches_total counter",
		"storeforge_fetches_total 3",
		"storeforge_generations_total 2",
		"storeforge_templates_created_total 1",
		"storeforge_fetches_failed_total 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition output missing %q", want)
		}
	}

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ImagesExtracted.Add(7)

	snap := m.Snapshot()
	if snap["images_extracted"] != 7 {
		t.Errorf("snapshot value: %d", snap["images_extracted"])
	}
	if len(snap) != 12 {
		t.Errorf("expected 12 counters, got %d", len(snap))
	}
}
