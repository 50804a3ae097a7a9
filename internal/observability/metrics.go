package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for the content pipeline.
type Metrics struct {
	// Fetch metrics
	FetchesTotal     atomic.Int64
	FetchesFailed    atomic.Int64
	BrowserFallbacks atomic.Int64
	BytesDownloaded  atomic.Int64

	// Generation metrics
	GenerationsTotal  atomic.Int64
	GenerationsFailed atomic.Int64
	ChunkRetries      atomic.Int64
	FieldsPlaceheld   atomic.Int64

	// Extraction metrics
	ImagesExtracted    atomic.Int64
	PlatformDetections atomic.Int64

	// Template metrics
	TemplatesCreated atomic.Int64
	AssetWriteErrors atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"storeforge_fetches_total", "Total page fetches", m.FetchesTotal.Load()},
		{"storeforge_fetches_failed_total", "Total failed fetches", m.FetchesFailed.Load()},
		{"storeforge_browser_fallbacks_total", "Total browser fallback fetches", m.BrowserFallbacks.Load()},
		{"storeforge_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"storeforge_generations_total", "Total generation runs", m.GenerationsTotal.Load()},
		{"storeforge_generations_failed_total", "Total failed generation runs", m.GenerationsFailed.Load()},
		{"storeforge_chunk_retries_total", "Total chunk generation retries", m.ChunkRetries.Load()},
		{"storeforge_fields_placeheld_total", "Total fields filled with placeholders", m.FieldsPlaceheld.Load()},
		{"storeforge_images_extracted_total", "Total images extracted", m.ImagesExtracted.Load()},
		{"storeforge_platform_detections_total", "Total platform detections", m.PlatformDetections.Load()},
		{"storeforge_templates_created_total", "Total template assets created", m.TemplatesCreated.Load()},
		{"storeforge_asset_write_errors_total", "Total theme asset write failures", m.AssetWriteErrors.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server on its own port.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all counters as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"fetches_total":       m.FetchesTotal.Load(),
		"fetches_failed":      m.FetchesFailed.Load(),
		"browser_fallbacks":   m.BrowserFallbacks.Load(),
		"bytes_downloaded":    m.BytesDownloaded.Load(),
		"generations_total":   m.GenerationsTotal.Load(),
		"generations_failed":  m.GenerationsFailed.Load(),
		"chunk_retries":       m.ChunkRetries.Load(),
		"fields_placeheld":    m.FieldsPlaceheld.Load(),
		"images_extracted":    m.ImagesExtracted.Load(),
		"platform_detections": m.PlatformDetections.Load(),
		"templates_created":   m.TemplatesCreated.Load(),
		"asset_write_errors":  m.AssetWriteErrors.Load(),
	}
}
