package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mkaralis/storeforge/internal/analytics"
	"github.com/mkaralis/storeforge/internal/catalog"
	"github.com/mkaralis/storeforge/internal/config"
	"github.com/mkaralis/storeforge/internal/content"
	"github.com/mkaralis/storeforge/internal/shopify"
	"github.com/mkaralis/storeforge/internal/template"
	"github.com/mkaralis/storeforge/internal/types"
)

// Server exposes the content pipeline over REST.
type Server struct {
	mux     *http.ServeMux
	port    int
	service *content.Service
	store   analytics.Store
	shop    *shopify.Client
	logger  *slog.Logger
}

// NewServer creates the API server. shop may be nil when no store is
// connected; the product and theme endpoints then report that state.
func NewServer(port int, service *content.Service, store analytics.Store, shop *shopify.Client, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		port:    port,
		service: service,
		store:   store,
		shop:    shop,
		logger:  logger.With("component", "api_server"),
	}
	s.registerRoutes()
	return s
}

// Start runs the HTTP server; it blocks until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

// Handler exposes the route mux, mostly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/languages", s.handleLanguages)

	s.mux.HandleFunc("POST /api/ai/generate-content", s.handleGenerateContent)
	s.mux.HandleFunc("POST /api/templates/create", s.handleCreateTemplate)
	s.mux.HandleFunc("GET /api/images/extract", s.handleExtractImages)
	s.mux.HandleFunc("GET /api/platform/detect", s.handleDetectPlatform)

	s.mux.HandleFunc("GET /api/products", s.handleListProducts)
	s.mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	s.mux.HandleFunc("DELETE /api/products/{id}", s.handleDeleteProduct)
	s.mux.HandleFunc("POST /api/products/{id}/duplicate", s.handleDuplicateProduct)
	s.mux.HandleFunc("GET /api/themes", s.handleListThemes)
	s.mux.HandleFunc("GET /api/themes/{id}/assets", s.handleListThemeAssets)

	s.mux.HandleFunc("GET /api/analytics/summary", s.handleAnalyticsSummary)
	s.mux.HandleFunc("GET /api/analytics/runs", s.handleAnalyticsRuns)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"languages": catalog.SupportedLanguages(),
	})
}

func (s *Server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL      string `json:"url"`
		Language string `json:"language"`
		Template string `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if body.Template == "" {
		body.Template = "product.json"
	}
	if body.Language == "" {
		body.Language = "en"
	}

	result, err := s.service.GenerateTemplateContent(r.Context(), body.Template, body.URL, body.Language)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Source  string                 `json:"source"`
		Content types.GenerationResult `json:"content"`
		Images  []types.ScrapedImage   `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if body.Source == "" {
		body.Source = "product.json"
	}

	suffix, err := s.service.CreateTemplate(r.Context(), body.Source, body.Content, body.Images)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{
		"template_suffix": suffix,
		"asset_key":       "templates/product." + suffix + ".json",
	})
}

func (s *Server) handleExtractImages(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	images, err := s.service.ExtractImages(r.Context(), pageURL)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"url":    pageURL,
		"count":  len(images),
		"images": images,
	})
}

func (s *Server) handleDetectPlatform(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	score, err := s.service.DetectPlatform(r.Context(), pageURL)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, score)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if s.shop == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "store not connected"})
		return
	}
	products, err := s.shop.GetProducts(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"products": products})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if s.shop == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "store not connected"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	product, err := s.shop.GetProduct(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"product": product})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if s.shop == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "store not connected"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	if err := s.shop.DeleteProduct(r.Context(), id); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDuplicateProduct(w http.ResponseWriter, r *http.Request) {
	if s.shop == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "store not connected"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	product, err := s.shop.DuplicateProduct(r.Context(), id, template.RandomSuffix())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{"product": product})
}

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	if s.shop == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "store not connected"})
		return
	}
	themes, err := s.shop.GetThemes(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"themes": themes})
}

func (s *Server) handleListThemeAssets(w http.ResponseWriter, r *http.Request) {
	if s.shop == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "store not connected"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid theme id"})
		return
	}
	assets, err := s.shop.GetThemeAssets(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"assets": assets})
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, summary)
}

func (s *Server) handleAnalyticsRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	runs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs})
}

// errorResponse maps pipeline errors onto user-facing messages. TLS
// failures and site blocks get explanatory text; everything else is a
// generic failure with an error code for triage.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	var fe *types.FetchError
	switch {
	case errors.Is(err, types.ErrInvalidURL):
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{
			"error": "invalid URL",
			"code":  "invalid_url",
		})
	case errors.Is(err, types.ErrUnsupportedLang):
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
			"code":  "unsupported_language",
		})
	case errors.As(err, &fe) && fe.AccessDenied:
		s.jsonResponse(w, http.StatusBadGateway, map[string]string{
			"error": "the site denied access to its pages",
			"code":  "access_denied",
		})
	case errors.As(err, &fe) && fe.Certificate:
		s.jsonResponse(w, http.StatusBadGateway, map[string]string{
			"error": "the site's SSL certificate could not be verified; a retry may succeed",
			"code":  "certificate_error",
		})
	case errors.As(err, &fe):
		s.jsonResponse(w, http.StatusBadGateway, map[string]string{
			"error": "could not retrieve the page",
			"code":  "fetch_failed",
		})
	default:
		s.logger.Error("request failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{
			"error": "an unexpected error occurred",
			"code":  errorCode(err),
		})
	}
}

func errorCode(err error) string {
	var ee *types.ExtractError
	var ge *types.GenerateError
	var te *types.TemplateError
	var se *types.StoreError
	switch {
	case errors.As(err, &ee):
		return "extract_failed"
	case errors.As(err, &ge):
		return "generation_failed"
	case errors.As(err, &te):
		return "template_invalid"
	case errors.As(err, &se):
		return "store_api_failed"
	default:
		return "internal_error"
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
