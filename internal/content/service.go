package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkaralis/storeforge/internal/analytics"
	"github.com/mkaralis/storeforge/internal/catalog"
	"github.com/mkaralis/storeforge/internal/config"
	"github.com/mkaralis/storeforge/internal/extract"
	"github.com/mkaralis/storeforge/internal/fetcher"
	"github.com/mkaralis/storeforge/internal/gen"
	"github.com/mkaralis/storeforge/internal/observability"
	"github.com/mkaralis/storeforge/internal/platform"
	"github.com/mkaralis/storeforge/internal/template"
	"github.com/mkaralis/storeforge/internal/types"
)

// GenerateResult is the outcome of one end-to-end generation run.
type GenerateResult struct {
	TemplateSuffix string                 `json:"template_suffix"`
	Success        bool                   `json:"success"`
	Platform       types.PlatformScore    `json:"platform"`
	Usage          types.TokenUsage       `json:"token_usage"`
	ImageCount     int                    `json:"image_count"`
	Content        types.GenerationResult `json:"content"`
}

// AssetWriter is the storefront capability the service needs to persist
// merged templates.
type AssetWriter interface {
	CreateAsset(ctx context.Context, key string, content any) error
}

// Service composes the full pipeline: fetch, extract, detect, generate,
// merge, persist.
type Service struct {
	fetch        fetcher.Fetcher
	cleaner      *extract.Cleaner
	images       *extract.ImageExtractor
	platformMode *extract.PlatformExtractor
	detector     *platform.Detector
	orchestrator *gen.Orchestrator
	merger       *template.Merger
	assets       AssetWriter
	store        analytics.Store
	metrics      *observability.Metrics
	templatesDir string
	logger       *slog.Logger
}

// NewService wires the pipeline components together. assets may be nil
// when no store is connected; store may be a NopStore.
func NewService(
	fetch fetcher.Fetcher,
	cleaner *extract.Cleaner,
	images *extract.ImageExtractor,
	platformMode *extract.PlatformExtractor,
	detector *platform.Detector,
	orchestrator *gen.Orchestrator,
	merger *template.Merger,
	assets AssetWriter,
	store analytics.Store,
	templatesDir string,
	logger *slog.Logger,
) *Service {
	return &Service{
		fetch:        fetch,
		cleaner:      cleaner,
		images:       images,
		platformMode: platformMode,
		detector:     detector,
		orchestrator: orchestrator,
		merger:       merger,
		assets:       assets,
		store:        store,
		templatesDir: templatesDir,
		logger:       logger.With("component", "content_service"),
	}
}

// SetMetrics attaches operational counters to the service.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

func (s *Service) count(f func(m *observability.Metrics)) {
	if s.metrics != nil {
		f(s.metrics)
	}
}

// GenerateTemplateContent runs the end-to-end pipeline for one product
// URL and persists the merged document as a theme asset. The language
// is validated before any network activity.
func (s *Service) GenerateTemplateContent(ctx context.Context, sourceTemplate, pageURL, language string) (*GenerateResult, error) {
	if err := catalog.ValidateLanguage(language); err != nil {
		return nil, err
	}
	if err := config.ValidateURL(pageURL); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}

	started := time.Now()

	rawHTML, err := s.fetchWithSchemeFallback(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	cleaned, _, err := s.cleaner.Clean(rawHTML)
	if err != nil {
		return nil, err
	}

	score := s.detector.Score(pageURL, rawHTML)
	s.count(func(m *observability.Metrics) { m.PlatformDetections.Add(1) })

	images, err := s.extractForPlatform(ctx, pageURL, rawHTML, score)
	if err != nil {
		return nil, err
	}
	s.count(func(m *observability.Metrics) { m.ImagesExtracted.Add(int64(len(images))) })

	s.count(func(m *observability.Metrics) { m.GenerationsTotal.Add(1) })
	generated, usage, err := s.orchestrator.Generate(ctx, pageURL, language, cleaned)
	if err != nil {
		s.count(func(m *observability.Metrics) { m.GenerationsFailed.Add(1) })
		return nil, err
	}
	s.count(func(m *observability.Metrics) { m.FieldsPlaceheld.Add(countPlaceholders(generated)) })

	doc, err := template.Load(filepath.Join(s.templatesDir, sourceTemplate))
	if err != nil {
		return nil, err
	}

	pool := template.PrepareImagePool(images, s.logger)
	s.merger.Merge(doc, generated, pool)

	suffix := template.RandomSuffix()

	if s.assets != nil {
		key := fmt.Sprintf("templates/product.%s.json", suffix)
		if err := s.assets.CreateAsset(ctx, key, map[string]any(doc)); err != nil {
			s.count(func(m *observability.Metrics) { m.AssetWriteErrors.Add(1) })
			s.recordRun(pageURL, language, score, "", len(images), usage, time.Since(started), false)
			return nil, err
		}
		s.count(func(m *observability.Metrics) { m.TemplatesCreated.Add(1) })
	}

	s.recordRun(pageURL, language, score, suffix, len(images), usage, time.Since(started), true)

	return &GenerateResult{
		TemplateSuffix: suffix,
		Success:        true,
		Platform:       score,
		Usage:          usage,
		ImageCount:     len(images),
		Content:        generated,
	}, nil
}

// CreateTemplate merges caller-supplied content and images into the
// source template and publishes it under a fresh suffix. This is the
// merge-and-publish path for content produced in an earlier run.
func (s *Service) CreateTemplate(ctx context.Context, sourceTemplate string, content types.GenerationResult, images []types.ScrapedImage) (string, error) {
	doc, err := template.Load(filepath.Join(s.templatesDir, sourceTemplate))
	if err != nil {
		return "", err
	}

	pool := template.PrepareImagePool(images, s.logger)
	s.merger.Merge(doc, content, pool)

	suffix := template.RandomSuffix()

	if s.assets != nil {
		key := fmt.Sprintf("templates/product.%s.json", suffix)
		if err := s.assets.CreateAsset(ctx, key, map[string]any(doc)); err != nil {
			s.count(func(m *observability.Metrics) { m.AssetWriteErrors.Add(1) })
			return "", err
		}
		s.count(func(m *observability.Metrics) { m.TemplatesCreated.Add(1) })
	}

	s.logger.Info("template created", "source", sourceTemplate, "suffix", suffix)
	return suffix, nil
}

// ExtractImages runs the standalone extraction path: platform-specific
// selectors when the page is recognized, generic discovery otherwise.
func (s *Service) ExtractImages(ctx context.Context, pageURL string) ([]types.ScrapedImage, error) {
	if err := config.ValidateURL(pageURL); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}

	rawHTML, err := s.fetchWithSchemeFallback(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	score := s.detector.Score(pageURL, rawHTML)
	return s.extractForPlatform(ctx, pageURL, rawHTML, score)
}

// DetectPlatform fetches the page and scores it against the known
// platform signatures.
func (s *Service) DetectPlatform(ctx context.Context, pageURL string) (types.PlatformScore, error) {
	if err := config.ValidateURL(pageURL); err != nil {
		return types.PlatformScore{}, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}

	rawHTML, err := s.fetchWithSchemeFallback(ctx, pageURL)
	if err != nil {
		return types.PlatformScore{}, err
	}
	return s.detector.Score(pageURL, rawHTML), nil
}

// fetchWithSchemeFallback fetches the page, downgrading to plain http
// when the https attempt failed on a certificate error. The downgrade is
// logged as a warning so operators can see the insecure retry.
func (s *Service) fetchWithSchemeFallback(ctx context.Context, pageURL string) (string, error) {
	rawHTML, err := s.fetch.Fetch(ctx, pageURL)
	if err == nil {
		return rawHTML, nil
	}

	var fe *types.FetchError
	if errors.As(err, &fe) && fe.Certificate && strings.HasPrefix(pageURL, "https://") {
		insecureURL := "http://" + strings.TrimPrefix(pageURL, "https://")
		s.logger.Warn("certificate verification failed, retrying over plain http", "url", insecureURL)
		if rawHTML, retryErr := s.fetch.Fetch(ctx, insecureURL); retryErr == nil {
			return rawHTML, nil
		}
	}
	return "", err
}

// extractForPlatform prefers the platform-specific extraction mode and
// falls back to generic discovery when it yields nothing.
func (s *Service) extractForPlatform(ctx context.Context, pageURL, rawHTML string, score types.PlatformScore) ([]types.ScrapedImage, error) {
	if score.Platform == "shopify" && s.platformMode != nil {
		images, err := s.platformMode.ExtractShopify(ctx, pageURL, rawHTML)
		if err != nil {
			return nil, err
		}
		if len(images) > 0 {
			return images, nil
		}
	}
	return s.images.Extract(pageURL, rawHTML)
}

// countPlaceholders tallies fields that ended up with a failure or
// reconciliation marker instead of generated content.
func countPlaceholders(generated types.GenerationResult) int64 {
	var n int64
	for _, value := range generated {
		if value == gen.PlaceholderFailed || value == gen.PlaceholderNotGenerated {
			n++
		}
	}
	return n
}

func (s *Service) recordRun(pageURL, language string, score types.PlatformScore, suffix string, imageCount int, usage types.TokenUsage, duration time.Duration, success bool) {
	run := &types.GenerationRun{
		URL:            pageURL,
		Language:       language,
		Platform:       score,
		TemplateSuffix: suffix,
		ImageCount:     imageCount,
		Usage:          usage,
		Duration:       duration,
		Success:        success,
		CreatedAt:      time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record generation run", "error", err)
	}
}
