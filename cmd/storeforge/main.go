package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkaralis/storeforge/internal/analytics"
	"github.com/mkaralis/storeforge/internal/api"
	"github.com/mkaralis/storeforge/internal/config"
	"github.com/mkaralis/storeforge/internal/content"
	"github.com/mkaralis/storeforge/internal/extract"
	"github.com/mkaralis/storeforge/internal/fetcher"
	"github.com/mkaralis/storeforge/internal/gen"
	"github.com/mkaralis/storeforge/internal/observability"
	"github.com/mkaralis/storeforge/internal/platform"
	"github.com/mkaralis/storeforge/internal/shopify"
	"github.com/mkaralis/storeforge/internal/template"
)

var (
	cfgFile  string
	verbose  bool
	language string
	tmplName string
	port     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "storeforge",
		Short: "StoreForge - AI-powered storefront content automation",
		Long: `StoreForge turns a product page URL into a complete storefront template.

Features:
  • Resilient page fetching with browser-like identity rotation
  • Headless browser fallback for bot-protected sites
  • E-commerce platform detection (Shopify, WordPress, Wix, Amazon)
  • Product image discovery across tags, styles and structured data
  • AI content generation with chunked retry fallback
  • Template merging with markup-preserving substitution
  • Theme asset publishing via the admin API`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(extractImagesCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE:  runServe,
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	if cfg.Metrics.Enabled && deps.metrics != nil {
		if err := deps.metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	server := api.NewServer(cfg.Server.Port, deps.service, deps.store, deps.shop, logger)
	return server.Start()
}

// generateCmd creates the "generate" subcommand.
func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [url]",
		Short: "Generate template content for a product URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	cmd.Flags().StringVarP(&language, "language", "l", "en", "content language (en, el, pl)")
	cmd.Flags().StringVarP(&tmplName, "template", "t", "product.json", "source template file name")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	start := time.Now()
	result, err := deps.service.GenerateTemplateContent(context.Background(), tmplName, args[0], language)
	if err != nil {
		return err
	}

	fmt.Printf("\n✅ Content generated in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Template:  templates/product.%s.json\n", result.TemplateSuffix)
	fmt.Printf("   Platform:  %s (confidence %d)\n", result.Platform.Platform, result.Platform.Confidence)
	fmt.Printf("   Images:    %d\n", result.ImageCount)
	fmt.Printf("   Tokens:    %d in / %d out ($%.6f)\n",
		result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.Pricing.TotalCost)
	return nil
}

// extractImagesCmd creates the "extract-images" subcommand.
func extractImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract-images [url]",
		Short: "Extract product images from a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			deps, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.close()

			images, err := deps.service.ExtractImages(context.Background(), args[0])
			if err != nil {
				return err
			}

			encoded, _ := json.MarshalIndent(images, "", "  ")
			fmt.Println(string(encoded))
			fmt.Printf("\n%d images found\n", len(images))
			return nil
		},
	}
}

// detectCmd creates the "detect" subcommand.
func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [url]",
		Short: "Detect the e-commerce platform of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			deps, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.close()

			score, err := deps.service.DetectPlatform(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s (confidence %d)\n", score.Platform, score.Confidence)
			return nil
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  Request Timeout:  %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Delay Range:      %s - %s\n", cfg.Fetcher.MinDelay, cfg.Fetcher.MaxDelay)
			fmt.Printf("  Max Body Size:    %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  User Agents:      %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Enabled:          %v\n", cfg.Browser.Enabled)
			fmt.Printf("  Pool Size:        %d\n", cfg.Browser.PoolSize)
			fmt.Printf("  Page Timeout:     %s\n", cfg.Browser.PageTimeout)
			fmt.Printf("\nAI:\n")
			fmt.Printf("  Provider:         %s\n", cfg.AI.Provider)
			fmt.Printf("  Model:            %s\n", cfg.AI.Model)
			fmt.Printf("  Chunk Retries:    %d\n", cfg.AI.ChunkRetries)
			fmt.Printf("  Retry Delay:      %s\n", cfg.AI.RetryDelay)
			fmt.Printf("\nShopify:\n")
			fmt.Printf("  Store URL:        %s\n", cfg.Shopify.StoreURL)
			fmt.Printf("  API Version:      %s\n", cfg.Shopify.APIVersion)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Enabled:          %v\n", cfg.Storage.Enabled)
			fmt.Printf("  Database:         %s\n", cfg.Storage.Database)
			fmt.Printf("\nServer:\n")
			fmt.Printf("  Port:             %d\n", cfg.Server.Port)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:          %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:             %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("StoreForge %s\n", config.Version)
		},
	}
}

// pipelineDeps bundles the wired pipeline with its closable resources.
type pipelineDeps struct {
	service *content.Service
	store   analytics.Store
	shop    *shopify.Client
	fetch   fetcher.Fetcher
	metrics *observability.Metrics
}

func (d *pipelineDeps) close() {
	if err := d.fetch.Close(); err != nil {
		slog.Warn("fetcher close failed", "error", err)
	}
	if err := d.store.Close(); err != nil {
		slog.Warn("store close failed", "error", err)
	}
}

// buildPipeline wires the full component graph from configuration.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*pipelineDeps, error) {
	stealth, err := fetcher.NewStealthFetcher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	strategies := []fetcher.Fetcher{stealth}
	if cfg.Browser.Enabled {
		strategies = append(strategies, fetcher.NewBrowserFetcher(cfg, logger))
	}
	chain := fetcher.NewChainFetcher(logger, strategies...)

	cleaner := extract.NewCleaner(logger)
	images := extract.NewImageExtractor(logger)

	var search *extract.SearchClient
	if cfg.Search.BingKey != "" || cfg.Search.GoogleKey != "" {
		search = extract.NewSearchClient(&cfg.Search, logger)
	}
	platformMode := extract.NewPlatformExtractor(search, logger)

	detector := platform.NewDetector(logger)
	orchestrator := gen.NewOrchestrator(
		gen.NewLLMClient(cfg.AI, logger),
		cfg.AI.ChunkRetries,
		cfg.AI.RetryDelay,
		logger,
	)
	merger := template.NewMerger(logger)

	var shop *shopify.Client
	var assets content.AssetWriter
	if cfg.Shopify.StoreURL != "" && cfg.Shopify.AccessToken != "" {
		shop, err = shopify.NewClient(cfg.Shopify, logger)
		if err != nil {
			return nil, fmt.Errorf("create shopify client: %w", err)
		}
		assets = shop
	} else {
		logger.Warn("no store configured, merged templates will not be persisted")
	}

	var store analytics.Store = analytics.NopStore{}
	if cfg.Storage.Enabled {
		mongoStore, err := analytics.NewMongoStore(cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("create analytics store: %w", err)
		}
		store = mongoStore
	}

	service := content.NewService(
		chain, cleaner, images, platformMode, detector,
		orchestrator, merger, assets, store, cfg.Templates.Dir, logger,
	)

	metrics := observability.NewMetrics(logger)
	chain.SetMetrics(metrics)
	orchestrator.SetMetrics(metrics)
	service.SetMetrics(metrics)

	return &pipelineDeps{
		service: service,
		store:   store,
		shop:    shop,
		fetch:   chain,
		metrics: metrics,
	}, nil
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
