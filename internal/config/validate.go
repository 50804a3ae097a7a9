package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MinDelay < 0 || cfg.Fetcher.MaxDelay < cfg.Fetcher.MinDelay {
		return fmt.Errorf("fetcher delay range invalid: min=%s max=%s", cfg.Fetcher.MinDelay, cfg.Fetcher.MaxDelay)
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if len(cfg.Fetcher.UserAgents) == 0 {
		return fmt.Errorf("fetcher.user_agents must not be empty")
	}

	if cfg.Browser.Enabled && cfg.Browser.PoolSize < 1 {
		return fmt.Errorf("browser.pool_size must be >= 1, got %d", cfg.Browser.PoolSize)
	}

	validProviders := map[string]bool{
		"gemini": true, "openai": true, "ollama": true,
	}
	if !validProviders[cfg.AI.Provider] {
		return fmt.Errorf("ai.provider %q is not supported (valid: gemini, openai, ollama)", cfg.AI.Provider)
	}
	if cfg.AI.Model == "" {
		return fmt.Errorf("ai.model must be set")
	}
	if cfg.AI.ChunkRetries < 1 {
		return fmt.Errorf("ai.chunk_retries must be >= 1, got %d", cfg.AI.ChunkRetries)
	}

	if cfg.Search.MaxResults < 1 || cfg.Search.MaxResults > 50 {
		return fmt.Errorf("search.max_results must be 1-50, got %d", cfg.Search.MaxResults)
	}

	// A bare store name is allowed; the admin client appends the
	// .myshopify.com suffix itself.
	if strings.Contains(cfg.Shopify.StoreURL, "://") {
		return fmt.Errorf("shopify.store_url must be a bare store domain, got %q", cfg.Shopify.StoreURL)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level %q is not supported (valid: debug, info, warn, error)", cfg.Logging.Level)
	}

	return nil
}

// ValidateURL checks that a raw URL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
