package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Fetcher.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout default: %s", cfg.Fetcher.RequestTimeout)
	}
	if cfg.AI.Provider != "gemini" {
		t.Errorf("provider default: %q", cfg.AI.Provider)
	}
	if cfg.AI.ChunkRetries != 3 {
		t.Errorf("chunk retries default: %d", cfg.AI.ChunkRetries)
	}
	if cfg.AI.RetryDelay != 500*time.Millisecond {
		t.Errorf("retry delay default: %s", cfg.AI.RetryDelay)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: %d", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 9999
ai:
  provider: ollama
  model: llama3
`
	path := filepath.Join(t.TempDir(), "storeforge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port not overridden: %d", cfg.Server.Port)
	}
	if cfg.AI.Provider != "ollama" || cfg.AI.Model != "llama3" {
		t.Errorf("ai section not overridden: %+v", cfg.AI)
	}
	// Untouched values keep their defaults.
	if cfg.Fetcher.MaxBodySize != 10*1024*1024 {
		t.Errorf("max body size default lost: %d", cfg.Fetcher.MaxBodySize)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for explicitly named missing file")
	}
}

func TestValidateDefaults(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Fetcher.RequestTimeout = 0 }},
		{"inverted delay range", func(c *Config) { c.Fetcher.MinDelay = 10 * time.Second; c.Fetcher.MaxDelay = time.Second }},
		{"no user agents", func(c *Config) { c.Fetcher.UserAgents = nil }},
		{"unknown provider", func(c *Config) { c.AI.Provider = "palm" }},
		{"empty model", func(c *Config) { c.AI.Model = "" }},
		{"zero retries", func(c *Config) { c.AI.ChunkRetries = 0 }},
		{"store url with scheme", func(c *Config) { c.Shopify.StoreURL = "https://acme.myshopify.com" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://shop.example.com/products/widget",
		"http://shop.example.com",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q): %v", u, err)
		}
	}

	invalid := []string{
		"ftp://example.com",
		"not-a-url",
		"https://",
		"",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q): expected error", u)
		}
	}
}
