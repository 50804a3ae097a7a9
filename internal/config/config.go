package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for StoreForge.
type Config struct {
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	AI        AIConfig        `mapstructure:"ai"        yaml:"ai"`
	Search    SearchConfig    `mapstructure:"search"    yaml:"search"`
	Shopify   ShopifyConfig   `mapstructure:"shopify"   yaml:"shopify"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// FetcherConfig controls the stealth HTTP fetcher.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
	MinDelay        time.Duration `mapstructure:"min_delay"        yaml:"min_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay"        yaml:"max_delay"`
	FollowRedirects bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"    yaml:"max_redirects"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"     yaml:"tls_insecure"`
	UserAgents      []string      `mapstructure:"user_agents"      yaml:"user_agents"`
}

// BrowserConfig controls the headless browser fallback.
type BrowserConfig struct {
	Enabled     bool          `mapstructure:"enabled"      yaml:"enabled"`
	PoolSize    int           `mapstructure:"pool_size"    yaml:"pool_size"`
	PageTimeout time.Duration `mapstructure:"page_timeout" yaml:"page_timeout"`
	UserDataDir string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// AIConfig controls the generation model client.
type AIConfig struct {
	Provider     string        `mapstructure:"provider"    yaml:"provider"` // gemini, openai, ollama
	Model        string        `mapstructure:"model"       yaml:"model"`
	Endpoint     string        `mapstructure:"endpoint"    yaml:"endpoint"`
	APIKey       string        `mapstructure:"api_key"     yaml:"api_key"`
	MaxTokens    int           `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature" yaml:"temperature"`
	ChunkRetries int           `mapstructure:"chunk_retries" yaml:"chunk_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// SearchConfig holds image-search provider credentials.
type SearchConfig struct {
	BingKey        string `mapstructure:"bing_key"         yaml:"bing_key"`
	GoogleKey      string `mapstructure:"google_key"       yaml:"google_key"`
	GoogleSearchCX string `mapstructure:"google_search_cx" yaml:"google_search_cx"`
	MaxResults     int    `mapstructure:"max_results"      yaml:"max_results"`
}

// ShopifyConfig holds storefront admin API credentials.
type ShopifyConfig struct {
	StoreURL    string `mapstructure:"store_url"    yaml:"store_url"`
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`
	APIVersion  string `mapstructure:"api_version"  yaml:"api_version"`
}

// TemplatesConfig controls template document loading.
type TemplatesConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// StorageConfig controls the run-history store.
type StorageConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	MongoURI   string `mapstructure:"mongo_uri"  yaml:"mongo_uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// ServerConfig controls the REST API server.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			RequestTimeout:  30 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MinDelay:        2 * time.Second,
			MaxDelay:        5 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
			},
		},
		Browser: BrowserConfig{
			Enabled:     true,
			PoolSize:    4,
			PageTimeout: 20 * time.Second,
		},
		AI: AIConfig{
			Provider:     "gemini",
			Model:        "gemini-1.5-flash-8b",
			MaxTokens:    8192,
			Temperature:  0.7,
			ChunkRetries: 3,
			RetryDelay:   500 * time.Millisecond,
		},
		Search: SearchConfig{
			MaxResults: 10,
		},
		Shopify: ShopifyConfig{
			APIVersion: "2024-01",
		},
		Templates: TemplatesConfig{
			Dir: "./templates",
		},
		Storage: StorageConfig{
			Enabled:    false,
			MongoURI:   "mongodb://localhost:27017",
			Database:   "storeforge",
			Collection: "generation_runs",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
