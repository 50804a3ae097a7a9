package types

import "time"

// ScrapedImage is a single image discovered on a product page.
// Identity is the normalized absolute URL; extraction deduplicates by it.
type ScrapedImage struct {
	URL        string `json:"url"`
	Alt        string `json:"alt"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	CSSClasses string `json:"css_classes,omitempty"`
}

// PlatformScore is the result of a platform detection pass.
type PlatformScore struct {
	Platform   string `json:"platform"`
	Confidence int    `json:"confidence"`
}

// GenerationResult maps catalog field paths to generated values.
// Values are strings, lists, or numbers depending on field semantics.
type GenerationResult map[string]any

// TokenPricing breaks down the estimated cost of a generation run.
type TokenPricing struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	CacheCost  float64 `json:"cache_cost"`
	TotalCost  float64 `json:"total_cost"`
}

// TokenUsage is a non-authoritative usage estimate for a generation run.
// Token counts are a word-count proxy, not real tokenizer output.
type TokenUsage struct {
	InputTokens  int          `json:"input_tokens"`
	OutputTokens int          `json:"output_tokens"`
	Pricing      TokenPricing `json:"pricing"`
}

// GenerationRun summarizes one completed end-to-end pipeline run.
type GenerationRun struct {
	URL            string        `json:"url" bson:"url"`
	Language       string        `json:"language" bson:"language"`
	Platform       PlatformScore `json:"platform" bson:"platform"`
	TemplateSuffix string        `json:"template_suffix" bson:"template_suffix"`
	ImageCount     int           `json:"image_count" bson:"image_count"`
	Usage          TokenUsage    `json:"token_usage" bson:"token_usage"`
	Duration       time.Duration `json:"duration" bson:"duration"`
	Success        bool          `json:"success" bson:"success"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
}
