package platform

import (
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"

	"github.com/mkaralis/storeforge/internal/types"
)

// confidenceThreshold is the minimum accumulated score before a platform
// is reported at all.
const confidenceThreshold = 30

// signature describes the weighted indicators of one platform. Every
// matching indicator adds its fixed point value to the platform score;
// scores are strictly additive and only capped in the final result.
type signature struct {
	name        string
	urlPatterns []weightedPattern
	htmlMarkers []weightedPattern
	metaMarkers []weightedPattern
	scriptMarks []weightedPattern
}

type weightedPattern struct {
	substr string
	points int
}

// signatures is ordered; ties are broken by enumeration order.
var signatures = []signature{
	{
		name: "shopify",
		urlPatterns: []weightedPattern{
			{"/products/", 30},
			{".myshopify.com", 50},
		},
		htmlMarkers: []weightedPattern{
			{"shopify.theme", 20},
			{"cdn.shopify.com", 20},
			{"shopify.com/s/", 20},
			{"shopify-payment-button", 20},
			{"data-shopify", 20},
		},
		metaMarkers: []weightedPattern{
			{"shopify", 30},
		},
		scriptMarks: []weightedPattern{
			{"shopify", 20},
		},
	},
	{
		name: "wordpress",
		htmlMarkers: []weightedPattern{
			{"wp-content", 20},
			{"wp-includes", 20},
			{"wp-json", 20},
			{"wordpress", 20},
			{"woocommerce", 20},
		},
		metaMarkers: []weightedPattern{
			{"wordpress", 30},
		},
		scriptMarks: []weightedPattern{
			{"wp-", 20},
		},
	},
	{
		name: "wix",
		htmlMarkers: []weightedPattern{
			{"wix.com", 25},
			{"_wixcssrules", 25},
			{"wix-dropdown", 25},
			{"wix-image", 25},
		},
		metaMarkers: []weightedPattern{
			{"wix", 20},
		},
		scriptMarks: []weightedPattern{
			{"wix", 20},
		},
	},
	{
		name: "amazon",
		htmlMarkers: []weightedPattern{
			{"amazon-adsystem", 25},
			{"amazon.com", 25},
			{"amzn.", 25},
			{"a-spacing", 25},
		},
		scriptMarks: []weightedPattern{
			{"amazon", 20},
		},
	},
}

// Detector scores pages against known platform signatures. Callers
// fetch the page themselves and hand the markup to Score; the page is
// fetched once and reused for extraction.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a platform detector.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{
		logger: logger.With("component", "platform_detector"),
	}
}

// Score runs every signature check over the URL and markup and returns
// the best-scoring platform, or unknown when nothing clears the
// confidence threshold.
func (d *Detector) Score(pageURL, rawHTML string) types.PlatformScore {
	urlLower := strings.ToLower(pageURL)
	htmlLower := strings.ToLower(rawHTML)

	metaText, scriptTexts := headMarkers(rawHTML)

	bestName := "unknown"
	bestScore := 0

	for _, sig := range signatures {
		score := 0
		for _, p := range sig.urlPatterns {
			if strings.Contains(urlLower, p.substr) {
				score += p.points
			}
		}
		for _, p := range sig.htmlMarkers {
			if strings.Contains(htmlLower, p.substr) {
				score += p.points
			}
		}
		for _, p := range sig.metaMarkers {
			if strings.Contains(metaText, p.substr) {
				score += p.points
			}
		}
		for _, p := range sig.scriptMarks {
			for _, script := range scriptTexts {
				if strings.Contains(script, p.substr) {
					score += p.points
				}
			}
		}

		// Strict > keeps tie-breaks on enumeration order.
		if score > bestScore {
			bestScore = score
			bestName = sig.name
		}
	}

	if bestScore <= confidenceThreshold {
		return types.PlatformScore{Platform: "unknown", Confidence: 0}
	}

	confidence := bestScore
	if confidence > 100 {
		confidence = 100
	}
	d.logger.Info("platform detected", "url", pageURL, "platform", bestName, "confidence", confidence)
	return types.PlatformScore{Platform: bestName, Confidence: confidence}
}

// headMarkers extracts lowercased meta tag text and per-script text via
// XPath. A failed parse returns empty markers; the substring checks over
// the whole document still run.
func headMarkers(rawHTML string) (string, []string) {
	doc, err := htmlquery.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", nil
	}

	var meta strings.Builder
	for _, node := range htmlquery.Find(doc, "//meta") {
		meta.WriteString(strings.ToLower(htmlquery.OutputHTML(node, true)))
		meta.WriteByte('\n')
	}

	var scripts []string
	for _, node := range htmlquery.Find(doc, "//script") {
		scripts = append(scripts, strings.ToLower(htmlquery.OutputHTML(node, true)))
	}

	return meta.String(), scripts
}
