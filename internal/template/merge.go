package template

import (
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkaralis/storeforge/internal/types"
)

// defaultPercent is written when a percent_value field cannot be coerced
// to an integer.
const defaultPercent = 95

var tagRe = regexp.MustCompile(`<[^>]+>`)

// shopifyFilenameRe pulls the bare filename out of a CDN URL, ignoring
// the /files/ path prefix and any query string.
var shopifyFilenameRe = regexp.MustCompile(`(?:/files/[^/]+/[^/]+/[^/]+/)?([^/]+\.[a-zA-Z]+)(?:\?.*)?$`)

// Merger applies generated field values and extracted images onto a
// template document.
type Merger struct {
	logger *slog.Logger

	// pick selects an index into the unused image pool; swappable for
	// deterministic tests.
	pick func(n int) int
}

// NewMerger creates a template merger.
func NewMerger(logger *slog.Logger) *Merger {
	return &Merger{
		logger: logger.With("component", "template_merger"),
		pick:   rand.Intn,
	}
}

// Merge mutates doc in place: generated text fields are substituted by
// dotted-path navigation, then every "image" slot in the document is
// assigned a distinct image from the pool until it runs out. Paths that
// do not exist in the document are logged and skipped.
func (m *Merger) Merge(doc Document, fields types.GenerationResult, images []string) {
	for path, value := range fields {
		m.setField(doc, path, value)
	}

	used := make(map[string]bool)
	m.assignImages(doc, "", images, used)
}

// setField descends the document along the dotted path and replaces the
// leaf value.
func (m *Merger) setField(doc Document, path string, value any) {
	parts := strings.Split(path, ".")

	current := map[string]any(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			m.logger.Warn("template path not found", "path", path, "segment", part)
			return
		}
		current = next
	}

	leaf := parts[len(parts)-1]
	original, ok := current[leaf]
	if !ok {
		m.logger.Warn("template path not found", "path", path, "segment", leaf)
		return
	}

	switch v := value.(type) {
	case string, []any:
		if strings.Contains(path, "percent_value") {
			value = coercePercent(v)
		} else {
			text := scalarText(v)
			value = preserveTags(original, strings.TrimSpace(text))
		}
	}

	m.logger.Debug("setting template field", "path", path)
	current[leaf] = value
}

// scalarText collapses a list value to its first element; empty lists
// become the empty string.
func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) == 0 {
			return ""
		}
		return fmt.Sprint(t[0])
	default:
		return fmt.Sprint(t)
	}
}

// coercePercent forces percent_value fields to integers, falling back
// to the default when the model returned something unparseable.
func coercePercent(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	case []any:
		if len(t) > 0 {
			return coercePercent(t[0])
		}
	}
	return defaultPercent
}

// preserveTags wraps new content in the original value's outermost
// markup. When the original holds at least two tags, the first opening
// and last closing tag survive the substitution; otherwise the new
// content replaces the value wholesale.
func preserveTags(original any, content string) string {
	originalText := fmt.Sprint(original)
	if !strings.Contains(originalText, "<") || !strings.Contains(originalText, ">") {
		return content
	}
	tags := tagRe.FindAllString(originalText, -1)
	if len(tags) >= 2 {
		return tags[0] + content + tags[len(tags)-1]
	}
	return content
}

// assignImages walks the document and replaces every string-valued
// "image" key with a random image not yet used in this merge. Slots
// beyond the pool size are left unchanged and logged as exhausted.
func (m *Merger) assignImages(node any, parentKey string, pool []string, used map[string]bool) {
	switch v := node.(type) {
	case Document:
		m.assignImages(map[string]any(v), parentKey, pool, used)
	case map[string]any:
		for key, value := range v {
			fullKey := key
			if parentKey != "" {
				fullKey = parentKey + "." + key
			}
			if key == "image" {
				if _, ok := value.(string); ok {
					var unused []string
					for _, img := range pool {
						if !used[img] {
							unused = append(unused, img)
						}
					}
					if len(unused) > 0 {
						selected := unused[m.pick(len(unused))]
						used[selected] = true
						v[key] = selected
						m.logger.Debug("setting image slot", "path", fullKey)
					} else if len(pool) > 0 {
						m.logger.Warn("image slot left unchanged",
							"path", fullKey, "error", types.ErrImagePoolExhausted)
					}
					continue
				}
			}
			m.assignImages(value, fullKey, pool, used)
		}
	case []any:
		for _, item := range v {
			m.assignImages(item, parentKey, pool, used)
		}
	}
}

// ConvertToShopifyImageURL rewrites a CDN URL into the
// shopify://shop_images/<filename> form theme assets expect. Returns
// false when no filename can be recovered.
func ConvertToShopifyImageURL(cdnURL string) (string, bool) {
	match := shopifyFilenameRe.FindStringSubmatch(cdnURL)
	if match == nil {
		return "", false
	}
	return "shopify://shop_images/" + match[1], true
}

// PrepareImagePool converts extracted images into theme image references,
// dropping any whose URL cannot be converted.
func PrepareImagePool(images []types.ScrapedImage, logger *slog.Logger) []string {
	var pool []string
	for _, img := range images {
		converted, ok := ConvertToShopifyImageURL(img.URL)
		if !ok {
			logger.Warn("skipping image with unusable URL", "url", img.URL)
			continue
		}
		pool = append(pool, converted)
	}
	return pool
}

// RandomSuffix returns a 10-digit numeric string used to key new
// template assets.
func RandomSuffix() string {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteByte(byte('0' + rand.Intn(10)))
	}
	return sb.String()
}
