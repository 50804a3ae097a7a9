package template

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mkaralis/storeforge/internal/types"
)

// Document is a parsed template: a nested mapping of objects, lists and
// scalars mutated in place by the merger.
type Document map[string]any

// Load reads a template file from disk and parses it. Theme templates
// sometimes carry block comments that plain JSON decoders reject, so
// comment lines are stripped before parsing.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.TemplateError{Source: path, Err: err}
	}
	doc, err := Parse(string(raw))
	if err != nil {
		return nil, &types.TemplateError{Source: path, Err: err}
	}
	return doc, nil
}

// Parse decodes template source into a Document after dropping comment
// lines (those starting with "/*", "*" or "*/").
func Parse(src string) (Document, error) {
	var kept []string
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		kept = append(kept, line)
	}

	var doc Document
	if err := json.Unmarshal([]byte(strings.Join(kept, "\n")), &doc); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	return doc, nil
}
