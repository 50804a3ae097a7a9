package gen

import (
	"encoding/json"
	"strings"
)

// ParseResult is the outcome of parsing a model response: either a
// decoded object or the raw text that could not be salvaged.
type ParseResult struct {
	Ok      bool
	Value   map[string]any
	RawText string
}

// ParseResponse extracts a JSON object from model output. Markdown code
// fences are stripped first, then a strict parse is attempted; if that
// fails, the substring between the first '{' and the last '}' is parsed
// as a fallback. Anything else is Malformed.
func ParseResponse(text string) ParseResult {
	content := strings.ReplaceAll(text, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)

	var value map[string]any
	if err := json.Unmarshal([]byte(content), &value); err == nil {
		return ParseResult{Ok: true, Value: value}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &value); err == nil {
			return ParseResult{Ok: true, Value: value}
		}
	}

	return ParseResult{Ok: false, RawText: text}
}
