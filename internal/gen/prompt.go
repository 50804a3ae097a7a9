package gen

import (
	"encoding/json"
	"fmt"

	"github.com/mkaralis/storeforge/internal/catalog"
)

// promptHeader is shared by the whole-catalog and chunked prompts. The
// model is told that bracketed text describes what to generate, not
// literal content to copy.
const promptHeader = `URL: %s
Language Instructions: %s
Output Format: JSON

Instructions:
1. The text in square brackets [] indicates the type of content to generate, not the actual content itself.
2. Generate appropriate content based on these instructions.
3. IMPORTANT: Generate ALL content in the specified language (%s).
4. For reviews, ensure each one is unique and authentic-sounding.
5. Maintain consistent tone and style throughout.
`

// BuildPrompt renders the field list plus page context into a single
// generation instruction. Pass the full catalog for a whole-run attempt
// or one group for a chunked call.
func BuildPrompt(url, language, pageContent string, fields []catalog.FieldSpec) string {
	pairs := make([][2]string, 0, len(fields))
	for _, f := range fields {
		pairs = append(pairs, [2]string{f.Path, f.Instruction})
	}
	encoded, _ := json.MarshalIndent(pairs, "", "  ")

	prompt := fmt.Sprintf(promptHeader, url, catalog.LanguageInstruction(language), language)
	prompt += fmt.Sprintf("\nsections = %s\n", encoded)

	if pageContent != "" {
		prompt += fmt.Sprintf("\nPage content:\n%s\n", truncate(pageContent, maxPageContent))
	}
	return prompt
}

// maxPageContent bounds how much scraped text is embedded in a prompt.
const maxPageContent = 24000

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
