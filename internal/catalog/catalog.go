package catalog

import (
	"fmt"
	"strings"

	"github.com/mkaralis/storeforge/internal/types"
)

// FieldSpec pairs a dotted template path with the instruction describing
// what the model should produce for it. The bracketed instruction text
// describes the content to generate, it is never emitted verbatim.
type FieldSpec struct {
	Path        string
	Instruction string
}

// maxGroupSize caps how many fields a single chunked generation call may
// carry.
const maxGroupSize = 5

// Fields is the full ordered catalog. Order matters: grouping, prompt
// rendering and reconciliation all walk it front to back, and every
// generation run must end with a value for every path listed here.
var Fields = []FieldSpec{
	{"Product Title", "[Create a short, brand sounding title with ™]"},
	{"sections.main.blocks.reviews_number_wmFXyt.settings.reviews_text", "[x reviews, usually randomly between 300-700]"},
	{"sections.main.blocks.pp_text_VLf9ic.settings.pp_text", "[Summarize the product features and benefits based on the URL content. Aim for 40-50 words.]"},
	{"sections.main.blocks.pp_benefits_Lfapdf.settings.pp_benefits_text1", "[Key features in bullet point, 10-15 words, starting with a ✔️]"},
	{"sections.main.blocks.pp_benefits_Lfapdf.settings.pp_benefits_text2", "[Key features in bullet point, 10-15 words, starting with a ✔️]"},
	{"sections.main.blocks.pp_benefits_Lfapdf.settings.pp_benefits_text3", "[Key features in bullet point, 10-15 words, starting with a ✔️]"},
	{"sections.main.blocks.pp_benefits_Lfapdf.settings.pp_benefits_text4", "[Key features in bullet point, 10-15 words, starting with a ✔️]"},
	{"sections.main.blocks.pp_review_DzipVt.settings.pp_review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.main.blocks.pp_review_DzipVt.settings.pp_review_author_badge_text", "[random full name, from context decide of gender]"},
	{"sections.pp_image_with_benefits_gkXTTj.settings.heading", "[A catchy hook, 5-8 words.]"},
	{"sections.pp_image_with_benefits_gkXTTj.settings.text", "[Provide a brief overview of how the product based on the catchy hook provided before. Aim for 40-50 words.]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7CB6Bn.settings.text", "[key benefit, 8-12 words]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7CB6Bn.settings.heading", "[One word summarizing sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7CB6Bn.settings.text]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7CB6Bn.settings.emoji", "[One emoji summarizing sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7CB6Bn.settings.text]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7HpQgA.settings.text", "[key benefit, 8-12 words]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7HpQgA.settings.heading", "[One word summarizing sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7HpQgA.settings.text]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7HpQgA.settings.emoji", "[One emoji summarizing sections.pp_image_with_benefits_gkXTTj.blocks.benefit_7HpQgA.settings.text]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_erNb6q.settings.text", "[key benefit, 8-12 words]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_erNb6q.settings.heading", "[One word summarizing sections.pp_image_with_benefits_gkXTTj.blocks.benefit_erNb6q.settings.text]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_erNb6q.settings.emoji", "[One emoji summarizing sections.pp_image_with_benefits_gkXTTj.blocks.benefit_erNb6q.settings.text]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_gJWaeR.settings.text", "[key benefit, 8-12 words]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_gJWaeR.settings.heading", "[One word summarizing sections.pp_image_with_benefits_gkXTTj.blocks.benefit_gJWaeR.settings.text]"},
	{"sections.pp_image_with_benefits_gkXTTj.blocks.benefit_gJWaeR.settings.emoji", "[One emoji summarizing sections.pp_image_with_benefits_gkXTTj.blocks.benefit_gJWaeR.settings.text]"},
	{"sections.pp_image_with_text_BVEaDq.blocks.heading_aFxCRe.settings.heading", "[A text explaining how the product enhances your life in 10-15 words.]"},
	{"sections.pp_image_with_text_BVEaDq.blocks.text_ifpgzE.settings.text", "[Describe the heading from sections.pp_image_with_text_BVEaDq.blocks.heading_aFxCRe.settings.heading. Aim for 40-50 words.]"},
	{"sections.pp_image_with_percentage_fLf47C.blocks.heading_UYwMbc.settings.heading", "[text in style \"Why choose x product?\"]"},
	{"sections.pp_image_with_percentage_fLf47C.blocks.percent_MDgdzN.settings.text", "[first reason why this product is better, 3-5 words.]"},
	{"sections.pp_image_with_percentage_fLf47C.blocks.percent_MDgdzN.settings.percent_value", "[random number between 88-98, saved as integer]"},
	{"sections.pp_image_with_percentage_fLf47C.blocks.percent_DNwFD7.settings.text", "[second reason why this product is better, 3-5 words.]"},
	{"sections.pp_image_with_percentage_fLf47C.blocks.percent_DNwFD7.settings.percent_value", "[random number between 88-98, saved as integer]"},
	{"sections.pp_image_with_percentage_fLf47C.blocks.percent_Wh6UWW.settings.text", "[third reason why this product is better, 3-5 words.]"},
	{"sections.pp_image_with_percentage_fLf47C.blocks.percent_Wh6UWW.settings.percent_value", "[random number between 88-98, saved as integer]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_UYYj4E.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_UYYj4E.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_V7CyvK.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_V7CyvK.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_Z0kjRL.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_Z0kjRL.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_pt5PN0.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_pt5PN0.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_UayexO.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_UayexO.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_pcN8mI.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_pcN8mI.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_FRVTX7.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_FRVTX7.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_AUSNsH.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_AUSNsH.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_gbJSSq.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_gbJSSq.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_325MmR.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_325MmR.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_SqYPOw.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_SqYPOw.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_nJQgxL.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_nJQgxL.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_6WimSV.settings.author_text", "[random full name, from context decide of gender]"},
	{"sections.pp_reviews_dqQHmw.blocks.review_6WimSV.settings.review_text", "[Create a hypothetical customer review highlighting the product's benefits. Aim for 30-40 words.]"},
	{"sections.pp_comparison_table_ttamEN.blocks.heading_Wjx9pp.settings.heading", "[heading in format \"Why x product and not it's competitor?\"]"},
	{"sections.pp_comparison_table_ttamEN.blocks.text_4ad9ba.settings.text", "[Explanation on why it's better than anything else in the market, 50-70 words]"},
	{"sections.pp_comparison_table_ttamEN.blocks.tableitem_6hMT9z.settings.text", "[1 word of main trait of the product]"},
	{"sections.pp_comparison_table_ttamEN.blocks.tableitem_KNWAfa.settings.text", "[1 word of main trait of the product]"},
	{"sections.pp_comparison_table_ttamEN.blocks.tableitem_jB68ak.settings.text", "[1 word of main trait of the product]"},
	{"sections.pp_comparison_table_ttamEN.blocks.tableitem_CVBp68.settings.text", "[1 word of main trait of the product]"},
	{"sections.pp_comparison_table_ttamEN.blocks.tableitem_6Crhhq.settings.text", "[1 word of main trait of the product]"},
	{"sections.pp_faq_TtURdM.blocks.question_UUEbPG.settings.heading", "[Question regarding this product, 10-15 words]"},
	{"sections.pp_faq_TtURdM.blocks.question_UUEbPG.settings.text", "[Answer to question sections.pp_faq_TtURdM.blocks.question_UUEbPG.settings.text]"},
	{"sections.pp_faq_TtURdM.blocks.question_iwgzRn.settings.heading", "[Question regarding this product, 10-15 words]"},
	{"sections.pp_faq_TtURdM.blocks.question_iwgzRn.settings.text", "[Answer to question sections.pp_faq_TtURdM.blocks.question_iwgzRn.settings.text]"},
	{"sections.pp_faq_TtURdM.blocks.question_gNmdPq.settings.heading", "[Question regarding this product, 10-15 words]"},
	{"sections.pp_faq_TtURdM.blocks.question_gNmdPq.settings.text", "[Answer to question sections.pp_faq_TtURdM.blocks.question_gNmdPq.settings.text]"},
	{"sections.pp_faq_TtURdM.blocks.question_NpRfRa.settings.heading", "[Question regarding this product, 10-15 words]"},
	{"sections.pp_faq_TtURdM.blocks.question_NpRfRa.settings.text", "[Answer to question sections.pp_faq_TtURdM.blocks.question_NpRfRa.settings.text]"},
	{"sections.pp_faq_TtURdM.blocks.question_cwFiY9.settings.heading", "[Question regarding this product, 10-15 words]"},
	{"sections.pp_faq_TtURdM.blocks.question_cwFiY9.settings.text", "[Answer to question sections.pp_faq_TtURdM.blocks.question_cwFiY9.settings.text]"},
}

// languageInstructions maps supported language codes to the instruction
// line rendered into every prompt.
var languageInstructions = map[string]string{
	"en": "Generate all content in English language.",
	"el": "Generate all content in Greek language. Use Greek characters and proper Greek grammar/syntax.",
	"pl": "Generate all content in Polish language. Use proper Polish grammar, diacritics and syntax.",
}

// ValidateLanguage rejects codes outside the supported set before any
// network activity happens.
func ValidateLanguage(code string) error {
	if _, ok := languageInstructions[code]; !ok {
		return fmt.Errorf("%w: %q", types.ErrUnsupportedLang, code)
	}
	return nil
}

// LanguageInstruction returns the prompt instruction line for the code.
// Unknown codes fall back to English so prompt rendering never fails
// after validation has passed.
func LanguageInstruction(code string) string {
	if instr, ok := languageInstructions[code]; ok {
		return instr
	}
	return languageInstructions["en"]
}

// SupportedLanguages lists the accepted codes in stable order.
func SupportedLanguages() []string {
	return []string{"en", "el", "pl"}
}

// topPrefix returns the grouping key for a path: the segment before the
// first dot, or the whole path for dotless entries.
func topPrefix(path string) string {
	if i := strings.Index(path, "."); i >= 0 {
		return path[:i]
	}
	return path
}

// GroupFields splits the catalog into chunks for independent generation
// calls. A group closes when it reaches the size cap or when the next
// field starts a different top-level prefix and the group is already at
// the cap. Concatenating the groups reproduces the input order exactly.
func GroupFields(fields []FieldSpec) [][]FieldSpec {
	var groups [][]FieldSpec
	var current []FieldSpec
	currentType := ""

	for _, field := range fields {
		fieldType := topPrefix(field.Path)
		if currentType != "" && fieldType != currentType && len(current) >= maxGroupSize {
			groups = append(groups, current)
			current = nil
		}
		currentType = fieldType
		current = append(current, field)

		if len(current) >= maxGroupSize {
			groups = append(groups, current)
			current = nil
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
