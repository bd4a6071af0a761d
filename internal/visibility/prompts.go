package visibility

import (
	"fmt"
	"strings"
)

const analysisSystemPrompt = `You are a brand-visibility analyst. You examine an AI assistant's answer and report how brands are represented in it. Respond with JSON only.`

const analysisPromptExact = `Analyze the following AI assistant response for brand mentions.

Known brands to check (report every one, even if absent):
%s

Matching rules:
- Count a mention only when the brand name appears as a case-insensitive exact string match.
- Report any additional brands you find in the response that are not in the known list.
- A brand that does not appear must be reported with "mentions": 0 and "sentiment": "Not Mentioned".

Response to analyze:
"""
%s
"""

Return a JSON object of this exact shape:
{"brands": [{"brand": "<name>", "mentions": <count>, "sentiment": "Positive" | "Neutral" | "Negative" | "Not Mentioned"}]}`

const analysisPromptBroad = `Analyze the following AI assistant response for brand mentions.

Primary brand (count any occurrence that contains this name as a substring, case-insensitive — e.g. "%s Amsterdam" counts):
%s

Competitor brands (case-insensitive exact string match only; report every one, even if absent):
%s

Matching rules:
- Report any additional brands you find in the response that are not listed above.
- A brand that does not appear must be reported with "mentions": 0 and "sentiment": "Not Mentioned".

Response to analyze:
"""
%s
"""

Return a JSON object of this exact shape:
{"brands": [{"brand": "<name>", "mentions": <count>, "sentiment": "Positive" | "Neutral" | "Negative" | "Not Mentioned"}]}`

const questionPrompt = `Answer the following question based only on the text below. Do not use outside knowledge. If the text does not contain the answer, say so.

Question: %s

Text:
"""
%s
"""`

// buildAnalysisPrompt renders the brand-extraction prompt for the given
// match mode. The matching burden is on the model; the prompt states the
// contract.
func buildAnalysisPrompt(cfg *RunConfig, responseText string) string {
	if cfg.MatchMode == MatchBroad {
		return fmt.Sprintf(analysisPromptBroad,
			cfg.ClientBrand,
			cfg.ClientBrand,
			brandList(cfg.Competitors),
			responseText,
		)
	}
	return fmt.Sprintf(analysisPromptExact, brandList(cfg.KnownBrands()), responseText)
}

// buildQuestionPrompt renders one auxiliary-question prompt constrained to
// the primary response text.
func buildQuestionPrompt(question, responseText string) string {
	return fmt.Sprintf(questionPrompt, question, responseText)
}

func brandList(brands []string) string {
	if len(brands) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, brand := range brands {
		b.WriteString("- ")
		b.WriteString(brand)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// analysisSchema is the exact response schema used by drivers that support
// schema-constrained output.
func analysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"brands": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"brand":    map[string]any{"type": "string"},
						"mentions": map[string]any{"type": "integer"},
						"sentiment": map[string]any{
							"type": "string",
							"enum": []string{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentNotMentioned},
						},
					},
					"required": []string{"brand", "mentions", "sentiment"},
				},
			},
		},
		"required": []string{"brands"},
	}
}
