package visibility

import "encoding/json"

// Provider identifies one configured LLM provider variant.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderGrok       Provider = "grok"
	ProviderGemini     Provider = "gemini"
	ProviderPerplexity Provider = "perplexity"
)

// Providers lists every supported provider in canonical order.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderGrok, ProviderGemini, ProviderPerplexity}
}

// Sentiment labels used in brand analysis entries.
const (
	SentimentPositive     = "Positive"
	SentimentNeutral      = "Neutral"
	SentimentNegative     = "Negative"
	SentimentNotMentioned = "Not Mentioned"
)

// MatchMode selects the brand-detection strategy for the analysis pass.
type MatchMode string

const (
	// MatchExact instructs case-insensitive exact-string matching for all
	// known brands.
	MatchExact MatchMode = "exact"
	// MatchBroad instructs substring matching for the client brand only;
	// competitors still match exactly.
	MatchBroad MatchMode = "broad"
)

// BrandMention is one brand's tally from the analysis pass.
//
// Every brand from the run configuration appears exactly once per provider
// response; brands the model discovered on its own may repeat and are left
// for the aggregation layer to fold.
type BrandMention struct {
	Brand     string `json:"brand"`
	Mentions  int    `json:"mentions"`
	Sentiment string `json:"sentiment"`
}

// Answer pairs an auxiliary question with the answer generated from a
// provider's primary response text.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Citation is one web source reported by a search-augmented provider.
// Index is 1-based and assigned locally in discovery order.
type Citation struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// TokenUsage is the input/output token tally for a group of calls.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// CallTrace is the raw payload of one underlying provider call, kept for
// audit and export.
type CallTrace struct {
	Pass     string          `json:"pass"` // "response", "analysis", "question"
	Model    string          `json:"model,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ProviderResult is the normalized outcome of one (prompt, provider) cell.
// Created once, immutable thereafter.
type ProviderResult struct {
	Provider Provider       `json:"provider"`
	Response string         `json:"response"`
	Mentions []BrandMention `json:"mentions"`
	Answers  []Answer       `json:"answers"`
	Error    string         `json:"error,omitempty"`

	Citations []Citation  `json:"citations,omitempty"`
	RawTrace  []CallTrace `json:"raw_trace,omitempty"`

	// ResponseUsage covers the primary and auxiliary-question calls;
	// AnalysisUsage covers the brand extraction call. Cost attribution
	// differs between the two.
	ResponseUsage *TokenUsage `json:"response_usage,omitempty"`
	AnalysisUsage *TokenUsage `json:"analysis_usage,omitempty"`
}

// PromptResult collects every provider's result for one prompt, in
// provider-selection order.
type PromptResult struct {
	Prompt  string           `json:"prompt"`
	Results []ProviderResult `json:"results"`
}
