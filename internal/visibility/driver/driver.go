package driver

import "context"

// Driver defines the interface for LLM completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "openai").
	Name() string
}

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	// Type is "text" or "json_object".
	Type string `json:"type"`
	// Schema, when set, constrains the output to an exact JSON schema.
	// Only honored by drivers that support schema-constrained output.
	Schema map[string]any `json:"schema,omitempty"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
}

// SearchResult is a single web source reported by a search-augmented
// provider. URL is the only field guaranteed to be present.
type SearchResult struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Date  string `json:"date,omitempty"`
}

// Response is a provider-agnostic completion response.
type Response struct {
	Text         string
	FinishReason string
	Usage        *Usage

	// Citations and SearchResults are populated only by search-augmented
	// drivers. Citations is the provider's plain URL list; SearchResults
	// is the richer source list. The same URL may appear in both.
	Citations     []string
	SearchResults []SearchResult

	// Raw holds the unparsed provider response body for audit capture.
	Raw []byte
}
