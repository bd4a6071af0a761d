package perplexity

import (
	"fmt"
	"strings"

	"github.com/echolens/echolens/internal/visibility/driver"
)

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices       []choice       `json:"choices"`
	Usage         *usage         `json:"usage,omitempty"`
	Citations     []string       `json:"citations,omitempty"`
	SearchResults []searchResult `json:"search_results,omitempty"`
}

type choice struct {
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Content string `json:"content"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type searchResult struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
	Date  string `json:"date,omitempty"`
}

func buildChatRequest(req *driver.Request) (*chatCompletionRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	messages := make([]chatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}

	payload := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != nil {
		if req.ResponseFormat.Schema != nil {
			return nil, fmt.Errorf("response schema is not supported by perplexity driver")
		}
		payload.ResponseFormat = &responseFormat{Type: req.ResponseFormat.Type}
	}

	return payload, nil
}

func toDriverResponse(resp *chatCompletionResponse, raw []byte) (*driver.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	choice := resp.Choices[0]
	response := &driver.Response{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Citations:    resp.Citations,
		Raw:          raw,
	}

	if resp.Usage != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	for _, sr := range resp.SearchResults {
		if strings.TrimSpace(sr.URL) == "" {
			continue
		}
		response.SearchResults = append(response.SearchResults, driver.SearchResult{
			URL:   sr.URL,
			Title: sr.Title,
			Date:  sr.Date,
		})
	}

	return response, nil
}
