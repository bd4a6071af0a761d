package openai

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
			// Schema-constrained output is the gemini driver's job.
			return nil, fmt.Errorf("response schema is not supported by openai driver")
		}
		payload.ResponseFormat = &responseFormat{Type: req.ResponseFormat.Type}
	}

	return payload, nil
}
