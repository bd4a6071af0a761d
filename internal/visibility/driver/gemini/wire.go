package gemini

import (
	"fmt"
	"strings"

	"github.com/echolens/echolens/internal/visibility/driver"
)

type generateContentRequest struct {
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	Contents          []geminiContent   `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxOutputTokens  *int           `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateContentResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

type candidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func buildGenerateRequest(req *driver.Request) (*generateContentRequest, string, error) {
	if req == nil {
		return nil, "", fmt.Errorf("request is required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, "", fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, "", fmt.Errorf("messages are required")
	}

	payload := &generateContentRequest{}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			// generateContent has no system role; system prompts ride in
			// systemInstruction. Multiple system messages are concatenated.
			if payload.SystemInstruction == nil {
				payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
			} else {
				payload.SystemInstruction.Parts = append(payload.SystemInstruction.Parts, geminiPart{Text: msg.Content})
			}
		case "assistant":
			payload.Contents = append(payload.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			payload.Contents = append(payload.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(payload.Contents) == 0 {
		return nil, "", fmt.Errorf("at least one user message is required")
	}

	cfg := &generationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = req.ResponseFormat.Schema
	}
	if cfg.Temperature != nil || cfg.MaxOutputTokens != nil || cfg.ResponseMimeType != "" {
		payload.GenerationConfig = cfg
	}

	return payload, model, nil
}

func toDriverResponse(resp *generateContentResponse, raw []byte) (*driver.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response candidates")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}

	response := &driver.Response{
		Text:         text.String(),
		FinishReason: cand.FinishReason,
		Raw:          raw,
	}

	if resp.UsageMetadata != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	return response, nil
}
