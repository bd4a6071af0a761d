package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/echolens/echolens/internal/visibility/driver"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the Google Gemini driver via direct HTTP.
//
// Gemini does not speak the OpenAI chat-completions shape: requests go to
// models/{model}:generateContent with a `contents` array, and structured
// output is requested through generationConfig.responseSchema, which the
// API enforces exactly.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Complete sends a generateContent request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, model, err := buildGenerateRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/models/" + model + ":generateContent"
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	// Gemini authenticates with a header key, not a bearer token.
	httpReq.Header.Set("x-goog-api-key", c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		driver.Trace(driver.TraceEntry{
			Driver:      "gemini",
			Endpoint:    url,
			Model:       model,
			RequestBody: body,
			Error:       err.Error(),
			DurationMs:  duration.Milliseconds(),
		})
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	driver.Trace(driver.TraceEntry{
		Driver:      "gemini",
		Endpoint:    url,
		Model:       model,
		RequestBody: body,
		StatusCode:  resp.StatusCode,
		Response:    respBody,
		DurationMs:  duration.Milliseconds(),
	})

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &driver.ProviderError{Provider: "gemini", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toDriverResponse(&parsed, respBody)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
