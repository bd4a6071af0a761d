package grok

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echolens/echolens/internal/visibility/driver"
)

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: []driver.Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer xai-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"choices\":[{\"message\":{\"content\":\"```json\\n{\\\"brands\\\":[]}\\n```\"},\"finish_reason\":\"stop\"}],\"usage\":{\"prompt_tokens\":4,\"completion_tokens\":8,\"total_tokens\":12}}"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "xai-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model:    "grok-4",
		Messages: []driver.Message{{Role: "user", Content: "usr"}},
	})
	require.NoError(t, err)
	require.Equal(t, "stop", resp.FinishReason)
	// Fenced payloads are returned verbatim; extraction happens upstream.
	require.Contains(t, resp.Text, "```json")
	require.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestClientReturnsProviderErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "xai-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "grok-4", Messages: []driver.Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)

	var provErr *driver.ProviderError
	require.True(t, errors.As(err, &provErr))
	require.Equal(t, "grok", provErr.Provider)
	require.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
}

func TestClientRejectsResponseSchema(t *testing.T) {
	client := NewClient("", "xai-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:          "grok-4",
		Messages:       []driver.Message{{Role: "user", Content: "hi"}},
		ResponseFormat: &driver.ResponseFormat{Type: "json_object", Schema: map[string]any{"type": "object"}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema")
}
