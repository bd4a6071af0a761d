package visibility

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyCredentialValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		require.Equal(t, "Bearer good-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	result := VerifyCredential(context.Background(), ProviderSelection{Provider: ProviderOpenAI, BaseURL: server.URL}, "good-key", server.Client())
	require.Equal(t, KeyValid, result.Status)
	require.Equal(t, ProviderOpenAI, result.Provider)
}

func TestVerifyCredentialInvalidOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid api key"))
	}))
	defer server.Close()

	result := VerifyCredential(context.Background(), ProviderSelection{Provider: ProviderGrok, BaseURL: server.URL}, "bad-key", server.Client())
	require.Equal(t, KeyInvalid, result.Status)
	require.Contains(t, result.Detail, "invalid api key")
}

func TestVerifyCredentialUnknownOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// 5xx says nothing about the key itself.
	result := VerifyCredential(context.Background(), ProviderSelection{Provider: ProviderPerplexity, BaseURL: server.URL}, "key", server.Client())
	require.Equal(t, KeyUnknown, result.Status)
	require.Contains(t, result.Detail, "status 500")
}

func TestVerifyCredentialUnknownOnTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	result := VerifyCredential(context.Background(), ProviderSelection{Provider: ProviderOpenAI, BaseURL: server.URL}, "key", nil)
	require.Equal(t, KeyUnknown, result.Status)
	require.NotEmpty(t, result.Detail)
}

func TestVerifyCredentialMissingKey(t *testing.T) {
	result := VerifyCredential(context.Background(), ProviderSelection{Provider: ProviderOpenAI}, "  ", nil)
	require.Equal(t, KeyInvalid, result.Status)
	require.Equal(t, "no credential configured", result.Detail)
}

func TestVerifyCredentialGeminiUsesHeaderKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "goog-key", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	result := VerifyCredential(context.Background(), ProviderSelection{Provider: ProviderGemini, BaseURL: server.URL}, "goog-key", server.Client())
	require.Equal(t, KeyValid, result.Status)
}
