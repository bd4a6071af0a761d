package visibility

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// KeyStatus is the outcome of a credential verification probe.
type KeyStatus string

const (
	KeyValid   KeyStatus = "valid"
	KeyInvalid KeyStatus = "invalid"
	KeyUnknown KeyStatus = "unknown"
)

// VerificationResult reports one provider's credential probe.
type VerificationResult struct {
	Provider Provider  `json:"provider"`
	Status   KeyStatus `json:"status"`
	Detail   string    `json:"detail,omitempty"`
}

const verifyTimeout = 15 * time.Second

// VerifyCredential issues a minimal models-list request to validate a key
// before a full run. HTTP 401 (and 403) classify as invalid; any transport
// or other failure is unknown rather than invalid.
func VerifyCredential(ctx context.Context, sel ProviderSelection, apiKey string, httpClient *http.Client) VerificationResult {
	result := VerificationResult{Provider: sel.Provider, Status: KeyUnknown}
	if strings.TrimSpace(apiKey) == "" {
		result.Status = KeyInvalid
		result.Detail = "no credential configured"
		return result
	}

	url, header := verifyEndpoint(sel)
	if url == "" {
		result.Detail = "verification not supported"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	if header == "x-goog-api-key" {
		req.Header.Set(header, apiKey)
	} else {
		req.Header.Set(header, "Bearer "+apiKey)
	}

	client := httpClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Status = KeyValid
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		result.Status = KeyInvalid
		result.Detail = strings.TrimSpace(string(body))
	default:
		result.Detail = fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return result
}

// verifyEndpoint returns the cheap probe URL for a provider. All supported
// providers expose a models-list GET.
func verifyEndpoint(sel ProviderSelection) (string, string) {
	base := strings.TrimRight(strings.TrimSpace(sel.BaseURL), "/")

	switch sel.Provider {
	case ProviderOpenAI:
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return base + "/models", "Authorization"
	case ProviderGrok:
		if base == "" {
			base = "https://api.x.ai/v1"
		}
		return base + "/models", "Authorization"
	case ProviderPerplexity:
		if base == "" {
			base = "https://api.perplexity.ai"
		}
		return base + "/models", "Authorization"
	case ProviderGemini:
		if base == "" {
			base = "https://generativelanguage.googleapis.com/v1beta"
		}
		return base + "/models", "x-goog-api-key"
	default:
		return "", ""
	}
}
