package visibility

import (
	"fmt"
	"strings"
	"time"
)

// ProviderSelection configures one provider for a run.
type ProviderSelection struct {
	Provider Provider
	// Model handles the primary completion; AnalysisModel, when set,
	// handles the analysis and auxiliary passes instead (search-capable
	// models are priced for search, not extraction).
	Model         string
	AnalysisModel string
	// CredentialRef names the credential in RunConfig.Credentials.
	// Several providers may reference the same key.
	CredentialRef string
	BaseURL       string
}

// RunConfig is the immutable configuration for one analysis run.
type RunConfig struct {
	Selections  []ProviderSelection
	Credentials map[string]string

	ClientBrand string
	Competitors []string
	Prompts     []string
	Questions   []string
	MatchMode   MatchMode

	// MaxRetries/RetryBaseDelay tune the per-cell retry policy. Zero
	// values fall back to the defaults (2 retries, 1s base).
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Timeout bounds each provider call. Zero means the driver default.
	Timeout time.Duration

	// CaptureRaw enables per-call raw payload capture on results.
	CaptureRaw bool
}

// ConfigError reports a configuration problem that prevents a run from
// starting. It is the only error class that fails a whole run.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "configuration error"
	}
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
	}
	return "configuration error: " + e.Message
}

// KnownBrands returns the client brand followed by competitors.
func (c *RunConfig) KnownBrands() []string {
	brands := make([]string, 0, len(c.Competitors)+1)
	if strings.TrimSpace(c.ClientBrand) != "" {
		brands = append(brands, c.ClientBrand)
	}
	brands = append(brands, c.Competitors...)
	return brands
}

// Validate checks the configuration before any work unit is created.
func (c *RunConfig) Validate() error {
	if c == nil {
		return &ConfigError{Message: "run configuration is required"}
	}
	if len(c.Selections) == 0 {
		return &ConfigError{Field: "providers", Message: "at least one provider must be selected"}
	}
	if len(c.Prompts) == 0 {
		return &ConfigError{Field: "prompts", Message: "at least one prompt is required"}
	}
	if strings.TrimSpace(c.ClientBrand) == "" {
		return &ConfigError{Field: "client_brand", Message: "client brand is required"}
	}
	switch c.MatchMode {
	case MatchExact, MatchBroad:
	case "":
		return &ConfigError{Field: "match_mode", Message: "match mode is required"}
	default:
		return &ConfigError{Field: "match_mode", Message: fmt.Sprintf("unsupported match mode %q", c.MatchMode)}
	}

	seen := make(map[Provider]bool, len(c.Selections))
	for _, sel := range c.Selections {
		if !knownProvider(sel.Provider) {
			return &ConfigError{Field: string(sel.Provider), Message: "unknown provider"}
		}
		if seen[sel.Provider] {
			return &ConfigError{Field: string(sel.Provider), Message: "provider selected twice"}
		}
		seen[sel.Provider] = true

		if strings.TrimSpace(sel.Model) == "" {
			return &ConfigError{Field: string(sel.Provider), Message: "model is required"}
		}
		ref := strings.TrimSpace(sel.CredentialRef)
		if ref == "" {
			return &ConfigError{Field: string(sel.Provider), Message: "credential reference is required"}
		}
		if strings.TrimSpace(c.Credentials[ref]) == "" {
			return &ConfigError{Field: string(sel.Provider), Message: fmt.Sprintf("credential %q is missing", ref)}
		}
	}

	return nil
}

func knownProvider(p Provider) bool {
	for _, known := range Providers() {
		if p == known {
			return true
		}
	}
	return false
}
