// Package config provides configuration management for EchoLens.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/echolens/echolens/internal/visibility"
)

// Config is the full application configuration.
type Config struct {
	Brand     BrandConfig               `mapstructure:"brand"`
	Prompts   []string                  `mapstructure:"prompts"`
	Questions []string                  `mapstructure:"questions"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`

	// Credentials is a shared key set referenced by provider entries, so
	// two provider variants can use one underlying key.
	Credentials map[string]string `mapstructure:"credentials"`

	Retry      RetryConfig   `mapstructure:"retry"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CaptureRaw bool          `mapstructure:"capture_raw"`

	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
}

// BrandConfig names the tracked brands.
type BrandConfig struct {
	Client      string   `mapstructure:"client" yaml:"client"`
	Competitors []string `mapstructure:"competitors" yaml:"competitors"`
	// MatchMode is "exact" or "broad".
	MatchMode string `mapstructure:"match_mode" yaml:"match_mode"`
}

// ProviderConfig is one provider instance.
type ProviderConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Model         string `mapstructure:"model" yaml:"model"`
	AnalysisModel string `mapstructure:"analysis_model" yaml:"analysis_model"`
	APIKey        string `mapstructure:"api_key" yaml:"api_key"`
	// Credential names an entry in Config.Credentials; defaults to the
	// provider id. Ignored when APIKey is set directly.
	Credential string `mapstructure:"credential" yaml:"credential"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
}

// RetryConfig tunes the per-cell retry policy.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// StoreConfig locates the report store.
type StoreConfig struct {
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ServerConfig configures the report server.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// envKeyFallbacks are the conventional environment variables consulted when
// a provider has no key in the config file.
var envKeyFallbacks = map[visibility.Provider][]string{
	visibility.ProviderOpenAI:     {"ECHOLENS_OPENAI_API_KEY", "OPENAI_API_KEY"},
	visibility.ProviderGrok:       {"ECHOLENS_XAI_API_KEY", "XAI_API_KEY"},
	visibility.ProviderGemini:     {"ECHOLENS_GEMINI_API_KEY", "GEMINI_API_KEY"},
	visibility.ProviderPerplexity: {"ECHOLENS_PERPLEXITY_API_KEY", "PERPLEXITY_API_KEY"},
}

// RunConfig maps the file configuration onto an immutable run
// configuration. Enabled providers are ordered canonically so runs are
// reproducible regardless of map iteration order.
func (c *Config) RunConfig() (*visibility.RunConfig, error) {
	run := &visibility.RunConfig{
		Credentials:    map[string]string{},
		ClientBrand:    strings.TrimSpace(c.Brand.Client),
		Competitors:    c.Brand.Competitors,
		Prompts:        c.Prompts,
		Questions:      c.Questions,
		MatchMode:      visibility.MatchMode(strings.TrimSpace(c.Brand.MatchMode)),
		MaxRetries:     c.Retry.MaxRetries,
		RetryBaseDelay: c.Retry.BaseDelay,
		Timeout:        c.Timeout,
		CaptureRaw:     c.CaptureRaw,
	}
	if run.MatchMode == "" {
		run.MatchMode = visibility.MatchExact
	}

	for _, provider := range visibility.Providers() {
		pc, ok := c.Providers[string(provider)]
		if !ok || !pc.Enabled {
			continue
		}

		ref := strings.TrimSpace(pc.Credential)
		if ref == "" {
			ref = string(provider)
		}
		run.Credentials[ref] = c.resolveKey(provider, pc, ref)

		run.Selections = append(run.Selections, visibility.ProviderSelection{
			Provider:      provider,
			Model:         strings.TrimSpace(pc.Model),
			AnalysisModel: strings.TrimSpace(pc.AnalysisModel),
			CredentialRef: ref,
			BaseURL:       strings.TrimSpace(pc.BaseURL),
		})
	}

	for name := range c.Providers {
		if !knownProviderName(name) {
			return nil, fmt.Errorf("unknown provider %q in configuration", name)
		}
	}

	return run, nil
}

func (c *Config) resolveKey(provider visibility.Provider, pc ProviderConfig, ref string) string {
	if key := strings.TrimSpace(pc.APIKey); key != "" {
		return key
	}
	if key := strings.TrimSpace(c.Credentials[ref]); key != "" {
		return key
	}
	for _, env := range envKeyFallbacks[provider] {
		if key := strings.TrimSpace(os.Getenv(env)); key != "" {
			return key
		}
	}
	return ""
}

func knownProviderName(name string) bool {
	for _, p := range visibility.Providers() {
		if string(p) == name {
			return true
		}
	}
	return false
}
