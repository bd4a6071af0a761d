package visibility

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/echolens/echolens/internal/visibility/driver"
	"github.com/echolens/echolens/internal/visibility/driver/gemini"
	"github.com/echolens/echolens/internal/visibility/driver/grok"
	"github.com/echolens/echolens/internal/visibility/driver/openai"
	"github.com/echolens/echolens/internal/visibility/driver/perplexity"
)

// ClientSet holds the constructed adapters for a run, in selection order.
// Construction performs no network calls, so configuration failures surface
// before any work unit starts.
type ClientSet struct {
	adapters map[Provider]Adapter
	order    []Provider
}

// clientFactory builds driver handles. Swappable in tests.
type clientFactory struct {
	httpClient *http.Client
	timeout    time.Duration

	// handles are cached by provider type and credential so selections
	// sharing a key share the underlying handle.
	handles map[string]driver.Driver
}

// NewClientSet validates credentials and constructs one adapter per
// selected provider. Returns a *ConfigError naming the missing credential
// when any selected provider lacks one.
func NewClientSet(cfg *RunConfig) (*ClientSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory := &clientFactory{timeout: cfg.Timeout, handles: map[string]driver.Driver{}}
	set := &ClientSet{adapters: make(map[Provider]Adapter, len(cfg.Selections))}

	for _, sel := range cfg.Selections {
		key := strings.TrimSpace(cfg.Credentials[sel.CredentialRef])
		drv, err := factory.driverFor(sel, key)
		if err != nil {
			return nil, err
		}
		set.adapters[sel.Provider] = newAdapter(sel, drv)
		set.order = append(set.order, sel.Provider)
	}

	return set, nil
}

// Adapter returns the adapter for a provider, or nil if not selected.
func (s *ClientSet) Adapter(p Provider) Adapter {
	if s == nil {
		return nil
	}
	return s.adapters[p]
}

// Order returns the providers in selection order.
func (s *ClientSet) Order() []Provider {
	if s == nil {
		return nil
	}
	return s.order
}

func (f *clientFactory) driverFor(sel ProviderSelection, apiKey string) (driver.Driver, error) {
	cacheKey := string(sel.Provider) + ":" + sel.CredentialRef + ":" + sel.BaseURL
	if drv, ok := f.handles[cacheKey]; ok {
		return drv, nil
	}

	var drv driver.Driver
	switch sel.Provider {
	case ProviderOpenAI:
		client := openai.NewClient(sel.BaseURL, apiKey)
		client.HTTPClient = f.httpClient
		client.Timeout = f.timeout
		drv = client
	case ProviderGrok:
		client := grok.NewClient(sel.BaseURL, apiKey)
		client.HTTPClient = f.httpClient
		client.Timeout = f.timeout
		drv = client
	case ProviderGemini:
		client := gemini.NewClient(sel.BaseURL, apiKey)
		client.HTTPClient = f.httpClient
		client.Timeout = f.timeout
		drv = client
	case ProviderPerplexity:
		client := perplexity.NewClient(sel.BaseURL, apiKey)
		client.HTTPClient = f.httpClient
		client.Timeout = f.timeout
		drv = client
	default:
		return nil, &ConfigError{Field: string(sel.Provider), Message: fmt.Sprintf("unsupported provider %q", sel.Provider)}
	}

	f.handles[cacheKey] = drv
	return drv, nil
}
