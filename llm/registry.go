package llm

import (
	"fmt"
	"sync"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ClientKey uniquely identifies an LLM client configuration.
type ClientKey struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string // For OpenAI-compatible endpoints
}

// ProviderConfig holds the configuration needed by the provider registry.
// This avoids import cycles by not importing the config package.
type ProviderConfig struct {
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
}

// ProviderRegistry manages LLM provider selection and configuration
// resolution. Client creation is handled by the caller to avoid import
// cycles with the provider subpackages.
type ProviderRegistry struct {
	enabledProviders []string
	mu               sync.RWMutex
	config           *ProviderConfig
}

// NewProviderRegistry creates a ProviderRegistry with the given config and
// an ordered list of enabled providers. Order expresses preference.
func NewProviderRegistry(providerConfig *ProviderConfig, enabledProviders []string) *ProviderRegistry {
	return &ProviderRegistry{
		enabledProviders: enabledProviders,
		config:           providerConfig,
	}
}

// IsProviderEnabled checks if a provider is in the enabled providers list.
func (r *ProviderRegistry) IsProviderEnabled(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.enabledProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// IsProviderConfigured checks if a provider has the required configuration.
func (r *ProviderRegistry) IsProviderConfigured(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isProviderConfiguredUnlocked(provider)
}

func (r *ProviderRegistry) isProviderConfiguredUnlocked(provider string) bool {
	switch provider {
	case ProviderAnthropic:
		return r.config.AnthropicAPIKey != ""
	case ProviderOpenAI:
		return r.config.OpenAIAPIKey != ""
	default:
		return false
	}
}

// Resolve returns a ClientKey for the first enabled provider that is
// configured, in preference order.
func (r *ProviderRegistry) Resolve() (*ClientKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range r.enabledProviders {
		if !r.isProviderConfiguredUnlocked(provider) {
			continue
		}
		switch provider {
		case ProviderAnthropic:
			return &ClientKey{
				Provider: ProviderAnthropic,
				Model:    r.config.AnthropicModel,
				APIKey:   r.config.AnthropicAPIKey,
			}, nil
		case ProviderOpenAI:
			return &ClientKey{
				Provider: ProviderOpenAI,
				Model:    r.config.OpenAIModel,
				APIKey:   r.config.OpenAIAPIKey,
				BaseURL:  r.config.OpenAIBaseURL,
			}, nil
		}
	}

	return nil, fmt.Errorf("no configured provider among enabled providers %v", r.enabledProviders)
}
