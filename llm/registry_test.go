package llm

import "testing"

func TestResolvePrefersProviderOrder(t *testing.T) {
	cfg := &ProviderConfig{
		AnthropicAPIKey: "ant-key",
		AnthropicModel:  "claude-sonnet-4-5",
		OpenAIAPIKey:    "oai-key",
		OpenAIModel:     "gpt-4o-mini",
	}

	registry := NewProviderRegistry(cfg, []string{ProviderOpenAI, ProviderAnthropic})
	key, err := registry.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.Provider != ProviderOpenAI {
		t.Errorf("provider = %s, want openai (listed first)", key.Provider)
	}
}

func TestResolveSkipsUnconfigured(t *testing.T) {
	cfg := &ProviderConfig{
		OpenAIAPIKey: "oai-key",
		OpenAIModel:  "gpt-4o-mini",
	}

	registry := NewProviderRegistry(cfg, []string{ProviderAnthropic, ProviderOpenAI})
	key, err := registry.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.Provider != ProviderOpenAI {
		t.Errorf("provider = %s, want openai (anthropic unconfigured)", key.Provider)
	}
}

func TestResolveNoProviderConfigured(t *testing.T) {
	registry := NewProviderRegistry(&ProviderConfig{}, []string{ProviderAnthropic})
	if _, err := registry.Resolve(); err == nil {
		t.Fatal("expected error with no configured provider")
	}
}

func TestIsProviderEnabled(t *testing.T) {
	registry := NewProviderRegistry(&ProviderConfig{}, []string{ProviderAnthropic})
	if !registry.IsProviderEnabled(ProviderAnthropic) {
		t.Error("anthropic should be enabled")
	}
	if registry.IsProviderEnabled(ProviderOpenAI) {
		t.Error("openai should not be enabled")
	}
}
