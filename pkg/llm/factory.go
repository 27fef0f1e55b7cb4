package llm

import (
	"fmt"

	"assistant/pkg/config"
)

// NewClient constructs the completion client for the configured provider.
// API keys are resolved by the caller (env or secrets file, see config).
func NewClient(cfg config.Config, apiKey string) (Client, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic provider requires %s", config.SecretAnthropicKey)
		}
		return NewAnthropicClient(apiKey, cfg.Model), nil
	case config.ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires %s", config.SecretOpenAIKey)
		}
		return NewOpenAIClient(apiKey, cfg.Model), nil
	case config.ProviderGoogle:
		if apiKey == "" {
			return nil, fmt.Errorf("google provider requires %s", config.SecretGeminiKey)
		}
		return NewGeminiClient(apiKey, cfg.Model), nil
	case config.ProviderOllama:
		return NewOllamaClient(cfg.OllamaHost, cfg.Model), nil
	case config.ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
