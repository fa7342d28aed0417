package llm

import (
	"context"
	"fmt"
)

// NewProvider creates a new LLM provider based on the given provider type.
// Supported provider types: "openai" (including OpenAI-compatible servers
// via baseURL) and "gemini".
func NewProvider(ctx context.Context, providerType, apiKey, baseURL, model string) (Provider, error) {
	switch providerType {
	case "openai":
		if apiKey == "" && baseURL == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIProvider(apiKey, baseURL, model), nil

	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return NewGeminiProvider(ctx, apiKey, baseURL, model)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
