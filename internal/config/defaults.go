package config

import "time"

const (
	DefaultConfigPath    = "larkbot.yml"
	DefaultPort          = 3000
	DefaultFeishuBaseURL = "https://open.feishu.cn/open-apis"
	DefaultModel         = "gpt-3.5-turbo"
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultFallbackReply = "error placeholder"
)

// DefaultConfig returns a Config with sensible defaults. The Feishu
// application identity has no default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            DefaultPort,
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 15 * time.Second,
		},
		Feishu: FeishuConfig{
			BaseURL:       DefaultFeishuBaseURL,
			Timeout:       10 * time.Second,
			RefreshMargin: 30 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:      ProviderOpenAI,
			Model:         DefaultModel,
			MaxTokens:     1000,
			Timeout:       60 * time.Second,
			FallbackReply: DefaultFallbackReply,
		},
		Events: EventsConfig{
			DedupeTTL:     10 * time.Minute,
			SweepInterval: time.Minute,
			TaskTimeout:   2 * time.Minute,
		},
	}
}

// DefaultModelFor returns the model used when a provider is picked
// without an explicit model.
func DefaultModelFor(provider ProviderType) string {
	if provider == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultModel
}
