package config

import "time"

// ProviderType identifies a completion service backend.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)

// Config is the top-level larkbot configuration, corresponding to larkbot.yml.
type Config struct {
	LogLevel  string       `yaml:"log_level" koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string       `yaml:"log_format" koanf:"log_format" validate:"oneof=text json"`
	Server    ServerConfig `yaml:"server" koanf:"server"`
	Feishu    FeishuConfig `yaml:"feishu" koanf:"feishu"`
	LLM       LLMConfig    `yaml:"llm" koanf:"llm"`
	Events    EventsConfig `yaml:"events" koanf:"events"`
}

// ServerConfig holds the inbound HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host" koanf:"host"`
	Port            int           `yaml:"port" koanf:"port" validate:"min=0,max=65535"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" koanf:"max_body_bytes" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout" validate:"gt=0"`
}

// FeishuConfig holds the chat platform application identity and API settings.
type FeishuConfig struct {
	AppID             string        `yaml:"app_id" koanf:"app_id" validate:"required"`
	AppSecret         string        `yaml:"app_secret" koanf:"app_secret" validate:"required"`
	BaseURL           string        `yaml:"base_url" koanf:"base_url" validate:"required,url"`
	VerificationToken string        `yaml:"verification_token" koanf:"verification_token"`
	Timeout           time.Duration `yaml:"timeout" koanf:"timeout" validate:"gt=0"`
	RefreshMargin     time.Duration `yaml:"refresh_margin" koanf:"refresh_margin" validate:"gte=0"`
	RefreshInterval   time.Duration `yaml:"refresh_interval" koanf:"refresh_interval" validate:"gte=0"`
}

// LLMConfig selects and tunes the completion service.
type LLMConfig struct {
	Provider      ProviderType  `yaml:"provider" koanf:"provider" validate:"required"`
	APIKey        string        `yaml:"api_key" koanf:"api_key"`
	BaseURL       string        `yaml:"base_url" koanf:"base_url" validate:"omitempty,url"`
	Model         string        `yaml:"model" koanf:"model" validate:"required"`
	MaxTokens     int           `yaml:"max_tokens" koanf:"max_tokens" validate:"gt=0"`
	Timeout       time.Duration `yaml:"timeout" koanf:"timeout" validate:"gt=0"`
	FallbackReply string        `yaml:"fallback_reply" koanf:"fallback_reply" validate:"required"`
}

// EventsConfig controls webhook delivery handling.
type EventsConfig struct {
	DedupeTTL     time.Duration `yaml:"dedupe_ttl" koanf:"dedupe_ttl" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" koanf:"sweep_interval" validate:"gt=0"`
	TaskTimeout   time.Duration `yaml:"task_timeout" koanf:"task_timeout" validate:"gt=0"`
}
