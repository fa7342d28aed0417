package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "LARKBOT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LARKBOT_*, with "__" separating nested
// keys), then fills still-empty credentials from the conventional
// FEISHU_* / OPENAI_* / GEMINI_* variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// LARKBOT_FEISHU__APP_ID -> feishu.app_id, LARKBOT_LOG_LEVEL -> log_level.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// An unset model follows the provider rather than the OpenAI default.
	modelSet := k.String("llm.model") != ""
	if !modelSet {
		cfg.LLM.Model = DefaultModelFor(cfg.LLM.Provider)
	}

	applyConventionalEnv(cfg, modelSet)
	return cfg, nil
}

// applyConventionalEnv fills empty fields from the variable names the
// relay has historically been deployed with.
func applyConventionalEnv(cfg *Config, modelSet bool) {
	setIfEmpty(&cfg.Feishu.AppID, "FEISHU_APP_ID")
	setIfEmpty(&cfg.Feishu.AppSecret, "FEISHU_APP_SECRET")
	if key := APIKeyEnvVar(cfg.LLM.Provider); key != "" {
		setIfEmpty(&cfg.LLM.APIKey, key)
	}
	if v := os.Getenv("OPENAI_CHAT_MODEL"); v != "" && cfg.LLM.Provider == ProviderOpenAI && !modelSet {
		cfg.LLM.Model = v
	}
}

func setIfEmpty(dst *string, envVar string) {
	if *dst != "" {
		return
	}
	*dst = os.Getenv(envVar)
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderGemini: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of openai, gemini", c.LLM.Provider)
	}

	// OpenAI-compatible servers behind a custom base_url may not need a key.
	if c.LLM.APIKey == "" && (c.LLM.Provider == ProviderGemini || c.LLM.BaseURL == "") {
		return fmt.Errorf("llm.api_key is required for provider %s (or set %s)", c.LLM.Provider, APIKeyEnvVar(c.LLM.Provider))
	}

	if c.Feishu.RefreshInterval > 0 && c.Feishu.RefreshInterval >= c.Feishu.RefreshMargin {
		return fmt.Errorf("feishu.refresh_interval (%s) must be shorter than feishu.refresh_margin (%s)",
			c.Feishu.RefreshInterval, c.Feishu.RefreshMargin)
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
