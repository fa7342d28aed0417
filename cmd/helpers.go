package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ziadkadry99/larkbot/internal/config"
	"github.com/ziadkadry99/larkbot/internal/feishu"
	"github.com/ziadkadry99/larkbot/internal/llm"
	"github.com/ziadkadry99/larkbot/internal/logging"
)

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(ctx, string(cfg.LLM.Provider), cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
}

// createFeishuClientFromConfig creates the open-platform API client.
func createFeishuClientFromConfig(cfg *config.Config) *feishu.Client {
	return feishu.NewClient(feishu.ClientConfig{
		BaseURL:   cfg.Feishu.BaseURL,
		AppID:     cfg.Feishu.AppID,
		AppSecret: cfg.Feishu.AppSecret,
		Timeout:   cfg.Feishu.Timeout,
	})
}

// loadConfig loads the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `larkbot init` to create a config file", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}
