package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to larkbot! Let's configure your relay.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Feishu application identity.
	appID, err := (&promptui.Prompt{
		Label:    "Feishu app ID",
		Validate: required("app ID"),
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("app id: %w", err)
	}
	cfg.Feishu.AppID = strings.TrimSpace(appID)

	appSecret, err := (&promptui.Prompt{
		Label:    "Feishu app secret",
		Mask:     '*',
		Validate: required("app secret"),
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("app secret: %w", err)
	}
	cfg.Feishu.AppSecret = strings.TrimSpace(appSecret)

	verification, err := (&promptui.Prompt{
		Label:   "Event verification token (blank to skip checks)",
		Default: "",
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("verification token: %w", err)
	}
	cfg.Feishu.VerificationToken = strings.TrimSpace(verification)

	// 2. Completion provider and model.
	_, providerStr, err := (&promptui.Select{
		Label: "Select completion provider",
		Items: []string{string(ProviderOpenAI), string(ProviderGemini)},
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(providerStr)

	model, err := (&promptui.Prompt{
		Label:   "Model",
		Default: DefaultModelFor(cfg.LLM.Provider),
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.LLM.Model = strings.TrimSpace(model)

	// 3. Listener.
	portStr, err := (&promptui.Prompt{
		Label:   "Listen port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return errors.New("port must be between 1 and 65535")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// The API key stays in the environment rather than on disk.
	if envVar := APIKeyEnvVar(cfg.LLM.Provider); os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running larkbot serve.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func required(field string) promptui.ValidateFunc {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
