package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/larkbot/internal/feishu"
)

var showToken bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch a tenant access token and print its expiry",
	Long:  `Requests a tenant access token with the configured app credentials. Useful for checking credentials before running serve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Feishu.AppID == "" || cfg.Feishu.AppSecret == "" {
			return errors.New("feishu.app_id and feishu.app_secret are required (or set FEISHU_APP_ID and FEISHU_APP_SECRET)")
		}

		cache := feishu.NewTokenCache(createFeishuClientFromConfig(cfg),
			feishu.WithRefreshMargin(cfg.Feishu.RefreshMargin),
			feishu.WithLogger(newLogger(cfg)),
		)
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Feishu.Timeout)
		defer cancel()

		token, expiresAt, err := cache.Credential(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if showToken {
			fmt.Fprintf(out, "token:      %s\n", token)
		} else {
			fmt.Fprintf(out, "token:      %s\n", maskToken(token))
		}
		fmt.Fprintf(out, "expires at: %s (in %s)\n", expiresAt.Format(time.RFC3339), time.Until(expiresAt).Round(time.Second))
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&showToken, "show", false, "print the full token instead of a masked prefix")
	rootCmd.AddCommand(tokenCmd)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:8] + "…"
}
