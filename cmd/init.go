package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/larkbot/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize larkbot configuration with an interactive wizard",
	Long:  `Runs an interactive wizard for the Feishu app identity and LLM settings and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
