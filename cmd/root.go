package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/larkbot/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "larkbot",
	Short: "Relay Lark/Feishu chat messages to an LLM and reply",
	Long: `larkbot receives Lark/Feishu event callbacks, answers each direct
message with a single completion from an LLM, and sends the answer back
to the sender as the application's bot.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
