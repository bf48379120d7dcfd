package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otc-labs/otc/internal/config"
)

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get and set configuration values",
	Long: `Reads and writes ` + config.FilePath() + `.

Keys:
  update.url               manifest endpoint checked at startup
  update.auto_apply        install available updates without prompting
  update.check_timeout     manifest fetch timeout (e.g. 6s)
  update.download_timeout  artifact download timeout (e.g. 30s)
  store.path               course database location`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		fmt.Println(config.Get(args[0]))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		return config.Set(args[0], args[1])
	},
}
