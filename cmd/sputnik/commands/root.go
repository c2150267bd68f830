// Package commands implements the Sputnik CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sputnik",
		Short: "Sputnik - persona chat companion",
		Long: `Sputnik is a conversational companion bot. It keeps a short rolling
history per conversation, relays it to an OpenAI-compatible completion
endpoint, and occasionally writes to active conversations on its own.

Examples:
  sputnik serve
  sputnik serve --channel telegram
  sputnik chat
  sputnik setup`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newSetupCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
