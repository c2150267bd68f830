package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/akazantsev/sputnik/pkg/sputnik/config"
)

// newConfigCmd creates the `sputnik config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the bot configuration",
		Long: `Manage the Sputnik configuration.

Examples:
  sputnik config init
  sputnik config show
  sputnik config set-key`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigSetKeyCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat("config.yaml"); err == nil {
				return fmt.Errorf("config.yaml already exists, refusing to overwrite")
			}
			if err := config.SaveToFile(config.DefaultConfig(), "config.yaml"); err != nil {
				return err
			}
			fmt.Println("Configuration written to ./config.yaml")
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			// Never print resolved secrets.
			cfg.API.APIKey = redact(cfg.API.APIKey)
			cfg.Channels.Telegram.Token = redact(cfg.Channels.Telegram.Token)
			cfg.Channels.Discord.Token = redact(cfg.Channels.Discord.Token)

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func newConfigSetKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store a credential in the OS keyring",
		Long: `Prompts for a credential and stores it in the operating system keyring
(Secret Service/GNOME Keyring, macOS Keychain, Windows Credential Manager).

Examples:
  sputnik config set-key
  sputnik config set-key --name telegram_token`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			switch name {
			case config.KeyringAPIKey, config.KeyringTelegramToken, config.KeyringDiscordToken:
			default:
				return fmt.Errorf("unknown key name %q (valid: %s, %s, %s)",
					name, config.KeyringAPIKey, config.KeyringTelegramToken, config.KeyringDiscordToken)
			}

			if !config.KeyringAvailable() {
				return fmt.Errorf("OS keyring is not available; use environment variables instead")
			}

			secret, err := config.ReadSecret(fmt.Sprintf("Value for %s: ", name))
			if err != nil {
				return err
			}
			if secret == "" {
				return fmt.Errorf("empty value, nothing stored")
			}

			if err := config.StoreKeyring(name, secret); err != nil {
				return fmt.Errorf("storing in keyring: %w", err)
			}

			fmt.Printf("%s stored in OS keyring.\n", name)
			return nil
		},
	}

	cmd.Flags().String("name", config.KeyringAPIKey, "which credential to store (api_key, telegram_token, discord_token)")
	return cmd
}

// redact masks a secret for display, keeping a short prefix.
func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + "****"
}
