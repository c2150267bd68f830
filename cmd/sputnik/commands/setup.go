package commands

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/akazantsev/sputnik/pkg/sputnik/config"
)

// newSetupCmd creates the `sputnik setup` command for interactive
// configuration.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Starts an interactive wizard to create your initial config.yaml.
Asks for the persona, completion endpoint, channel tokens, and the
spontaneous-messaging policy. Secrets go to the OS keyring when available.

Examples:
  sputnik setup`,
		RunE: runSetup,
	}
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()

	var (
		apiKey        string
		telegramToken string
		discordToken  string
		useKeyring    = config.KeyringAvailable()
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Persona").
				Description("The system directive that defines the bot's voice.").
				Value(&cfg.Persona.SystemPrompt),
			huh.NewInput().
				Title("Welcome message").
				Value(&cfg.Persona.Texts.Welcome),
			huh.NewSelect[int]().
				Title("History length").
				Description("How many messages each conversation remembers.").
				Options(huh.NewOptions(10, 20)...).
				Value(&cfg.Persona.MaxHistory),
			huh.NewConfirm().
				Title("Greet on first contact only?").
				Description("Yes: first message gets the welcome text. No: it runs a full turn.").
				Value(&cfg.Persona.GreetFirstContact),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Value(&cfg.API.BaseURL),
			huh.NewInput().
				Title("Model").
				Value(&cfg.API.Model),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("Leave empty to skip Telegram.").
				EchoMode(huh.EchoModePassword).
				Value(&telegramToken),
			huh.NewInput().
				Title("Discord bot token").
				Description("Leave empty to skip Discord.").
				EchoMode(huh.EchoModePassword).
				Value(&discordToken),
			huh.NewConfirm().
				Title("Enable WhatsApp?").
				Description("Requires a QR code login on first start.").
				Value(&cfg.Channels.WhatsApp.Enabled),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Spontaneous messages?").
				Description("The bot occasionally writes to active conversations on its own.").
				Value(&cfg.Spontaneous.Enabled),
			huh.NewConfirm().
				Title("Enroll conversations on /start?").
				Value(&cfg.Persona.EnrollOnStart),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	// Secrets: keyring when available, config file otherwise.
	storeSecret := func(keyName, value, label string) {
		if value == "" {
			return
		}
		if useKeyring {
			if err := config.StoreKeyring(keyName, value); err == nil {
				fmt.Printf("%s stored in OS keyring.\n", label)
				return
			}
		}
		fmt.Printf("%s stored in config.yaml (keyring unavailable). Consider using env vars.\n", label)
		switch keyName {
		case config.KeyringAPIKey:
			cfg.API.APIKey = value
		case config.KeyringTelegramToken:
			cfg.Channels.Telegram.Token = value
		case config.KeyringDiscordToken:
			cfg.Channels.Discord.Token = value
		}
	}

	storeSecret(config.KeyringAPIKey, apiKey, "API key")
	storeSecret(config.KeyringTelegramToken, telegramToken, "Telegram token")
	storeSecret(config.KeyringDiscordToken, discordToken, "Discord token")

	if err := config.SaveToFile(cfg, "config.yaml"); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration written to config.yaml. Start the bot with: sputnik serve")
	return nil
}
