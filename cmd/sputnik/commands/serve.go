package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akazantsev/sputnik/pkg/sputnik/bot"
	"github.com/akazantsev/sputnik/pkg/sputnik/channels"
	"github.com/akazantsev/sputnik/pkg/sputnik/channels/discord"
	"github.com/akazantsev/sputnik/pkg/sputnik/channels/telegram"
	"github.com/akazantsev/sputnik/pkg/sputnik/channels/whatsapp"
	"github.com/akazantsev/sputnik/pkg/sputnik/config"
)

// newServeCmd creates the `sputnik serve` command that starts the bot.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bot with messaging channels",
		Long: `Start Sputnik as a long-running service, connecting to configured
channels (Telegram, Discord, WhatsApp) and processing messages.

Examples:
  sputnik serve
  sputnik serve --channel telegram
  sputnik serve --config ./config.yaml`,
		RunE: runServe,
	}

	cmd.Flags().StringSlice("channel", nil, "channels to enable (telegram, discord, whatsapp)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg)
	config.ResolveCredentials(cfg, logger)

	// ── Wire the core ──
	store := bot.NewHistoryStore(cfg.Persona.MaxHistory)
	active := bot.NewActiveSet()
	completer := bot.NewCompletionClient(cfg.API, logger)
	controller := bot.NewController(store, active, completer, cfg.Persona, logger)
	manager := channels.NewManager(logger)

	// ── Register channels ──
	channelFilter, _ := cmd.Flags().GetStringSlice("channel")

	if cfg.Channels.Telegram.Token != "" && shouldEnable("telegram", channelFilter) {
		tg := telegram.New(cfg.Channels.Telegram, logger)
		if err := manager.Register(tg); err != nil {
			logger.Error("failed to register Telegram", "error", err)
		}
	}

	if cfg.Channels.Discord.Token != "" && shouldEnable("discord", channelFilter) {
		dc := discord.New(cfg.Channels.Discord, logger)
		if err := manager.Register(dc); err != nil {
			logger.Error("failed to register Discord", "error", err)
		}
	}

	if cfg.Channels.WhatsApp.Enabled && shouldEnable("whatsapp", channelFilter) {
		wa := whatsapp.New(cfg.Channels.WhatsApp, logger)
		if err := manager.Register(wa); err != nil {
			logger.Error("failed to register WhatsApp", "error", err)
		}
	}

	if !manager.HasChannels() {
		return fmt.Errorf("no channels configured — set a token in config.yaml or run 'sputnik setup'")
	}

	var messenger *bot.Messenger
	if cfg.Spontaneous.Enabled {
		messenger = bot.NewMessenger(cfg.Spontaneous, active, completer, manager, cfg.Persona.SystemPrompt, logger)
	}

	assistant := bot.NewAssistant(manager, controller, messenger, logger)

	// ── Run until SIGINT/SIGTERM ──
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Sputnik running. Press Ctrl+C to stop.",
		"model", cfg.API.Model,
		"max_history", cfg.Persona.MaxHistory,
		"spontaneous", cfg.Spontaneous.Enabled,
	)

	if err := assistant.Run(ctx); err != nil {
		return fmt.Errorf("running assistant: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// setupLogger builds the process logger from config and the verbose flag.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	logLevel := slog.LevelInfo
	switch {
	case verbose || cfg.Logging.Level == "debug":
		logLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		logLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

// resolveConfig loads config from the --config flag, discovery, or falls
// back to defaults with env-provided credentials.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := config.FindConfigFile(); found != "" {
		cfg, err := config.LoadFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config loaded", "path", found)
		return cfg, nil
	}

	// No config file — run on defaults; credentials may still come from
	// env vars or the keyring.
	slog.Info("no config file found, using defaults",
		"hint", "run 'sputnik setup' to create one")
	return config.DefaultConfig(), nil
}

// shouldEnable checks a channel against the --channel filter. An empty
// filter enables everything that is configured.
func shouldEnable(name string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == name {
			return true
		}
	}
	return false
}
