// Package config defines the Sputnik configuration tree and its YAML
// loading, environment expansion, and credential resolution.
package config

import (
	"github.com/akazantsev/sputnik/pkg/sputnik/bot"
	"github.com/akazantsev/sputnik/pkg/sputnik/channels/discord"
	"github.com/akazantsev/sputnik/pkg/sputnik/channels/telegram"
	"github.com/akazantsev/sputnik/pkg/sputnik/channels/whatsapp"
)

// Config is the root configuration.
type Config struct {
	Persona     bot.PersonaConfig     `yaml:"persona"`
	API         bot.APIConfig         `yaml:"api"`
	Spontaneous bot.SpontaneousConfig `yaml:"spontaneous"`
	Channels    ChannelsConfig        `yaml:"channels"`
	Logging     LoggingConfig         `yaml:"logging"`
}

// ChannelsConfig groups all transport configurations. A channel is enabled
// when its credentials are set (Telegram/Discord) or explicitly via its
// Enabled flag (WhatsApp).
type ChannelsConfig struct {
	Telegram telegram.Config `yaml:"telegram"`
	Discord  discord.Config  `yaml:"discord"`
	WhatsApp whatsapp.Config `yaml:"whatsapp"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config populated with every component's defaults.
func DefaultConfig() *Config {
	return &Config{
		Persona:     bot.DefaultPersonaConfig(),
		API:         bot.DefaultAPIConfig(),
		Spontaneous: bot.DefaultSpontaneousConfig(),
		Channels: ChannelsConfig{
			Telegram: telegram.DefaultConfig(),
			Discord:  discord.DefaultConfig(),
			WhatsApp: whatsapp.DefaultConfig(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
