// keyring.go provides credential storage using the operating system's
// native keyring (Linux: Secret Service/GNOME Keyring, macOS: Keychain,
// Windows: Credential Manager).
//
// Priority for resolving secrets:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Environment variable (SPUTNIK_API_KEY, OPENAI_API_KEY, ...)
//  3. .env file (loaded by godotenv)
//  4. config.yaml value (least secure — plaintext on disk)
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "sputnik"

	// KeyringAPIKey is the key name for the completion API key.
	KeyringAPIKey = "api_key"

	// KeyringTelegramToken is the key name for the Telegram bot token.
	KeyringTelegramToken = "telegram_token"

	// KeyringDiscordToken is the key name for the Discord bot token.
	KeyringDiscordToken = "discord_token"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty string
// if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__sputnik_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveCredentials fills in any secrets the loader left unresolved from
// the OS keyring. Config/env values already present win over the keyring so
// explicit configuration stays authoritative.
func ResolveCredentials(cfg *Config, logger *slog.Logger) {
	if cfg.API.APIKey == "" || IsEnvReference(cfg.API.APIKey) {
		if val := GetKeyring(KeyringAPIKey); val != "" {
			cfg.API.APIKey = val
			logger.Debug("API key loaded from OS keyring")
		}
	}

	if cfg.Channels.Telegram.Token == "" || IsEnvReference(cfg.Channels.Telegram.Token) {
		if val := GetKeyring(KeyringTelegramToken); val != "" {
			cfg.Channels.Telegram.Token = val
			logger.Debug("telegram token loaded from OS keyring")
		}
	}

	if cfg.Channels.Discord.Token == "" || IsEnvReference(cfg.Channels.Discord.Token) {
		if val := GetKeyring(KeyringDiscordToken); val != "" {
			cfg.Channels.Discord.Token = val
			logger.Debug("discord token loaded from OS keyring")
		}
	}

	if cfg.API.APIKey == "" {
		logger.Warn("no API key found. Set one with: sputnik config set-key or SPUTNIK_API_KEY")
	}
}

// ReadSecret prompts for a secret on stdin without echo when attached to a
// terminal, falling back to a plain read for piped input.
func ReadSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return string(secret), nil
	}

	var buf [1024]byte
	n, err := os.Stdin.Read(buf[:])
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(trimNewline(buf[:n])), nil
}

// trimNewline strips a trailing \n or \r\n.
func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
