// loader.go handles loading configuration from YAML files with credential
// management via environment variables and .env files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadFromFile reads and parses a YAML configuration file. Automatically
// loads .env files and expands environment variables before parsing.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg, err := Parse([]byte(expanded))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	checkFilePermissions(path)

	return cfg, nil
}

// Parse parses YAML bytes into a Config, overlaying values onto defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes a Config as YAML with restricted permissions. Secrets
// are replaced with environment variable references where possible.
func SaveToFile(cfg *Config, path string) error {
	sanitized := *cfg
	sanitized.API.APIKey = sanitizeSecret(cfg.API.APIKey, "SPUTNIK_API_KEY")
	sanitized.Channels.Telegram.Token = sanitizeSecret(cfg.Channels.Telegram.Token, "SPUTNIK_TELEGRAM_TOKEN")
	sanitized.Channels.Discord.Token = sanitizeSecret(cfg.Channels.Discord.Token, "SPUTNIK_DISCORD_TOKEN")

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"sputnik.yaml",
		"sputnik.yml",
		"configs/config.yaml",
		"configs/sputnik.yaml",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ---------- Internal ----------

// loadEnvFiles loads .env files from standard locations.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		// godotenv.Load does NOT overwrite existing env vars.
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and $VAR references in a string with their
// environment variable values. Unset variables are left as-is so
// placeholders survive a round trip.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if val, ok := os.LookupEnv(varName); ok {
			return val
		}

		return match
	})
}

// resolveSecrets fills in config secrets from environment variables when
// the config value is empty or still a placeholder.
func resolveSecrets(cfg *Config) {
	if cfg.API.APIKey == "" || IsEnvReference(cfg.API.APIKey) {
		if key := os.Getenv("SPUTNIK_API_KEY"); key != "" {
			cfg.API.APIKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.API.APIKey = key
		}
	}

	if cfg.Channels.Telegram.Token == "" || IsEnvReference(cfg.Channels.Telegram.Token) {
		if token := os.Getenv("SPUTNIK_TELEGRAM_TOKEN"); token != "" {
			cfg.Channels.Telegram.Token = token
		} else if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
			cfg.Channels.Telegram.Token = token
		}
	}

	if cfg.Channels.Discord.Token == "" || IsEnvReference(cfg.Channels.Discord.Token) {
		if token := os.Getenv("SPUTNIK_DISCORD_TOKEN"); token != "" {
			cfg.Channels.Discord.Token = token
		}
	}
}

// sanitizeSecret replaces a real secret with an env var reference for safe
// storage in config files.
func sanitizeSecret(value, envVar string) string {
	if value == "" || IsEnvReference(value) {
		return value
	}
	if os.Getenv(envVar) == value {
		return "${" + envVar + "}"
	}
	return value
}

// IsEnvReference checks if a string is an environment variable reference.
func IsEnvReference(s string) bool {
	return strings.HasPrefix(s, "${") || strings.HasPrefix(s, "$")
}

// checkFilePermissions warns if the config file is group/world-readable.
func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0o044 != 0 {
		slog.Warn("config file has open permissions, consider restricting",
			"path", path,
			"current", fmt.Sprintf("%04o", mode),
			"recommended", "0600",
			"fix", fmt.Sprintf("chmod 600 %s", path),
		)
	}
}
