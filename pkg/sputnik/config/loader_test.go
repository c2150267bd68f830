package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseOverlaysDefaults(t *testing.T) {
	data := []byte(`
persona:
  system_prompt: "You are a test persona."
  max_history: 20
api:
  model: test-model
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Persona.SystemPrompt != "You are a test persona." {
		t.Errorf("system_prompt: got %q", cfg.Persona.SystemPrompt)
	}
	if cfg.Persona.MaxHistory != 20 {
		t.Errorf("max_history: got %d", cfg.Persona.MaxHistory)
	}
	if cfg.API.Model != "test-model" {
		t.Errorf("model: got %q", cfg.API.Model)
	}

	// Untouched fields keep their defaults.
	if cfg.API.MaxTokens != 1024 {
		t.Errorf("max_tokens default lost: got %d", cfg.API.MaxTokens)
	}
	if cfg.Persona.Texts.Welcome == "" {
		t.Error("welcome text default lost")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging level default lost: got %q", cfg.Logging.Level)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("persona: [not a map")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SPUTNIK_TEST_VALUE", "resolved")

	t.Run("braced reference", func(t *testing.T) {
		if got := expandEnvVars("key: ${SPUTNIK_TEST_VALUE}"); got != "key: resolved" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("bare reference", func(t *testing.T) {
		if got := expandEnvVars("key: $SPUTNIK_TEST_VALUE"); got != "key: resolved" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("unset variable stays put", func(t *testing.T) {
		in := "key: ${SPUTNIK_DEFINITELY_UNSET}"
		if got := expandEnvVars(in); got != in {
			t.Errorf("got %q, want unchanged", got)
		}
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("SPUTNIK_TEST_TOKEN", "tok-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
persona:
  max_history: 20
channels:
  telegram:
    token: ${SPUTNIK_TEST_TOKEN}
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Persona.MaxHistory != 20 {
		t.Errorf("max_history: got %d", cfg.Persona.MaxHistory)
	}
	if cfg.Channels.Telegram.Token != "tok-123" {
		t.Errorf("token not expanded: got %q", cfg.Channels.Telegram.Token)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolveSecretsFromEnv(t *testing.T) {
	t.Setenv("SPUTNIK_API_KEY", "sk-env")

	cfg := DefaultConfig()
	resolveSecrets(cfg)
	if cfg.API.APIKey != "sk-env" {
		t.Errorf("API key not resolved from env: got %q", cfg.API.APIKey)
	}

	// An explicit config value wins over the env var.
	cfg = DefaultConfig()
	cfg.API.APIKey = "sk-explicit"
	resolveSecrets(cfg)
	if cfg.API.APIKey != "sk-explicit" {
		t.Errorf("explicit key overridden: got %q", cfg.API.APIKey)
	}

	// A leftover placeholder is replaced.
	cfg = DefaultConfig()
	cfg.API.APIKey = "${SPUTNIK_UNSET_PLACEHOLDER}"
	resolveSecrets(cfg)
	if cfg.API.APIKey != "sk-env" {
		t.Errorf("placeholder not resolved: got %q", cfg.API.APIKey)
	}
}

func TestIsEnvReference(t *testing.T) {
	cases := map[string]bool{
		"${FOO}":  true,
		"$FOO":    true,
		"sk-real": false,
		"":        false,
	}
	for in, want := range cases {
		if got := IsEnvReference(in); got != want {
			t.Errorf("IsEnvReference(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSanitizeSecret(t *testing.T) {
	t.Setenv("SPUTNIK_SANITIZE_TEST", "sk-from-env")

	if got := sanitizeSecret("sk-from-env", "SPUTNIK_SANITIZE_TEST"); got != "${SPUTNIK_SANITIZE_TEST}" {
		t.Errorf("matching env value should become a reference, got %q", got)
	}
	if got := sanitizeSecret("sk-other", "SPUTNIK_SANITIZE_TEST"); got != "sk-other" {
		t.Errorf("non-matching value should stay, got %q", got)
	}
	if got := sanitizeSecret("${ALREADY_REF}", "SPUTNIK_SANITIZE_TEST"); got != "${ALREADY_REF}" {
		t.Errorf("existing reference should stay, got %q", got)
	}
}
