package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_USER_ID", "")

	path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
  user_id: 42
check_in:
  schedule: "*/15 * * * *"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Telegram.BotToken != "123:abc" || cfg.Telegram.UserID != 42 {
		t.Errorf("telegram config not loaded: %+v", cfg.Telegram)
	}
	if cfg.CheckIn.Schedule != "*/15 * * * *" {
		t.Errorf("schedule override not applied: %q", cfg.CheckIn.Schedule)
	}
	// Untouched fields keep their defaults.
	if cfg.CheckIn.MinInterval != "2h" {
		t.Errorf("min_interval default lost: %q", cfg.CheckIn.MinInterval)
	}
	if cfg.Dashboard.Addr != ":3000" {
		t.Errorf("dashboard default lost: %q", cfg.Dashboard.Addr)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "file-token"
  user_id: 1
`)

	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_USER_ID", "99")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("bot token = %q, want env override", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.UserID != 99 {
		t.Errorf("user id = %d, want env override 99", cfg.Telegram.UserID)
	}
}

func TestLoadRequiresTelegramCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_USER_ID", "")

	path := writeConfig(t, `
anthropic:
  api_key: "sk-test"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error without telegram credentials")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_USER_ID", "42")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CheckIn.Schedule != "*/30 * * * *" {
		t.Errorf("default schedule = %q", cfg.CheckIn.Schedule)
	}
	if len(cfg.LLMProviders) != 1 || cfg.LLMProviders[0] != "anthropic" {
		t.Errorf("default providers = %v", cfg.LLMProviders)
	}
}
