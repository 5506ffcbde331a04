package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// TelegramConfig represents configuration for the Telegram transport.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token,omitempty"` // Bot API token (env: TELEGRAM_BOT_TOKEN)
	UserID   int64  `yaml:"user_id,omitempty"`   // Authorized user id (env: TELEGRAM_USER_ID)
}

// AnthropicConfig represents configuration for the Anthropic LLM provider.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key,omitempty"` // Anthropic API key (env: ANTHROPIC_API_KEY)
	Model  string `yaml:"model,omitempty"`   // Default model name
}

// OpenAIConfig represents configuration for the OpenAI LLM provider.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`  // OpenAI API key (env: OPENAI_API_KEY)
	BaseURL string `yaml:"base_url,omitempty"` // Custom base URL (default: official API)
	Model   string `yaml:"model,omitempty"`    // Default model name
}

// CheckInConfig represents configuration for the proactive check-in loop.
type CheckInConfig struct {
	Schedule       string `yaml:"schedule,omitempty"`        // Cron expression or Go duration (default: "*/30 * * * *")
	MinInterval    string `yaml:"min_interval,omitempty"`    // Minimum gap between contacts (default: "2h")
	MonitorTimeout string `yaml:"monitor_timeout,omitempty"` // Per-monitor timeout during fan-out (default: "15s")
	MaxTokens      int64  `yaml:"max_tokens,omitempty"`      // Response budget for the decision call
	Disabled       bool   `yaml:"disabled,omitempty"`        // Disable the loop entirely
}

// GmailConfig represents configuration for the Gmail inbox monitor.
type GmailConfig struct {
	CredentialsFile string   `yaml:"credentials_file,omitempty"` // OAuth client credentials JSON
	TokenFile       string   `yaml:"token_file,omitempty"`       // Cached OAuth token JSON
	UrgentKeywords  []string `yaml:"urgent_keywords,omitempty"`  // Extra keywords flagged as urgent
}

// CalendarConfig represents configuration for the Google Calendar monitor.
type CalendarConfig struct {
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	TokenFile       string `yaml:"token_file,omitempty"`
	CalendarID      string `yaml:"calendar_id,omitempty"`  // default: "primary"
	LookAheadHours  int    `yaml:"look_ahead,omitempty"`   // default: 24
}

// NotionConfig represents configuration for the Notion task monitor.
type NotionConfig struct {
	Token      string `yaml:"token,omitempty"`       // Integration token (env: NOTION_API_TOKEN)
	DatabaseID string `yaml:"database_id,omitempty"` // Task database (env: NOTION_DATABASE_ID)
}

// MonitorsConfig groups the external context monitors. Each monitor is
// constructed only when its section is configured.
type MonitorsConfig struct {
	Gmail    *GmailConfig    `yaml:"gmail,omitempty"`
	Calendar *CalendarConfig `yaml:"calendar,omitempty"`
	Notion   *NotionConfig   `yaml:"notion,omitempty"`
}

// VoiceConfig represents configuration for outbound voice calling.
type VoiceConfig struct {
	TwilioAccountSID string `yaml:"twilio_account_sid,omitempty"` // env: TWILIO_ACCOUNT_SID
	TwilioAuthToken  string `yaml:"twilio_auth_token,omitempty"`  // env: TWILIO_AUTH_TOKEN
	FromNumber       string `yaml:"from_number,omitempty"`        // env: TWILIO_PHONE_FROM
	ToNumber         string `yaml:"to_number,omitempty"`          // env: USER_PHONE_NUMBER
	ElevenLabsAPIKey string `yaml:"elevenlabs_api_key,omitempty"` // env: ELEVENLABS_API_KEY
	VoiceID          string `yaml:"voice_id,omitempty"`           // env: ELEVENLABS_VOICE_ID
}

// DashboardConfig represents configuration for the status dashboard.
type DashboardConfig struct {
	Addr     string `yaml:"addr,omitempty"` // Listen address (default: ":3000")
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Config is the daemon configuration.
type Config struct {
	Telegram     TelegramConfig  `yaml:"telegram,omitempty"`
	Anthropic    AnthropicConfig `yaml:"anthropic,omitempty"`
	OpenAI       OpenAIConfig    `yaml:"openai,omitempty"`
	LLMProviders []string        `yaml:"llm_providers,omitempty"`
	CheckIn      CheckInConfig   `yaml:"check_in,omitempty"`
	Monitors     MonitorsConfig  `yaml:"monitors,omitempty"`
	Voice        VoiceConfig     `yaml:"voice,omitempty"`
	Dashboard    DashboardConfig `yaml:"dashboard,omitempty"`
	ChatTimeout  int             `yaml:"chat_timeout,omitempty"` // Seconds for chat LLM calls (default: 60)
}

// GetConfigPath returns the default config file path.
// Can be overridden via ALWAYSON_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("ALWAYSON_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.alwayson/config.yaml"
	}
	return filepath.Join(homeDir, ".alwayson", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	cfg := Config{
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-5",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		LLMProviders: []string{"anthropic"},
		CheckIn: CheckInConfig{
			Schedule:       "*/30 * * * *",
			MinInterval:    "2h",
			MonitorTimeout: "15s",
			MaxTokens:      500,
		},
		Dashboard: DashboardConfig{
			Addr: ":3000",
		},
		ChatTimeout: 60,
	}
	return cfg
}

// Load reads the configuration file at path (if it exists), merges it over
// defaults, then applies environment variable overrides for secrets.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err == nil {
		data, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", expandedPath, err)
		}

		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("missing telegram.bot_token (or TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Telegram.UserID == 0 {
		return nil, fmt.Errorf("missing telegram.user_id (or TELEGRAM_USER_ID)")
	}

	return &cfg, nil
}

// Save writes the configuration to the specified path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvOverrides lets environment variables take precedence over the file
// for credentials, so secrets can stay out of the YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_USER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.UserID = id
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Voice.TwilioAccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Voice.TwilioAuthToken = v
	}
	if v := os.Getenv("TWILIO_PHONE_FROM"); v != "" {
		cfg.Voice.FromNumber = v
	}
	if v := os.Getenv("USER_PHONE_NUMBER"); v != "" {
		cfg.Voice.ToNumber = v
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		cfg.Voice.ElevenLabsAPIKey = v
	}
	if v := os.Getenv("ELEVENLABS_VOICE_ID"); v != "" {
		cfg.Voice.VoiceID = v
	}
	if v := os.Getenv("NOTION_API_TOKEN"); v != "" {
		if cfg.Monitors.Notion == nil {
			cfg.Monitors.Notion = &NotionConfig{}
		}
		cfg.Monitors.Notion.Token = v
	}
	if v := os.Getenv("NOTION_DATABASE_ID"); v != "" {
		if cfg.Monitors.Notion == nil {
			cfg.Monitors.Notion = &NotionConfig{}
		}
		cfg.Monitors.Notion.DatabaseID = v
	}
}
