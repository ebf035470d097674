package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "aldikbot.db",
		},
		Memes: MemesConfig{
			TikTokKeywords:    []string{"meme", "мем"},
			SadTikTokKeywords: []string{"sad meme", "грустный мем"},
			InstagramProfile:  "aramems",
		},
		AI: AIConfig{
			BaseURL:   "http://127.0.0.1:11434",
			Model:     "qwen2.5:1.5b",
			MaxTokens: 32,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is not an error — defaults plus env must be enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, cfg.validate()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.validate()
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("ALDIKBOT_TELEGRAM_TOKEN", &c.Telegram.Token)
	envStr("ALDIKBOT_TELEGRAM_PROXY", &c.Telegram.Proxy)
	envStr("ALDIKBOT_DB_PATH", &c.Database.Path)
	envStr("ALDIKBOT_PRUNE_SCHEDULE", &c.Database.PruneSchedule)
	envStr("ALDIKBOT_OLLAMA_BASE_URL", &c.AI.BaseURL)
	envStr("ALDIKBOT_OLLAMA_MODEL", &c.AI.Model)
	envStr("ALDIKBOT_SPECIAL_SENDER", &c.Special.SenderHandle)
	envStr("ALDIKBOT_SPECIAL_TARGET", &c.Special.TargetHandle)
	envStr("ALDIKBOT_DECORATION_FILE_ID", &c.Responses.DecorationFileID)
	envStr("ALDIKBOT_MODERATOR_VOICE_FILE_ID", &c.Responses.ModeratorVoiceFileID)
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path missing")
	}
	return nil
}

// ValidateForRun checks requirements that only the bot process needs.
// Offline subcommands (migrate, onboard) skip it.
func (c *Config) ValidateForRun() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token missing: set ALDIKBOT_TELEGRAM_TOKEN")
	}
	return nil
}
