package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ALDIKBOT_TELEGRAM_TOKEN", "tok")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Path != "aldikbot.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.AI.Model != "qwen2.5:1.5b" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
	if cfg.Telegram.Token != "tok" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
}

func TestValidateForRunRequiresToken(t *testing.T) {
	t.Setenv("ALDIKBOT_TELEGRAM_TOKEN", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	if err != nil {
		t.Fatalf("load without token must succeed for offline commands: %v", err)
	}
	if err := cfg.ValidateForRun(); err == nil {
		t.Fatal("want error without token")
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	t.Setenv("ALDIKBOT_TELEGRAM_TOKEN", "tok")
	t.Setenv("ALDIKBOT_OLLAMA_MODEL", "llama3.2:1b")

	path := filepath.Join(t.TempDir(), "config.json5")
	body := `{
		// json5 comments are allowed
		database: { path: "/tmp/bot.db" },
		memes: { photo_freshness_hours: 6 },
		ai: { model: "from-file" },
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Path != "/tmp/bot.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Memes.PhotoFreshness() != 6*time.Hour {
		t.Errorf("photo freshness = %v", cfg.Memes.PhotoFreshness())
	}
	if cfg.AI.Model != "llama3.2:1b" {
		t.Errorf("env must beat file, model = %q", cfg.AI.Model)
	}
}

func TestFreshnessZeroMeansDefault(t *testing.T) {
	var m MemesConfig
	if m.PhotoFreshness() != 0 || m.VideoFreshness() != 0 || m.SadFreshness() != 0 {
		t.Error("unset windows must be zero so the engine applies defaults")
	}
}
