// Package config loads the bot configuration from a JSON5 file with env
// overlays. Secrets (the bot token) come from env only and are never
// persisted.
package config

import "time"

// Config is the root bot configuration.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Database  DatabaseConfig  `json:"database"`
	Memes     MemesConfig     `json:"memes"`
	AI        AIConfig        `json:"ai"`
	Special   SpecialConfig   `json:"special,omitempty"`
	Responses ResponsesConfig `json:"responses,omitempty"`
}

// TelegramConfig configures the transport.
// Token is NEVER read from the config file — only from env ALDIKBOT_TELEGRAM_TOKEN.
type TelegramConfig struct {
	Token string `json:"-"`
	Proxy string `json:"proxy,omitempty"`
}

// DatabaseConfig configures sqlite persistence.
type DatabaseConfig struct {
	Path          string `json:"path"`
	PruneSchedule string `json:"prune_schedule,omitempty"` // cron, default nightly
}

// MemesConfig configures the scraping sources and freshness windows.
type MemesConfig struct {
	TikTokKeywords    []string `json:"tiktok_keywords,omitempty"`
	SadTikTokKeywords []string `json:"sad_tiktok_keywords,omitempty"`
	InstagramProfile  string   `json:"instagram_profile,omitempty"`

	PhotoFreshnessHours int `json:"photo_freshness_hours,omitempty"`
	VideoFreshnessHours int `json:"video_freshness_hours,omitempty"`
	SadFreshnessDays    int `json:"sad_freshness_days,omitempty"`
}

// PhotoFreshness returns the configured window, zero meaning engine default.
func (m MemesConfig) PhotoFreshness() time.Duration {
	return time.Duration(m.PhotoFreshnessHours) * time.Hour
}

func (m MemesConfig) VideoFreshness() time.Duration {
	return time.Duration(m.VideoFreshnessHours) * time.Hour
}

func (m MemesConfig) SadFreshness() time.Duration {
	return time.Duration(m.SadFreshnessDays) * 24 * time.Hour
}

// AIConfig configures the Ollama style-reply client.
type AIConfig struct {
	BaseURL        string `json:"base_url,omitempty"`
	Model          string `json:"model,omitempty"`
	MaxTokens      int    `json:"max_tokens,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// SpecialConfig names the user pair for the special-reply gate. Both empty
// disables the gate.
type SpecialConfig struct {
	SenderHandle string `json:"sender_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// ResponsesConfig holds pre-uploaded Telegram file ids for non-text replies.
type ResponsesConfig struct {
	DecorationFileID     string `json:"decoration_file_id,omitempty"`
	ModeratorVoiceFileID string `json:"moderator_voice_file_id,omitempty"`
}
