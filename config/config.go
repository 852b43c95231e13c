// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Required credentials (Discord token and channel) are checked by Validate.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Discord
	DiscordToken string
	ChannelID    string

	// speedrun.com
	GameID     string
	APIBaseURL string

	// Sync engine
	SyncInterval time.Duration
	NotifyPacing time.Duration
	HTTPTimeout  time.Duration

	// Storage
	DataFile string
}

// Load reads environment variables and applies defaults. It doesn't fail if Discord creds
// are missing; use Validate() before starting anything that talks to the destination.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	cfg.ChannelID = os.Getenv("DISCORD_CHANNEL_ID")

	cfg.GameID = os.Getenv("SRC_GAME_ID")
	if cfg.GameID == "" {
		// Ocarina of Time game id on speedrun.com
		cfg.GameID = "j1l9qz1g"
	}
	cfg.APIBaseURL = os.Getenv("SRC_API_URL")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://www.speedrun.com/api/v1"
	}

	var err error
	if cfg.SyncInterval, err = durationEnv("SYNC_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyPacing, err = durationEnv("NOTIFY_PACING", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.DataFile = os.Getenv("DATA_FILE")
	if cfg.DataFile == "" {
		cfg.DataFile = "run_messages.json"
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (Go duration): %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

// Validate checks required fields for talking to Discord.
func (c *Config) Validate() error {
	if c.DiscordToken == "" || c.ChannelID == "" {
		return fmt.Errorf("missing discord env: require DISCORD_TOKEN, DISCORD_CHANNEL_ID")
	}
	return nil
}
