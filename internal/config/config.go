package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`
	Env        string `env:"APP_ENV" envDefault:"production"`

	// Durable session storage
	StorageKey    string `env:"SESSION_STORAGE_KEY" envDefault:"newscuss_session"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"file"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:".newscuss"`
	DatabaseURL   string `env:"DATABASE_URL"`

	// Telegram front end
	BotToken           string        `env:"BOT_TOKEN"`
	AdminIDs           []int64       `env:"ADMIN_IDS" envSeparator:","`
	DropPendingUpdates bool          `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`
	StreamEditInterval time.Duration `env:"STREAM_EDIT_INTERVAL" envDefault:"1s"`

	// Telegram logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int   `env:"LOG_TOPIC_ERROR"`
	LogTopicSession   int   `env:"LOG_TOPIC_SESSION"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// Validate checks the settings that only some front ends need.
func (c *Config) Validate(needBot bool) error {
	if needBot && c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	switch c.StorageDriver {
	case "file", "sqlite", "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	return nil
}
