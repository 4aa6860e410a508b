package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// ErrMissingToken is returned when the bot is started without a Telegram token.
var ErrMissingToken = errors.New("TELEGRAM_TOKEN is required")

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken   string
	DatabaseURL     string
	Location        *time.Location
	ReminderHour    int
	SendTimeout     time.Duration
	CycleTimeout    time.Duration
	SendConcurrency int
	SessionTTL      time.Duration
	LogLevel        zapcore.Level
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	return load(os.Getenv)
}

// RequireToken is checked by commands that talk to Telegram.
func (c Config) RequireToken() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	return nil
}

func load(getenv func(string) string) (Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		TelegramToken:   env("TELEGRAM_TOKEN"),
		DatabaseURL:     env("DATABASE_URL"),
		ReminderHour:    9,
		SendTimeout:     10 * time.Second,
		CycleTimeout:    5 * time.Minute,
		SendConcurrency: 4,
		SessionTTL:      30 * time.Minute,
		LogLevel:        zapcore.InfoLevel,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "birthdays.db"
	}

	tz := env("TIMEZONE")
	if tz == "" {
		tz = "Europe/Moscow"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if raw := env("REMINDER_HOUR"); raw != "" {
		hour, err := strconv.Atoi(raw)
		if err != nil || hour < 0 || hour > 23 {
			return cfg, fmt.Errorf("REMINDER_HOUR: %q is not an hour between 0 and 23", raw)
		}
		cfg.ReminderHour = hour
	}

	if raw := env("SEND_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("SEND_CONCURRENCY: %q must be a positive integer", raw)
		}
		cfg.SendConcurrency = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SEND_TIMEOUT", &cfg.SendTimeout},
		{"CYCLE_TIMEOUT", &cfg.CycleTimeout},
		{"SESSION_TTL", &cfg.SessionTTL},
	}
	for _, d := range durations {
		if err := parseDuration(env(d.key), d.dst); err != nil {
			return cfg, fmt.Errorf("%s: %w", d.key, err)
		}
	}

	if raw := env("LOG_LEVEL"); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

func parseDuration(raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("%q must be positive", raw)
	}
	*dst = d
	return nil
}
