// Package config loads application configuration from environment variables
// and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix is prepended to every key: "db-path" is read from ACTIONWATCH_DB_PATH.
const envPrefix = "ACTIONWATCH"

// Config holds the application configuration.
type Config struct {
	ListenAddr     string
	DBPath         string
	SecretKey      string // Hex-encoded 32-byte key; empty disables token encryption.
	GitHubAPIURL   string
	FetchTimeout   time.Duration
	GHAuthFallback bool

	TelegramToken  string
	TelegramChatID int64
	NotifyRate     time.Duration

	LogLevel  slog.Level
	LogFormat string // "text" or "json".
}

// HasTelegram returns true when both a bot token and a chat ID are configured.
func (c *Config) HasTelegram() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Load reads configuration from ACTIONWATCH_* environment variables, falling
// back to the config file named by ACTIONWATCH_CONFIG (default
// $XDG_CONFIG_HOME/actionwatch/config.yml) and then to built-in defaults.
// A missing config file is not an error.
//
// Defaults: listen-addr 127.0.0.1:8080, db-path actionwatch.db,
// github-api-url https://api.github.com/, fetch-timeout 10s, notify-rate 1m,
// log-level info, log-format text.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen-addr", "127.0.0.1:8080")
	v.SetDefault("db-path", "actionwatch.db")
	v.SetDefault("secret-key", "")
	v.SetDefault("github-api-url", "https://api.github.com/")
	v.SetDefault("fetch-timeout", "10s")
	v.SetDefault("gh-auth-fallback", false)
	v.SetDefault("telegram-token", "")
	v.SetDefault("telegram-chat-id", 0)
	v.SetDefault("notify-rate", "1m")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")

	if path := configPath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	fetchTimeout, err := parseDuration(v, "fetch-timeout")
	if err != nil {
		return nil, err
	}
	if fetchTimeout <= 0 {
		return nil, fmt.Errorf("%s_FETCH_TIMEOUT must be positive, got %s", envPrefix, fetchTimeout)
	}

	notifyRate, err := parseDuration(v, "notify-rate")
	if err != nil {
		return nil, err
	}

	logLevel, err := parseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	logFormat := strings.ToLower(strings.TrimSpace(v.GetString("log-format")))
	if logFormat != "text" && logFormat != "json" {
		return nil, fmt.Errorf("%s_LOG_FORMAT must be text or json, got %q", envPrefix, logFormat)
	}

	secretKey := strings.TrimSpace(v.GetString("secret-key"))
	if secretKey != "" && len(secretKey) != 64 {
		return nil, fmt.Errorf("%s_SECRET_KEY must be 64 hex characters, got %d", envPrefix, len(secretKey))
	}

	return &Config{
		ListenAddr:     v.GetString("listen-addr"),
		DBPath:         v.GetString("db-path"),
		SecretKey:      secretKey,
		GitHubAPIURL:   v.GetString("github-api-url"),
		FetchTimeout:   fetchTimeout,
		GHAuthFallback: v.GetBool("gh-auth-fallback"),
		TelegramToken:  v.GetString("telegram-token"),
		TelegramChatID: v.GetInt64("telegram-chat-id"),
		NotifyRate:     notifyRate,
		LogLevel:       logLevel,
		LogFormat:      logFormat,
	}, nil
}

// configPath returns the config file to read, or "" if none can be located.
func configPath() string {
	if p, ok := os.LookupEnv(envPrefix + "_CONFIG"); ok {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "actionwatch", "config.yml")
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		return 0, fmt.Errorf("%s has invalid duration %q: %w", envKey, raw, err)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%s_LOG_LEVEL: %w", envPrefix, err)
	}
	return level, nil
}
