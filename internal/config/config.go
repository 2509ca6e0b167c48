package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingToken = errors.New("BOT_TOKEN is required")

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Config struct {
	BotToken      string
	Port          string
	WebhookSecret string
	// CatalogSource is a file path or URL of the catalog document.
	CatalogSource string
	LogLevel      string

	StoreTimeout  time.Duration
	UpdateTimeout time.Duration

	Mongo MongoConfig
	Redis RedisConfig
}

// Load reads .env when present and then the environment. Variables already
// set in the environment win over .env.
func Load() (*Config, error) {
	const op = "config.Load"
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg := &Config{
		BotToken:      env("BOT_TOKEN"),
		Port:          strings.TrimPrefix(envOr("PORT", "8080"), ":"),
		WebhookSecret: env("WEBHOOK_SECRET"),
		CatalogSource: env("CATALOG_SOURCE"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		StoreTimeout:  getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
		UpdateTimeout: getEnvAsDuration("UPDATE_TIMEOUT", 9*time.Second),
		Mongo: MongoConfig{
			URI:      env("MONGODB_URI"),
			Database: envOr("MONGODB_DATABASE", "cinemabot"),
		},
		Redis: RedisConfig{
			Addr:     env("REDIS_ADDR"),
			Password: env("REDIS_PASSWORD"),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
	}
	return cfg, nil
}

// Validate checks what the bot needs to talk to Telegram.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("config.Validate: %w", ErrMissingToken)
	}
	return nil
}

// NewLogger returns a JSON logger writing to w at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	const op = "config.getEnvAsDuration"
	s := env(key)
	if s == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(s)
	if err != nil || value <= 0 {
		slog.Warn(op+": invalid value, using default", "key", key, "value", s, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	const op = "config.getEnvAsInt"
	s := env(key)
	if s == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(s)
	if err != nil {
		slog.Warn(op+": invalid value, using default", "key", key, "value", s, "default", defaultValue)
		return defaultValue
	}
	return value
}
