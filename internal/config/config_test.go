package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var keys = []string{
	"BOT_TOKEN", "PORT", "WEBHOOK_SECRET", "CATALOG_SOURCE", "LOG_LEVEL",
	"STORE_TIMEOUT", "UPDATE_TIMEOUT", "MONGODB_URI", "MONGODB_DATABASE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CACHE_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 5*time.Second, cfg.StoreTimeout)
	require.Equal(t, 9*time.Second, cfg.UpdateTimeout)
	require.Equal(t, "cinemabot", cfg.Mongo.Database)
	require.Empty(t, cfg.Mongo.URI)
	require.Empty(t, cfg.Redis.Addr)
	require.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	require.ErrorIs(t, cfg.Validate(), ErrMissingToken)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", " 123:abc ")
	t.Setenv("PORT", ":9090")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "films")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("STORE_TIMEOUT", "1500ms")
	t.Setenv("WEBHOOK_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "123:abc", cfg.BotToken)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, MongoConfig{URI: "mongodb://localhost:27017", Database: "films"}, cfg.Mongo)
	require.Equal(t, RedisConfig{Addr: "localhost:6379", DB: 2, TTL: 30 * time.Second}, cfg.Redis)
	require.Equal(t, 1500*time.Millisecond, cfg.StoreTimeout)
	require.Equal(t, "s3cret", cfg.WebhookSecret)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_TIMEOUT", "soon")
	t.Setenv("UPDATE_TIMEOUT", "-1s")
	t.Setenv("REDIS_DB", "first")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.StoreTimeout)
	require.Equal(t, 9*time.Second, cfg.UpdateTimeout)
	require.Equal(t, 0, cfg.Redis.DB)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown", "key", "value")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "WARN", line["level"])
	require.Equal(t, "value", line["key"])
}
