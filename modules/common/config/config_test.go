package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("REDIS_HOST", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "test-key", cfg.GeminiAPIKey)
	require.Equal(t, "gemini-2.5-flash-image", cfg.GeminiModel)
	require.Equal(t, "3001", cfg.Port)
	require.Equal(t, ":3001", cfg.ListenAddr())
	require.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.AllowedOrigins)
	require.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	require.Equal(t, time.Hour, cfg.OutputRetention)
	require.Equal(t, time.Minute, cfg.InputRetention)
	require.False(t, cfg.UseRedis())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OUTPUT_RETENTION", "30m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REDIS_HOST", "cache.internal")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 30*time.Minute, cfg.OutputRetention)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.True(t, cfg.UseRedis())
	require.Equal(t, "cache.internal:6379", cfg.GetRedisAddr())
}

func TestValidate(t *testing.T) {
	base := Config{
		Port:                "3001",
		GeminiModel:         "m",
		UploadDir:           "uploads",
		MaxUploadBytes:      1,
		OutputRetention:     time.Hour,
		InputRetention:      time.Minute,
		GenerationTimeout:   time.Second,
		CleanupPollInterval: time.Second,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.MaxUploadBytes = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.InputRetention = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.GenerationTimeout = -time.Second
	require.Error(t, bad.Validate())
}
