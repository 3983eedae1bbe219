package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	t.Run("Should load defaults when no environment is set", func(t *testing.T) {
		cfg, err := NewLoader().Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8188", cfg.Engine.BaseURL)
		assert.Equal(t, 2*time.Second, cfg.Engine.PollInterval)
		assert.Equal(t, 5*time.Minute, cfg.Engine.PollTimeout)
		assert.Equal(t, "info", cfg.Runtime.LogLevel)
		assert.Equal(t, int64(100), cfg.Server.RateLimit)
	})

	t.Run("Should override defaults from environment", func(t *testing.T) {
		t.Setenv("LUSTRA_ENGINE_BASE_URL", "https://engine.lustra.dev")
		t.Setenv("LUSTRA_ENGINE_POLL_INTERVAL", "1500ms")
		t.Setenv("LUSTRA_RUNTIME_LOG_LEVEL", "debug")

		cfg, err := NewLoader().Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "https://engine.lustra.dev", cfg.Engine.BaseURL)
		assert.Equal(t, 1500*time.Millisecond, cfg.Engine.PollInterval)
		assert.Equal(t, "debug", cfg.Runtime.LogLevel)
	})

	t.Run("Should decode secrets into SensitiveString", func(t *testing.T) {
		t.Setenv("LUSTRA_BLOB_ACCOUNT_KEY", "super-secret")

		cfg, err := NewLoader().Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, SensitiveString("super-secret"), cfg.Blob.AccountKey)
		assert.Equal(t, "[REDACTED]", cfg.Blob.AccountKey.String())
	})

	t.Run("Should reject invalid log levels", func(t *testing.T) {
		t.Setenv("LUSTRA_RUNTIME_LOG_LEVEL", "verbose")

		_, err := NewLoader().Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("Should reject malformed engine URLs", func(t *testing.T) {
		t.Setenv("LUSTRA_ENGINE_BASE_URL", "not a url")

		_, err := NewLoader().Load(context.Background())
		assert.Error(t, err)
	})
}

func TestTransformEnvKey(t *testing.T) {
	t.Run("Should map section-prefixed variables to dotted paths", func(t *testing.T) {
		assert.Equal(t, "engine.base_url", transformEnvKey("ENGINE_BASE_URL"))
		assert.Equal(t, "server.max_upload_size", transformEnvKey("SERVER_MAX_UPLOAD_SIZE"))
		assert.Equal(t, "runtime", transformEnvKey("RUNTIME"))
		assert.Equal(t, "", transformEnvKey("___"))
	})
}

func TestConfigContext(t *testing.T) {
	t.Run("Should round-trip config through context", func(t *testing.T) {
		cfg := Default()
		ctx := ContextWithConfig(context.Background(), cfg)
		assert.Same(t, cfg, FromContext(ctx))
	})

	t.Run("Should return nil for empty context", func(t *testing.T) {
		assert.Nil(t, FromContext(context.Background()))
	})
}
