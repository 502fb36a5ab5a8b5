package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"API_BASE_URL", "STORAGE_DRIVER", "SESSION_STORAGE_KEY", "STREAM_EDIT_INTERVAL", "APP_ENV"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "newscuss_session", cfg.StorageKey)
	assert.Equal(t, "file", cfg.StorageDriver)
	assert.Equal(t, time.Second, cfg.StreamEditInterval)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_TrimsBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.example/api/")
	t.Setenv("APP_ENV", "development")
	t.Setenv("ADMIN_IDS", "1,2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://api.example/api", cfg.APIBaseURL)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
}

func TestValidate(t *testing.T) {
	cfg := &Config{StorageDriver: "file"}
	assert.NoError(t, cfg.Validate(false))
	assert.Error(t, cfg.Validate(true))

	cfg.StorageDriver = "postgres"
	assert.Error(t, cfg.Validate(false))
	cfg.DatabaseURL = "postgres://localhost/newscuss"
	assert.NoError(t, cfg.Validate(false))

	cfg.StorageDriver = "redis"
	assert.Error(t, cfg.Validate(false))
}
