package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "FramelyUsers", cfg.Auth.JWTAudience)
	assert.Equal(t, 30*time.Minute, cfg.Storage.SignedURLExpiry)
	assert.True(t, cfg.Database.MigrateOnStart)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("DATABASE_MIGRATE_ON_START", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Database.MigrateOnStart)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DATABASE_MAX_IDLE_CONNS", "lots")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateShortSecret(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{JWTSecret: strings.Repeat("x", 8), TokenTTL: time.Minute}}
	require.Error(t, cfg.Validate())
}
