package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/wordwall")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.SubmitCooldown)
	assert.Equal(t, 500, cfg.MaxClientsPerSession)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_MissingRedisURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wordwall")
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoad_CooldownOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("SUBMIT_COOLDOWN_SECONDS", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.SubmitCooldown)
}

func TestLoad_InvalidCooldown(t *testing.T) {
	setRequired(t)

	for _, bad := range []string{"0", "-3", "soon"} {
		t.Setenv("SUBMIT_COOLDOWN_SECONDS", bad)
		_, err := Load()
		assert.Error(t, err, "value %q", bad)
	}
}

func TestLoad_MaxClientsOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_CLIENTS_PER_SESSION", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.MaxClientsPerSession)
}
