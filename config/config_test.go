package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("RINGTONE_DIR", "/tmp/ringtones")
}

func TestLoad_Defaults(t *testing.T) {
	setTestEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "test-token", cfg.DiscordToken)
	assert.Equal(t, "/tmp/ringtones", cfg.RingtoneDir)
	assert.Equal(t, "~", cfg.CommandPrefix)
	assert.Equal(t, 10, cfg.ResolveTimeoutSeconds)
	assert.Equal(t, 15, cfg.GreetingCooldownSeconds)
	assert.Equal(t, 4, cfg.PlaybackWorkers)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	setTestEnv(t)
	t.Setenv("COMMAND_PREFIX", "!")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RESOLVE_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "!", cfg.CommandPrefix)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30, cfg.ResolveTimeoutSeconds)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("RINGTONE_DIR", "/tmp/ringtones")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	setTestEnv(t)
	t.Setenv("RESOLVE_TIMEOUT_SECONDS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOLVE_TIMEOUT_SECONDS")
}
