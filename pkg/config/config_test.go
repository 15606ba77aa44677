package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 20.0, cfg.Scheduling.MaxWeeklyHours)
	assert.Equal(t, 5*time.Minute, cfg.Scheduling.ConflictCacheTTL)
	assert.Equal(t, "horarios.section.changed", cfg.Events.Queue)
	assert.True(t, cfg.Exports.Enabled)
	assert.False(t, cfg.Events.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MAX_WEEKLY_HOURS", "12.5")
	t.Setenv("CONFLICT_CACHE_TTL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("ENABLE_EVENTS", "true")
	t.Setenv("EVENTS_RETRY_DELAY", "not-a-duration")
	t.Setenv("ADMIN_USERNAME", "root")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12.5, cfg.Scheduling.MaxWeeklyHours)
	assert.Equal(t, 30*time.Second, cfg.Scheduling.ConflictCacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, time.Second, cfg.Events.RetryDelay)
	assert.Equal(t, "root", cfg.Admin.Username)
}

func TestLoadFallsBackOnNonPositiveHours(t *testing.T) {
	t.Setenv("MAX_WEEKLY_HOURS", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20.0, cfg.Scheduling.MaxWeeklyHours)
}
