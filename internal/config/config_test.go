package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	c, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", c.Env)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, slog.LevelInfo, c.Log.Level)
	assert.Equal(t, 5, c.Game.SequenceLength)
	assert.Equal(t, 0, c.Game.MinValue)
	assert.Equal(t, 9, c.Game.MaxValue)
	assert.True(t, c.Game.AllowRepeats)
	assert.True(t, c.Game.AlternateOpener)
	assert.Equal(t, 24*time.Hour, c.Redis.MatchTTL)
	assert.Equal(t, 10*time.Minute, c.Maintenance.PruneInterval)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GAME_SEQUENCE_LENGTH", "6")
	t.Setenv("GAME_ALLOW_REPEATS", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("PRUNE_INTERVAL", "0")

	c, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.HTTP.Addr)
	assert.Equal(t, slog.LevelDebug, c.Log.Level)
	assert.Equal(t, 6, c.Game.SequenceLength)
	assert.False(t, c.Game.AllowRepeats)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORS.Origins)
	assert.Zero(t, c.Maintenance.PruneInterval)
}

func TestLoadFromEnv_Rejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"default secret outside dev", map[string]string{"APP_ENV": "prod"}},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"unknown log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"inverted range", map[string]string{"GAME_MIN_VALUE": "9", "GAME_MAX_VALUE": "1"}},
		{"range too small for distinct numbers", map[string]string{"GAME_ALLOW_REPEATS": "false", "GAME_MAX_VALUE": "3"}},
		{"zero sequence", map[string]string{"GAME_SEQUENCE_LENGTH": "0"}},
		{"negative prune interval", map[string]string{"PRUNE_INTERVAL": "-1m"}},
		{"malformed sequence length", map[string]string{"GAME_SEQUENCE_LENGTH": "six"}},
		{"malformed bool", map[string]string{"GAME_ALLOW_REPEATS": "maybe"}},
		{"malformed duration", map[string]string{"PRUNE_INTERVAL": "soon"}},
		{"malformed redis db", map[string]string{"REDIS_DB": "1.5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			require.Error(t, err)
		})
	}
}

func TestLoadFromEnv_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("GAME_SEQUENCE_LENGTH", "six")
	t.Setenv("JWT_TTL", "1 day")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `GAME_SEQUENCE_LENGTH="six"`)
	assert.Contains(t, err.Error(), `JWT_TTL="1 day"`)
}
