package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRACKER_DATA_FILE", "")
	t.Setenv("PRIORITY_WINDOW_DAYS", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDataFile, cfg.Tracker.DataFile)
	assert.Equal(t, DefaultPriorityWindowDays, cfg.Tracker.PriorityWindowDays)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRACKER_DATA_FILE", "/tmp/tracker.csv")
	t.Setenv("PRIORITY_WINDOW_DAYS", "14")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tracker.csv", cfg.Tracker.DataFile)
	assert.Equal(t, 14, cfg.Tracker.PriorityWindowDays)
}

func TestLoadFlagsWinOverEnvironment(t *testing.T) {
	t.Setenv("TRACKER_DATA_FILE", "/tmp/env.csv")

	flags := Flags("tracker")
	require.NoError(t, flags.Parse([]string{"--data-file", "/tmp/flag.csv", "--port", "9090"}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/flag.csv", cfg.Tracker.DataFile)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoadUnsetFlagKeepsEnvironment(t *testing.T) {
	t.Setenv("TRACKER_DATA_FILE", "/tmp/env.csv")

	flags := Flags("tracker")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.csv", cfg.Tracker.DataFile)
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://localhost:3000, ,https://grades.example.com ")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "https://grades.example.com"}, cfg.CORSOrigins)
}
