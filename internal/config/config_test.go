package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "agenda", cfg.ServiceName)
	assert.Equal(t, "@every 1m", cfg.ReminderSweep)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.CheckRecurringConflicts)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server_port: "9090"
environment: production
database_url: postgres://localhost/agenda
check_recurring_conflicts: true
reminder_sweep: "@every 30s"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "postgres://localhost/agenda", cfg.DatabaseURL)
	assert.True(t, cfg.CheckRecurringConflicts)
	assert.Equal(t, "@every 30s", cfg.ReminderSweep)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: [oops"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("CHECK_RECURRING_CONFLICTS", "1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.ServerPort)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.True(t, cfg.CheckRecurringConflicts)
}
