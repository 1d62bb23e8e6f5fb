package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monicad.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8051", cfg.Listen)
	assert.Equal(t, 100*time.Millisecond, cfg.acceptTimeout())
	assert.Equal(t, time.Second, cfg.authFailDelay())
	assert.Equal(t, 1024, cfg.SessionKeyBits)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "@hourly", cfg.PruneSchedule)
	assert.Zero(t, cfg.retention())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
listen = ":9051"
auth_fail_delay_ms = 250
log_level = "debug"
archive_dsn = "monica.db"
retention_days = 30

[users]
observer = "secret"

[[point]]
name = "site.env.temperature"
units = "C"
description = "Outside air temperature"
period_ms = 10000

[[point]]
name = "site.power.ups"
alarm = true
priority = 2
guidance = "Check UPS"
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9051", cfg.Listen)
	assert.Equal(t, 250*time.Millisecond, cfg.authFailDelay())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "monica.db", cfg.ArchiveDSN)
	assert.Equal(t, 30*24*time.Hour, cfg.retention())
	assert.Equal(t, map[string]string{"observer": "secret"}, cfg.Users)

	// File values missing keep their defaults.
	assert.Equal(t, 100, cfg.AcceptTimeoutMS)

	require.Len(t, cfg.Points, 2)
	assert.Equal(t, "site.env.temperature", cfg.Points[0].Name)
	assert.Equal(t, 10000, cfg.Points[0].PeriodMS)
	assert.True(t, cfg.Points[1].Alarm)
	assert.Equal(t, 2, cfg.Points[1].Priority)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `listen = ":9051"`)

	t.Setenv("MONICAD_LISTEN", ":10051")
	t.Setenv("MONICAD_SESSION_KEY_BITS", "512")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	// Environment wins over the file, which wins over defaults.
	assert.Equal(t, ":10051", cfg.Listen)
	assert.Equal(t, 512, cfg.SessionKeyBits)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
