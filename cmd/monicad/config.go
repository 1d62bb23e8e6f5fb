package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// config is the monicad configuration, loaded from a TOML file and then
// overlaid with MONICAD_* environment variables.
type config struct {
	Listen          string            `toml:"listen" envconfig:"LISTEN"`
	AcceptTimeoutMS int               `toml:"accept_timeout_ms" envconfig:"ACCEPT_TIMEOUT_MS"`
	AuthFailDelayMS int               `toml:"auth_fail_delay_ms" envconfig:"AUTH_FAIL_DELAY_MS"`
	SessionKeyBits  int               `toml:"session_key_bits" envconfig:"SESSION_KEY_BITS"`
	LogLevel        string            `toml:"log_level" envconfig:"LOG_LEVEL"`
	ArchiveDSN      string            `toml:"archive_dsn" envconfig:"ARCHIVE_DSN"`
	RetentionDays   int               `toml:"retention_days" envconfig:"RETENTION_DAYS"`
	PruneSchedule   string            `toml:"prune_schedule" envconfig:"PRUNE_SCHEDULE"`
	Users           map[string]string `toml:"users" envconfig:"USERS"`
	Points          []pointConfig     `toml:"point" ignored:"true"`
}

// pointConfig declares one monitor point served by this instance.
type pointConfig struct {
	Name        string `toml:"name"`
	Units       string `toml:"units"`
	Description string `toml:"description"`
	PeriodMS    int    `toml:"period_ms"`
	Alarm       bool   `toml:"alarm"`
	Priority    int    `toml:"priority"`
	Guidance    string `toml:"guidance"`
}

func defaultConfig() config {
	return config{
		Listen:          ":8051",
		AcceptTimeoutMS: 100,
		AuthFailDelayMS: 1000,
		SessionKeyBits:  1024,
		LogLevel:        "info",
		RetentionDays:   0,
		PruneSchedule:   "@hourly",
	}
}

// loadConfig resolves the effective configuration: built-in defaults, then
// the TOML file (if given), then environment overrides.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := envconfig.Process("monicad", &cfg); err != nil {
		return config{}, fmt.Errorf("process environment: %w", err)
	}

	return cfg, nil
}

func (c config) acceptTimeout() time.Duration {
	return time.Duration(c.AcceptTimeoutMS) * time.Millisecond
}

func (c config) authFailDelay() time.Duration {
	return time.Duration(c.AuthFailDelayMS) * time.Millisecond
}

func (c config) retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
