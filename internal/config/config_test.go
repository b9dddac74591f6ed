package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctrltune.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 24*time.Hour, cfg.Cache.UserTTL.Std())
	assert.Equal(t, time.Hour, cfg.Cache.PruneInterval.Std())
	assert.NotEmpty(t, cfg.Presets)
}

func TestLoadFileMergesPresets(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  rate_rps: 5
  rate_burst: 10
cache:
  user_ttl: 90m
  fuzzy_threshold: 0.7
  vehicles: [e4, eL]
log:
  level: debug
  format: json
presets:
  golf_course:
    description: Turf friendly
    priorities: {speed: 3, range: 8}
    conditions: {temperature: 75, grade: 2, load: 250}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5.0, cfg.Server.RateRPS)
	assert.Equal(t, 90*time.Minute, cfg.Cache.UserTTL.Std())
	assert.Equal(t, time.Hour, cfg.Cache.PruneInterval.Std(), "unset keys keep defaults")
	assert.Len(t, cfg.Cache.Vehicles, 2)
	assert.Contains(t, cfg.Presets, "golf_course")
	assert.Contains(t, cfg.Presets, "track_day")
	require.NotNil(t, cfg.Presets["golf_course"].Priorities.Range)
	assert.Equal(t, 8.0, *cfg.Presets["golf_course"].Priorities.Range)
	assert.Nil(t, cfg.Presets["golf_course"].Priorities.Acceleration)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "server:\n  prot: 9090\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prot")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "cache:\n  user_ttl: soon\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"PORT":                 "7000",
		"DATABASE_URL":         "postgres://x",
		"REDIS_URL":            "redis://localhost:6379/0",
		"RATE_RPS":             "2.5",
		"RATE_BURST":           "4",
		"LOG_LEVEL":            "warn",
		"CACHE_USER_TTL":       "2h",
		"CACHE_PRUNE_INTERVAL": "5m",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }))
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "postgres://x", cfg.Storage.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Server.RedisURL)
	assert.Equal(t, 2.5, cfg.Server.RateRPS)
	assert.Equal(t, 4, cfg.Server.RateBurst)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2*time.Hour, cfg.Cache.UserTTL.Std())
	assert.Equal(t, 5*time.Minute, cfg.Cache.PruneInterval.Std())
}

func TestEnvOverridesRejectGarbage(t *testing.T) {
	for _, key := range []string{"PORT", "RATE_RPS", "RATE_BURST", "CACHE_USER_TTL"} {
		cfg := Default()
		err := cfg.applyEnv(func(k string) (string, bool) {
			if k == key {
				return "garbage", true
			}
			return "", false
		})
		assert.Error(t, err, key)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"port":      func(c *Config) { c.Server.Port = 0 },
		"rate":      func(c *Config) { c.Server.RateRPS = -1 },
		"burst":     func(c *Config) { c.Server.RateRPS = 1; c.Server.RateBurst = 0 },
		"ttl":       func(c *Config) { c.Cache.UserTTL = 0 },
		"threshold": func(c *Config) { c.Cache.FuzzyThreshold = 1 },
		"level":     func(c *Config) { c.Log.Level = "loud" },
		"format":    func(c *Config) { c.Log.Format = "xml" },
		"preset": func(c *Config) {
			p := Preset{Priorities: c.Presets["track_day"].Priorities}
			p.Priorities.Speed = w(11)
			c.Presets["bad"] = p
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPresetNamesSorted(t *testing.T) {
	names := Default().PresetNames()
	assert.IsIncreasing(t, names)
	assert.Len(t, names, len(DefaultPresets()))
}
