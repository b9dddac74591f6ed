// Package config loads service and CLI settings from an optional YAML file
// and applies environment overrides on top.
package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"ctrltune/internal/model"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "CTRLTUNE_CONFIG"

// Config is the full configuration file. Unknown keys are rejected.
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	Storage StorageConfig     `yaml:"storage"`
	Cache   CacheConfig       `yaml:"cache"`
	Log     LogConfig         `yaml:"log"`
	Presets map[string]Preset `yaml:"presets"`
}

type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateRPS         float64  `yaml:"rate_rps"` // 0 disables limiting
	RateBurst       int      `yaml:"rate_burst"`
	RedisURL        string   `yaml:"redis_url"` // empty uses the in-process broker
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"` // postgres DSN
	SQLitePath  string `yaml:"sqlite_path"`  // used when DatabaseURL is empty
}

type CacheConfig struct {
	UserTTL        Duration             `yaml:"user_ttl"`
	PruneInterval  Duration             `yaml:"prune_interval"`
	FuzzyThreshold float64              `yaml:"fuzzy_threshold"`
	Vehicles       []model.VehicleModel `yaml:"vehicles"`
	Pregenerate    *bool                `yaml:"pregenerate"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Preset is a named priorities and conditions bundle.
type Preset struct {
	Description string                `yaml:"description" json:"description,omitempty"`
	Priorities  model.PriorityWeights `yaml:"priorities" json:"priorities"`
	Conditions  model.Conditions      `yaml:"conditions" json:"conditions"`
}

// Duration decodes YAML strings such as "90m" or "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			RateBurst:       20,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Cache: CacheConfig{
			UserTTL:        Duration(24 * time.Hour),
			PruneInterval:  Duration(time.Hour),
			FuzzyThreshold: 0.6,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Presets: DefaultPresets(),
	}
}

// Load reads path (when non-empty), then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by CTRLTUNE_CONFIG, if any.
func LoadFromEnv() (Config, error) { return Load(os.Getenv(EnvConfigPath)) }

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = n
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.Storage.DatabaseURL = v
	}
	if v, ok := lookup("SQLITE_PATH"); ok {
		c.Storage.SQLitePath = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.Server.RedisURL = v
	}
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.Server.RateRPS = f
	}
	if v, ok := lookup("RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.Server.RateBurst = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	for name, dst := range map[string]*Duration{
		"CACHE_USER_TTL":       &c.Cache.UserTTL,
		"CACHE_PRUNE_INTERVAL": &c.Cache.PruneInterval,
	} {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = Duration(d)
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1..65535, got %d", c.Server.Port)
	}
	if c.Server.RateRPS < 0 {
		return fmt.Errorf("server.rate_rps must be >= 0, got %g", c.Server.RateRPS)
	}
	if c.Server.RateRPS > 0 && c.Server.RateBurst <= 0 {
		return fmt.Errorf("server.rate_burst must be positive when rate limiting, got %d", c.Server.RateBurst)
	}
	if c.Cache.UserTTL.Std() <= 0 {
		return fmt.Errorf("cache.user_ttl must be positive")
	}
	if c.Cache.PruneInterval.Std() <= 0 {
		return fmt.Errorf("cache.prune_interval must be positive")
	}
	if t := c.Cache.FuzzyThreshold; t <= 0 || t >= 1 {
		return fmt.Errorf("cache.fuzzy_threshold must be in (0,1), got %g", t)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	for name, p := range c.Presets {
		if err := ValidateWeights(p.Priorities); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return nil
}

// ValidateWeights rejects any set weight outside 0..10.
func ValidateWeights(p model.PriorityWeights) error {
	for name, w := range map[string]*float64{
		"range":        p.Range,
		"speed":        p.Speed,
		"acceleration": p.Acceleration,
		"hillClimbing": p.HillClimbing,
		"regen":        p.Regen,
		"efficiency":   p.Efficiency,
	} {
		if w != nil && (*w < 0 || *w > 10) {
			return fmt.Errorf("priority %s must be within 0..10, got %g", name, *w)
		}
	}
	return nil
}

// Logger builds a logrus logger from the log section.
func (c Config) Logger() *logrus.Logger {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(c.Log.Level); err == nil {
		l.SetLevel(lvl)
	}
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// PresetNames returns preset names in sorted order.
func (c Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for n := range c.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
