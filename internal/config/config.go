// ABOUTME: Configuration loading and parsing for coven-console
// ABOUTME: Reads YAML or TOML with environment variable expansion, duration parsing and defaults

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "COVEN_CONSOLE_CONFIG"

// Config represents the complete coven-console configuration
type Config struct {
	Backend     BackendConfig     `yaml:"backend" toml:"backend"`
	Storage     StorageConfig     `yaml:"storage" toml:"storage"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth"`
	Dashboards  DashboardsConfig  `yaml:"dashboards" toml:"dashboards"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Preferences PreferencesConfig `yaml:"preferences" toml:"preferences"`
}

// BackendConfig holds the agent backend connection settings
type BackendConfig struct {
	URL            string        `yaml:"url" toml:"url"`
	RequestTimeout time.Duration `yaml:"-" toml:"-"`

	RequestTimeoutRaw string `yaml:"request_timeout" toml:"request_timeout"`
}

// StorageConfig selects where the conversation is persisted
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // sqlite | file | memory
	Path   string `yaml:"path" toml:"path"`     // database file, or directory for the file driver
	Key    string `yaml:"key" toml:"key"`
}

// AuthConfig holds placeholder login configuration
type AuthConfig struct {
	JWTSecret string            `yaml:"jwt_secret" toml:"jwt_secret"`
	Users     map[string]string `yaml:"users" toml:"users"` // username -> bcrypt hash
	TokenTTL  time.Duration     `yaml:"-" toml:"-"`

	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
}

// DashboardsConfig controls background polling of health and metrics
type DashboardsConfig struct {
	Enabled         bool          `yaml:"enabled" toml:"enabled"`
	HealthInterval  time.Duration `yaml:"-" toml:"-"`
	MetricsInterval time.Duration `yaml:"-" toml:"-"`

	HealthIntervalRaw  string `yaml:"health_interval" toml:"health_interval"`
	MetricsIntervalRaw string `yaml:"metrics_interval" toml:"metrics_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// PreferencesConfig seeds preferences when nothing has been saved yet
type PreferencesConfig struct {
	Theme           string `yaml:"theme" toml:"theme"`
	UserID          string `yaml:"user_id" toml:"user_id"`
	EnableProfiling bool   `yaml:"enable_profiling" toml:"enable_profiling"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:               "http://localhost:8000",
			RequestTimeoutRaw: "30s",
			RequestTimeout:    30 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dataHome(), "coven", "console.db"),
			Key:    "chat-storage",
		},
		Auth: AuthConfig{
			TokenTTLRaw: "24h",
			TokenTTL:    24 * time.Hour,
		},
		Dashboards: DashboardsConfig{
			HealthIntervalRaw:  "30s",
			HealthInterval:     30 * time.Second,
			MetricsIntervalRaw: "15s",
			MetricsInterval:    15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Preferences: PreferencesConfig{
			Theme: "system",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML. Values not
// present in the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Resolve picks the config path: the flag value, then $COVEN_CONSOLE_CONFIG,
// then the XDG default. explicit is false only for the XDG default.
func Resolve(flagPath string) (path string, explicit bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, true
	}
	return filepath.Join(configHome(), "coven", "console.yaml"), false
}

// LoadResolved loads the config chosen by Resolve. A missing default file is not
// an error and yields Default(); a missing explicit file is.
func LoadResolved(flagPath string) (*Config, string, error) {
	path, explicit := Resolve(flagPath)

	cfg, err := Load(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), path, nil
		}
		return nil, path, err
	}
	return cfg, path, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.url must be an http or https URL with a host")
	}
	if c.Backend.RequestTimeout < 0 {
		return fmt.Errorf("backend.request_timeout must not be negative")
	}

	switch c.Storage.Driver {
	case "sqlite", "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be sqlite, file or memory, got %q", c.Storage.Driver)
	}

	if len(c.Auth.Users) > 0 && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.users is set")
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must not be negative")
	}

	if c.Dashboards.HealthInterval < 0 || c.Dashboards.MetricsInterval < 0 {
		return fmt.Errorf("dashboard intervals must not be negative")
	}
	if c.Dashboards.Enabled && (c.Dashboards.HealthInterval == 0 || c.Dashboards.MetricsInterval == 0) {
		return fmt.Errorf("dashboard intervals are required when dashboards are enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	switch c.Preferences.Theme {
	case "light", "dark", "system":
	default:
		return fmt.Errorf("preferences.theme must be light, dark or system, got %q", c.Preferences.Theme)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"backend.request_timeout", cfg.Backend.RequestTimeoutRaw, &cfg.Backend.RequestTimeout},
		{"auth.token_ttl", cfg.Auth.TokenTTLRaw, &cfg.Auth.TokenTTL},
		{"dashboards.health_interval", cfg.Dashboards.HealthIntervalRaw, &cfg.Dashboards.HealthInterval},
		{"dashboards.metrics_interval", cfg.Dashboards.MetricsIntervalRaw, &cfg.Dashboards.MetricsInterval},
	}

	for _, f := range fields {
		if f.raw == "" {
			*f.dst = 0
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share")
}
