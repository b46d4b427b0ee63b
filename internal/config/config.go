// ABOUTME: Configuration loading and parsing for the helpdesk server
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultDriver                = DriverSQLite
	DefaultSessionDuration       = 7 * 24 * time.Hour
	DefaultAuthRequestsPerMinute = 20
	DefaultLogLevel              = "info"
	DefaultLogFormat             = "text"

	// MinSessionSecretLength matches the HS256 key size the flash signer accepts.
	MinSessionSecretLength = 32
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the complete helpdesk configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig selects the store backend. Path is used by sqlite, DSN by postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// AuthConfig holds account and session configuration
type AuthConfig struct {
	// Admins lists the emails allowed to update and comment on tickets.
	Admins []string `yaml:"admins" toml:"admins"`

	// SessionSecret signs flash-message cookies. When empty the server
	// generates a random one at startup.
	SessionSecret string `yaml:"session_secret" toml:"session_secret"`

	SessionDuration    time.Duration `yaml:"-" toml:"-"`
	SessionDurationRaw string        `yaml:"session_duration" toml:"session_duration"`

	// AuthRequestsPerMinute caps login and register submissions per client IP.
	// Negative disables the limit.
	AuthRequestsPerMinute int `yaml:"auth_requests_per_minute" toml:"auth_requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration suitable for local use: SQLite in the
// working directory, listening on localhost.
func Default() *Config {
	cfg := &Config{
		Server:   ServerConfig{HTTPAddr: "127.0.0.1:8080"},
		Database: DatabaseConfig{Path: "helpdesk.db"},
	}
	// finish cannot fail on these values
	_ = cfg.finish()
	return cfg
}

// finish applies defaults, parses durations and validates.
func (c *Config) finish() error {
	c.applyDefaults()

	if err := parseDurations(c); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Auth.AuthRequestsPerMinute == 0 {
		c.Auth.AuthRequestsPerMinute = DefaultAuthRequestsPerMinute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return errors.New("server.http_addr is required")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported (use %s or %s)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}

	if c.Auth.SessionSecret != "" && len(c.Auth.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("auth.session_secret must be at least %d bytes", MinSessionSecretLength)
	}
	if c.Auth.SessionDuration <= 0 {
		return errors.New("auth.session_duration must be positive")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use text or json)", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Auth.SessionDurationRaw == "" {
		cfg.Auth.SessionDuration = DefaultSessionDuration
		return nil
	}

	d, err := time.ParseDuration(cfg.Auth.SessionDurationRaw)
	if err != nil {
		return fmt.Errorf("parsing session_duration %q: %w", cfg.Auth.SessionDurationRaw, err)
	}
	cfg.Auth.SessionDuration = d
	return nil
}

// DefaultPath resolves the config file location. HELPDESK_CONFIG wins, then
// $XDG_CONFIG_HOME/helpdesk/helpdesk.yaml, then ~/.config/helpdesk/helpdesk.yaml.
// It returns an empty string when no candidate can be determined.
func DefaultPath() string {
	if p := os.Getenv("HELPDESK_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "helpdesk", "helpdesk.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "helpdesk", "helpdesk.yaml")
}
