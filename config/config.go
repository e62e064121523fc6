// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverRemote = "remote"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Schema  SchemaConfig  `yaml:"schema"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

// StorageConfig selects the document store.
type StorageConfig struct {
	Driver   string       `yaml:"driver" validate:"oneof=memory sqlite badger remote"`
	DSN      string       `yaml:"dsn"`       // sqlite
	Path     string       `yaml:"path"`      // badger directory
	InMemory bool         `yaml:"in_memory"` // badger without a directory
	Remote   RemoteConfig `yaml:"remote,omitempty"`
}

// RemoteConfig configures a remote record service.
type RemoteConfig struct {
	URL     string            `yaml:"url" validate:"omitempty,url"`
	APIKey  string            `yaml:"api_key,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty" validate:"gte=0"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// SchemaConfig locates the record type definitions.
type SchemaConfig struct {
	Dir    string `yaml:"dir"`
	Strict bool   `yaml:"strict"` // reject unknown fields on restore
	IDs    string `yaml:"ids" validate:"omitempty,oneof=uuid uuidv7 sequential"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"startswith=/"`
}

// Address returns the listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	MODEL_SERVER_HOST        - Server host (default: 0.0.0.0)
//	MODEL_SERVER_PORT        - Server port (default: 8080)
//	MODEL_STORAGE_DRIVER     - memory, sqlite, badger or remote (default: memory)
//	MODEL_STORAGE_DSN        - SQLite database path
//	MODEL_STORAGE_PATH       - Badger directory
//	MODEL_STORAGE_REMOTE_URL - Remote record service URL
//	MODEL_SCHEMA_DIR         - Directory of YAML type definitions
//	MODEL_SCHEMA_STRICT      - Reject unknown fields (default: false)
//	MODEL_SCHEMA_IDS         - Key generator: uuid, uuidv7 or sequential
//	MODEL_LOG_LEVEL          - Log level (default: info)
//	MODEL_LOG_FORMAT         - json or console (default: json)
//	MODEL_METRICS_ENABLED    - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies MODEL_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODEL_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MODEL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MODEL_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("MODEL_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("MODEL_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("MODEL_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("MODEL_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MODEL_STORAGE_IN_MEMORY"); v != "" {
		cfg.Storage.InMemory = parseBool(v)
	}
	if v := os.Getenv("MODEL_STORAGE_REMOTE_URL"); v != "" {
		cfg.Storage.Remote.URL = v
	}
	if v := os.Getenv("MODEL_STORAGE_REMOTE_API_KEY"); v != "" {
		cfg.Storage.Remote.APIKey = v
	}

	if v := os.Getenv("MODEL_SCHEMA_DIR"); v != "" {
		cfg.Schema.Dir = v
	}
	if v := os.Getenv("MODEL_SCHEMA_STRICT"); v != "" {
		cfg.Schema.Strict = parseBool(v)
	}
	if v := os.Getenv("MODEL_SCHEMA_IDS"); v != "" {
		cfg.Schema.IDs = v
	}

	if v := os.Getenv("MODEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MODEL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("MODEL_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("MODEL_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverMemory
	}
	if cfg.Storage.Driver == DriverSQLite && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "records.db"
	}
	if cfg.Storage.Remote.Timeout == 0 {
		cfg.Storage.Remote.Timeout = 10 * time.Second
	}

	if cfg.Schema.IDs == "" {
		cfg.Schema.IDs = "uuid"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q check (got %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return err
	}

	switch cfg.Storage.Driver {
	case DriverBadger:
		if cfg.Storage.Path == "" && !cfg.Storage.InMemory {
			return fmt.Errorf("storage.path is required when storage.driver is 'badger'")
		}
	case DriverRemote:
		if cfg.Storage.Remote.URL == "" {
			return fmt.Errorf("storage.remote.url is required when storage.driver is 'remote'")
		}
	}

	return nil
}

// fieldPath turns a validator namespace like Config.Storage.Remote.URL into
// the YAML path storage.remote.url.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	switch s {
	case "URL", "DSN", "IDs":
		return strings.ToLower(s)
	case "APIKey":
		return "api_key"
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
