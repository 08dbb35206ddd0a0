package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the ZikDomotica bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	API        APIConfig        `yaml:"api"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ControllerConfig contains the settings for the websocket link to the
// home-automation controller.
type ControllerConfig struct {
	// URL is the websocket address of the controller (e.g. "ws://localhost:8081").
	URL string `yaml:"url"`

	// ClientID is the identifier sent in the "majordomo" field of every
	// request so the controller can distinguish its peers.
	ClientID string `yaml:"client_id"`

	// RefreshInterval is how often a state request is re-sent while the
	// link is open (seconds).
	RefreshInterval int `yaml:"refresh_interval"`

	// ReconnectDelay is the fixed delay before a reconnection attempt
	// after the link drops (seconds). There is no backoff growth: the
	// controller lives on the local network and a short constant retry
	// is what gets the cache fresh again soonest.
	ReconnectDelay int `yaml:"reconnect_delay"`

	// HandshakeTimeout is the maximum time to wait for the websocket
	// handshake to complete (seconds).
	HandshakeTimeout int `yaml:"handshake_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite settings for the room/device
// configuration store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the configuration file at path, applies environment variable
// overrides, and validates the result.
//
// Environment variables follow the pattern ZIKDOMOTICA_SECTION_KEY,
// for example: ZIKDOMOTICA_CONTROLLER_URL, ZIKDOMOTICA_API_PORT.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			URL:              "ws://localhost:8081",
			ClientID:         "bridge",
			RefreshInterval:  5,
			ReconnectDelay:   2,
			HandshakeTimeout: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/zikdomotica.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ZIKDOMOTICA_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Controller
	if v := os.Getenv("ZIKDOMOTICA_CONTROLLER_URL"); v != "" {
		cfg.Controller.URL = v
	}
	if v := os.Getenv("ZIKDOMOTICA_CONTROLLER_CLIENT_ID"); v != "" {
		cfg.Controller.ClientID = v
	}

	// API
	if v := os.Getenv("ZIKDOMOTICA_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ZIKDOMOTICA_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Database
	if v := os.Getenv("ZIKDOMOTICA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Logging
	if v := os.Getenv("ZIKDOMOTICA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Controller validation
	if c.Controller.URL == "" {
		errs = append(errs, "controller.url is required")
	} else if u, err := url.Parse(c.Controller.URL); err != nil {
		errs = append(errs, fmt.Sprintf("controller.url is not a valid URL: %v", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, "controller.url must use the ws or wss scheme")
	}
	if c.Controller.ClientID == "" {
		errs = append(errs, "controller.client_id is required")
	}
	if c.Controller.RefreshInterval < 1 {
		errs = append(errs, "controller.refresh_interval must be at least 1 second")
	}
	if c.Controller.ReconnectDelay < 1 {
		errs = append(errs, "controller.reconnect_delay must be at least 1 second")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetRefreshInterval returns the controller refresh interval as a Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Controller.RefreshInterval) * time.Second
}

// GetReconnectDelay returns the controller reconnect delay as a Duration.
func (c *Config) GetReconnectDelay() time.Duration {
	return time.Duration(c.Controller.ReconnectDelay) * time.Second
}

// GetHandshakeTimeout returns the websocket handshake timeout as a Duration.
func (c *Config) GetHandshakeTimeout() time.Duration {
	return time.Duration(c.Controller.HandshakeTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
