package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kelseyhightower/envconfig"
)

// FileEnv names the optional YAML/TOML config file
const FileEnv = "ADMON_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Monitor   MonitorConfig   `yaml:"monitor" toml:"monitor"`
	Host      HostConfig      `yaml:"host" toml:"host"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// StorageConfig selects the durable backend for entity state
type StorageConfig struct {
	Driver     string   `envconfig:"STORAGE_DRIVER" default:"sqlite" yaml:"driver" toml:"driver"`
	Path       string   `envconfig:"STORAGE_PATH" default:"/tmp/admonitor/state.db" yaml:"path" toml:"path"`
	// LoadWindow bounds how long a failing initial load is retried
	LoadWindow Duration `envconfig:"STORAGE_LOAD_WINDOW" default:"2m" yaml:"load_window" toml:"load_window"`
}

// MonitorConfig holds the ad reconciliation settings
type MonitorConfig struct {
	AdTimeout       Duration `envconfig:"AD_TIMEOUT" default:"60s" yaml:"ad_timeout" toml:"ad_timeout"`
	ActionTimeout   Duration `envconfig:"ACTION_TIMEOUT" default:"5s" yaml:"action_timeout" toml:"action_timeout"`
	OriginPatterns  []string `envconfig:"ORIGIN_PATTERNS" default:"*://gql.twitch.tv/**" yaml:"origin_patterns" toml:"origin_patterns"`
	OperationMarker string   `envconfig:"AD_OPERATION_MARKER" default:"RecordAdEvent" yaml:"operation_marker" toml:"operation_marker"`
}

// HostConfig selects how the backend reaches the browser
type HostConfig struct {
	Bridge   string `envconfig:"HOST_BRIDGE" default:"ws" yaml:"bridge" toml:"bridge"`
	URL      string `envconfig:"HOST_URL" default:"http://127.0.0.1:8765" yaml:"url" toml:"url"`
	RetryMax int    `envconfig:"HOST_RETRY_MAX" default:"3" yaml:"retry_max" toml:"retry_max"`
}

// Load loads configuration from the optional config file, then from
// environment variables. Environment values win.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		fileCfg := Default()
		if err := loadFile(path, fileCfg); err != nil {
			return nil, err
		}
		overlayEnv(fileCfg, &cfg)
		cfg = *fileCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			Path:       "/tmp/admonitor/state.db",
			LoadWindow: Duration(2 * time.Minute),
		},
		Monitor: MonitorConfig{
			AdTimeout:       Duration(60 * time.Second),
			ActionTimeout:   Duration(5 * time.Second),
			OriginPatterns:  []string{"*://gql.twitch.tv/**"},
			OperationMarker: "RecordAdEvent",
		},
		Host: HostConfig{
			Bridge:   "ws",
			URL:      "http://127.0.0.1:8765",
			RetryMax: 3,
		},
	}
}

// Validate checks values envconfig cannot check on its own
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid storage driver %q (use: sqlite|memory)", c.Storage.Driver)
	}
	switch c.Host.Bridge {
	case "ws", "http":
	default:
		return fmt.Errorf("invalid host bridge %q (use: ws|http)", c.Host.Bridge)
	}
	if c.Storage.LoadWindow <= 0 {
		return fmt.Errorf("storage load window must be positive, got %s", c.Storage.LoadWindow)
	}
	if c.Monitor.AdTimeout <= 0 {
		return fmt.Errorf("ad timeout must be positive, got %s", c.Monitor.AdTimeout)
	}
	if c.Monitor.ActionTimeout <= 0 {
		return fmt.Errorf("action timeout must be positive, got %s", c.Monitor.ActionTimeout)
	}
	if c.Monitor.OperationMarker == "" {
		return fmt.Errorf("operation marker must not be empty")
	}
	for _, p := range c.Monitor.OriginPatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid origin pattern %q", p)
		}
	}
	return nil
}
