package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Tracker TrackerConfig `yaml:"tracker"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// TrackerConfig points at the remote project-tracking API.
type TrackerConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Workspace   string        `yaml:"workspace"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	MaxInFlight int           `yaml:"max_in_flight"`
}

type CacheConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig is the optional direct database connection. An empty DSN
// disables the direct-store read path.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// SyncConfig controls the background stale-sync sweeper.
type SyncConfig struct {
	Staleness     time.Duration `yaml:"staleness"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepSpacing  time.Duration `yaml:"sweep_spacing"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Tracker: TrackerConfig{
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
			MaxInFlight: 50,
		},
		Cache: CacheConfig{
			Path: "taskmirror.db",
		},
		Sync: SyncConfig{
			Staleness:     time.Hour,
			SweepInterval: 10 * time.Minute,
			SweepSpacing:  5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("TASKMIRROR_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("TASKMIRROR_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TASKMIRROR_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKMIRROR_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if token := os.Getenv("TASKMIRROR_AUTH_TOKEN"); token != "" {
		cfg.Server.AuthToken = token
	}
	if baseURL := os.Getenv("TASKMIRROR_TRACKER_BASE_URL"); baseURL != "" {
		cfg.Tracker.BaseURL = baseURL
	}
	if apiKey := os.Getenv("TASKMIRROR_TRACKER_API_KEY"); apiKey != "" {
		cfg.Tracker.APIKey = apiKey
	}
	if workspace := os.Getenv("TASKMIRROR_TRACKER_WORKSPACE"); workspace != "" {
		cfg.Tracker.Workspace = workspace
	}
	if timeoutStr := os.Getenv("TASKMIRROR_TRACKER_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKMIRROR_TRACKER_TIMEOUT: %w", err)
		}
		cfg.Tracker.Timeout = timeout
	}
	if cachePath := os.Getenv("TASKMIRROR_CACHE_PATH"); cachePath != "" {
		cfg.Cache.Path = cachePath
	}
	if dsn := os.Getenv("TASKMIRROR_STORE_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}
	if stalenessStr := os.Getenv("TASKMIRROR_SYNC_STALENESS"); stalenessStr != "" {
		staleness, err := time.ParseDuration(stalenessStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKMIRROR_SYNC_STALENESS: %w", err)
		}
		cfg.Sync.Staleness = staleness
	}
	if level := os.Getenv("TASKMIRROR_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
