package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig holds the endpoints of the CloudSync backend.
type ServerConfig struct {
	// BaseURL is the root URL of the API gateway.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// WebSocketURL is the notification feed endpoint.
	WebSocketURL string `mapstructure:"websocket_url" yaml:"websocket_url"`

	// StorageInternalHost is the object-storage host as the backend names
	// it in pre-signed URLs (reachable only from inside its network).
	StorageInternalHost string `mapstructure:"storage_internal_host" yaml:"storage_internal_host"`

	// StoragePublicHost is the externally reachable equivalent that
	// pre-signed URLs are rewritten to.
	StoragePublicHost string `mapstructure:"storage_public_host" yaml:"storage_public_host"`
}

// PollConfig holds the intervals of the background pollers.
type PollConfig struct {
	QuotaIntervalSec  int `mapstructure:"quota_interval_sec" yaml:"quota_interval_sec"`
	UnreadIntervalSec int `mapstructure:"unread_interval_sec" yaml:"unread_interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	PageSize int    `mapstructure:"page_size" yaml:"page_size"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`

	// CachePath is the location of the local metadata cache database.
	CachePath string `mapstructure:"cache_path" yaml:"cache_path"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/cloudsync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "cloudsync", "config.yaml")
}

// DefaultCachePath returns the default location of the local cache database.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "cloudsync.db")
	}
	return filepath.Join(home, ".config", "cloudsync", "cloudsync.db")
}

// defaultAppConfig returns a sensible default configuration pointing at a
// locally running backend.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:             "http://localhost:8080",
			WebSocketURL:        "ws://localhost:8084/ws",
			StorageInternalHost: "http://minio:9000",
			StoragePublicHost:   "http://localhost:9000",
		},
		Poll: PollConfig{
			QuotaIntervalSec:  30,
			UnreadIntervalSec: 60,
		},
		Display: DisplayConfig{
			Theme:    "default",
			PageSize: 50,
		},
		CachePath: DefaultCachePath(),
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.websocket_url", "ws://localhost:8084/ws")
	v.SetDefault("server.storage_internal_host", "http://minio:9000")
	v.SetDefault("server.storage_public_host", "http://localhost:9000")
	v.SetDefault("poll.quota_interval_sec", 30)
	v.SetDefault("poll.unread_interval_sec", 60)
	v.SetDefault("display.theme", "default")
	v.SetDefault("display.page_size", 50)
	v.SetDefault("cache_path", DefaultCachePath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("poll", cfg.Poll)
	v.Set("display", cfg.Display)
	v.Set("cache_path", cfg.CachePath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
