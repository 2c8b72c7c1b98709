package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ClientConfig holds the editor client configuration.
type ClientConfig struct {
	App    AppConfig    `yaml:"app"`
	Logger LoggerConfig `yaml:"logger"`
	Remote RemoteConfig `yaml:"remote"`
	Device DeviceConfig `yaml:"device"`
}

// RemoteConfig points the client at a diagram server.
type RemoteConfig struct {
	BaseURL        string        `yaml:"base_url"        env:"MINDMAP_API_URL"         env-default:"http://localhost:8080/api"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"MINDMAP_REQUEST_TIMEOUT" env-default:"15s"`
}

// DeviceConfig holds the device-local snapshot store settings.
type DeviceConfig struct {
	DataDir string `yaml:"data_dir" env:"MINDMAP_DATA_DIR"`
	// MaxSnapshotBytes caps a single stored record, like a browser storage quota.
	MaxSnapshotBytes int64 `yaml:"max_snapshot_bytes" env:"MINDMAP_MAX_SNAPSHOT_BYTES" env-default:"5242880"`
	// UnloadBudget bounds the local write performed on exit.
	UnloadBudget time.Duration `yaml:"unload_budget" env:"MINDMAP_UNLOAD_BUDGET" env-default:"2s"`
}

// LoadClientConfig loads the client configuration from the same sources as the server,
// minus flags: the editor CLI passes its own options explicitly.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := read(&cfg); err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dir, err := expandPath(cfg.Device.DataDir, filepath.Join(homeDir, ".mindmap", "device"))
	if err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}
	cfg.Device.DataDir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	if err := validateEnvironment(c.App.Environment); err != nil {
		return err
	}
	if err := validateLevel(c.Logger.Level); err != nil {
		return err
	}
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api url: %q", c.Remote.BaseURL)
	}
	if c.Device.MaxSnapshotBytes <= 0 {
		return errors.New("max snapshot bytes must be positive")
	}
	if c.Device.UnloadBudget <= 0 {
		return errors.New("unload budget must be positive")
	}
	return nil
}
