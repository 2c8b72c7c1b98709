// Package config loads configuration for the diagram server and the editor client
// from an optional YAML file, environment variables and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the diagram server configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `yaml:"environment" env:"ENV" env-default:"development"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// StorageConfig holds the on-disk layout of the server.
// The database, search index and auth key all live under DataPath.
type StorageConfig struct {
	DataPath string `yaml:"data_path" env:"DATA_PATH"`
}

// AuthConfig holds token configuration. The signing key itself is loaded
// from DataPath/auth.key at startup.
type AuthConfig struct {
	AccessTokenDuration time.Duration `yaml:"access_token_duration" env:"ACCESS_TOKEN_DURATION" env-default:"24h"`
	CookieName          string        `yaml:"cookie_name"           env:"AUTH_COOKIE_NAME"      env-default:"jwt"`
}

// CORSConfig holds cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"http://localhost:3000" env-separator:","`
	AllowCredentials bool     `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int      `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"300"`
}

// RateLimitConfig bounds how often a single client IP may hit the auth endpoints.
type RateLimitConfig struct {
	AuthRPS   float64 `yaml:"auth_rps"   env:"RATE_LIMIT_AUTH_RPS"   env-default:"1"`
	AuthBurst int     `yaml:"auth_burst" env:"RATE_LIMIT_AUTH_BURST" env-default:"10"`
}

// LoadConfig loads server configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. YAML file at CONFIG_PATH, or ./config.yaml when present.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("mindmap-api", flag.ContinueOnError)
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for the database, search index and auth key")
	port := fs.String("port", "", "Server port (default: 8080)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var cfg Config
	if err := read(&cfg); err != nil {
		return nil, err
	}

	cfg.App.Environment = override(cfg.App.Environment, *env)
	cfg.Logger.Level = override(cfg.Logger.Level, *logLevel)
	cfg.Storage.DataPath = override(cfg.Storage.DataPath, *dataPath)
	cfg.Server.Port = override(cfg.Server.Port, *port)

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if err := validateEnvironment(c.App.Environment); err != nil {
		return err
	}
	if err := validateLevel(c.Logger.Level); err != nil {
		return err
	}
	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Auth.AccessTokenDuration <= 0 {
		return fmt.Errorf("access token duration must be positive, got %s", c.Auth.AccessTokenDuration)
	}
	if c.RateLimit.AuthRPS <= 0 || c.RateLimit.AuthBurst <= 0 {
		return errors.New("rate limit rps and burst must be positive")
	}
	return nil
}

// DatabasePath is the SQLite file under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataPath, "mindmap.db")
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Storage.DataPath, filepath.Join(homeDir, ".mindmap", "server"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// read fills cfg from the YAML file (if any) and the environment.
// An explicit CONFIG_PATH that does not exist is an error.
func read(cfg any) error {
	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	} else if explicitPath {
		return fmt.Errorf("config: file %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config: read env: %w", err)
	}
	return nil
}

func override(current, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return current
}

func validateEnvironment(env string) error {
	switch env {
	case "development", "staging", "production":
		return nil
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", env)
	}
}

func validateLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}
