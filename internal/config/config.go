package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Roles    RolesConfig    `yaml:"roles"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RolesConfig struct {
	// File holds role definitions; it is watched for changes.
	File string `yaml:"file"`
	// Capabilities this device has, e.g. voice_call.
	Capabilities []string `yaml:"capabilities"`
}

type ServerConfig struct {
	Socket string `yaml:"socket"`
	// AdminTokenHash is a bcrypt hash of the token required to mint
	// sessions. Empty disables auth (local development).
	AdminTokenHash string `yaml:"admin_token_hash"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from a file, then applies env overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnv(&cfg)
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	cfg.applyDefaults()
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GRANTD_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("GRANTD_SOCKET"); v != "" {
		cfg.Server.Socket = v
	}
	if v := os.Getenv("GRANTD_ROLES_FILE"); v != "" {
		cfg.Roles.File = v
	}
	if v := os.Getenv("GRANTD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) applyDefaults() {
	dir := baseDir()
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dir, "grantd.db")
	}
	if c.Server.Socket == "" {
		c.Server.Socket = filepath.Join(dir, "grantd.sock")
	}
	if c.Roles.File == "" {
		c.Roles.File = filepath.Join(dir, "roles.yaml")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".grantd")
}

// EnsureBaseDir creates the config/state directory if needed.
func EnsureBaseDir() (string, error) {
	dir := baseDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}
