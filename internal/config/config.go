// Package config loads the bridge's optional YAML configuration. Every
// field has a built-in default; a missing path is not an error, only an
// unreadable or invalid one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// portEnvVar optionally overrides the listen port.
const portEnvVar = "CASCADE_BRIDGE_PORT"

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cascade   CascadeConfig   `yaml:"cascade"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port        int           `yaml:"port"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// CascadeConfig tunes the trajectory polling loop.
type CascadeConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
}

// DiscoveryConfig points field discovery at a non-standard asset.
type DiscoveryConfig struct {
	AssetPath string `yaml:"asset_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: 8967,
			// Long enough to sit through the full polling window.
			IdleTimeout: 120 * time.Second,
		},
		Cascade: CascadeConfig{
			PollInterval: 1500 * time.Millisecond,
			PollAttempts: 60,
		},
	}
}

// Load reads YAML configuration from disk, layered over the defaults and
// under the environment override.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}
		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	if env := os.Getenv(portEnvVar); env != "" {
		port, err := strconv.Atoi(env)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be an integer, got %q", portEnvVar, env)
		}
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("server.idle_timeout must be positive, got %s", c.Server.IdleTimeout)
	}
	if c.Cascade.PollInterval <= 0 {
		return fmt.Errorf("cascade.poll_interval must be positive, got %s", c.Cascade.PollInterval)
	}
	if c.Cascade.PollAttempts <= 0 {
		return fmt.Errorf("cascade.poll_attempts must be positive, got %d", c.Cascade.PollAttempts)
	}
	return nil
}
