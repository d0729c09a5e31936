// Package config loads application configuration from a YAML file.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Env      string `yaml:"env"`
	DBPath   string `yaml:"db_path"`
	HTTPAddr string `yaml:"http_addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Env:      "local",
		DBPath:   defaultDBPath(),
		HTTPAddr: ":8080",
	}
}

// Load reads configuration from path. An empty path falls back to the
// user's config directory, and a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = configPath()
		if err != nil {
			return Default(), nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "backlog", "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "backlog", "config.yaml"), nil
}

func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "backlog.db"
	}
	return filepath.Join(homeDir, ".local", "share", "backlog", "backlog.db")
}

// applyDefaults fills in missing configuration with defaults.
func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath()
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
}
