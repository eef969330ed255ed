package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load builds a configuration from defaults and environment variables.
func Load() *Config {
	cfg := Default()
	cfg.mergeEnvVars()
	return cfg
}

// LoadWithFile builds a configuration from defaults, an optional YAML file,
// and environment variables (env wins). A missing file is not an error; a
// malformed one is.
func LoadWithFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.mergeEnvVars()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}
