package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable pointing at a config file.
const EnvConfigPath = "MONTAGE_CONFIG"

// LoadConfigFile loads configuration from a YAML file. Keys missing from
// the file keep their defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for config file in standard locations
// Returns empty string if not found (non-fatal)
func FindConfigFile() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	locations := []string{
		"./montage.yaml",
		"./montage.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".montage", "config.yaml"),
			filepath.Join(home, ".montage", "config.yml"),
		)
	}
	locations = append(locations,
		"/etc/montage/config.yaml",
		"/etc/montage/config.yml",
	)

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves configuration to a YAML file
func SaveConfigFile(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
