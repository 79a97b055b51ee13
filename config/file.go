package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadConfigFile loads configuration from a YAML or TOML file, chosen by
// extension. Keys absent from the file keep their defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (use .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ConfigLocations returns the searched config paths in priority order.
func ConfigLocations() []string {
	home, _ := os.UserHomeDir()
	var locations []string
	for _, ext := range []string{"yaml", "yml", "toml"} {
		locations = append(locations, "./scenesplit."+ext)
	}
	if home != "" {
		for _, ext := range []string{"yaml", "yml", "toml"} {
			locations = append(locations, filepath.Join(home, ".scenesplit", "config."+ext))
		}
	}
	for _, ext := range []string{"yaml", "yml", "toml"} {
		locations = append(locations, "/etc/scenesplit/config."+ext)
	}
	return locations
}

// FindConfigFile searches for config file in standard locations
// Returns empty string if not found (non-fatal)
func FindConfigFile() string {
	for _, path := range ConfigLocations() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// SaveConfigFile saves configuration to a YAML or TOML file
func SaveConfigFile(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
