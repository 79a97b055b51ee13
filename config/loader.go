package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// LoadConfig loads configuration with priority: CLI flags > Config file > Defaults
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	configPath := ""
	if fs != nil && fs.Changed(FlagConfig) {
		configPath, _ = fs.GetString(FlagConfig)
	}
	if configPath == "" {
		configPath = FindConfigFile()
	}

	if configPath != "" {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	if fs != nil {
		if err := cfg.MergeFromFlags(fs); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
