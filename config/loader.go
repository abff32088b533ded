package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"
)

// LoadConfig loads configuration with priority: CLI flags > Config file > Defaults
//
// The config file is taken from the --config flag, then $MONTAGE_CONFIG,
// then the standard locations. fs may be nil when there are no flags.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	// 1. Start with defaults
	cfg := DefaultConfig()

	// 2. Config file
	configPath := ""
	if fs != nil {
		if f := fs.Lookup(FlagConfig); f != nil {
			configPath = f.Value.String()
		}
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

	// 3. Merge CLI flags (highest priority, only those explicitly set)
	if fs != nil {
		if err := cfg.MergeFromFlags(fs); err != nil {
			return nil, err
		}
	}

	// Auto-detect probe workers if set to 0
	if cfg.ProbeWorkers == 0 {
		cfg.ProbeWorkers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
