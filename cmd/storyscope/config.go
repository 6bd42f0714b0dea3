package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up at the repo root when --config is not given.
const ConfigFileName = ".storyscope.yaml"

// Config is the on-disk project configuration.
type Config struct {
	// DB is the cache path, relative to the repo root unless absolute.
	DB string `yaml:"db"`
	// Documentation lists glob patterns for documentation files.
	Documentation []string `yaml:"documentation"`
	// CompanionSuffixes overrides the companion file suffixes.
	CompanionSuffixes []string `yaml:"companion_suffixes"`
	// Exclude lists glob patterns skipped during discovery and watching.
	Exclude []string `yaml:"exclude"`
	// Scripts lists check scripts run by `check` when --script is absent.
	Scripts []string `yaml:"scripts"`
}

// loadConfig reads the explicit config path, or .storyscope.yaml under root.
// A missing default file yields an empty Config; a missing explicit file is
// an error.
func loadConfig(root, explicit string) (*Config, error) {
	path := explicit
	if path == "" {
		path = filepath.Join(root, ConfigFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit == "" && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
