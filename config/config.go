// Package config models the small set of options the engine recognizes:
// pool size, database root path, and the compile-time page size.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/petrel-db/petrel/storage/disk"
)

// Config holds the engine's recognized options (spec §6).
type Config struct {
	PoolSize         int    `yaml:"pool_size"`
	DatabaseRootPath string `yaml:"database_root_path"`
}

// Default returns a Config with a modest pool size rooted at ./data.
func Default() Config {
	return Config{
		PoolSize:         32,
		DatabaseRootPath: "./data",
	}
}

// Validate checks the recognized options for well-formedness. The page
// size is a compile-time constant (disk.PAGE_SIZE) and is not a field of
// Config; a page_size key in a YAML file is ignored by LoadYAML.
func (c Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	if c.DatabaseRootPath == "" {
		return fmt.Errorf("database_root_path must not be empty")
	}
	return nil
}

// Paths derives the disk.Paths value this config points at.
func (c Config) Paths() disk.Paths {
	return disk.Paths{Root: c.DatabaseRootPath}
}

// LoadYAML reads a Config from a YAML file. yaml.v3 is already present in
// this module's dependency graph as testify's own indirect dependency;
// this promotes it to direct use rather than hand-rolling a parser.
func LoadYAML(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
