package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"canopy/internal/catalog"
)

const defaultPort = 2780

// Config holds user-level configuration loaded from
// ~/.config/canopy/config.toml. Command flags override it.
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Serve   ServeConfig   `toml:"serve"`
	Tree    TreeConfig    `toml:"tree"`
}

// CatalogConfig configures the ruleset store.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// ServeConfig configures the HTTP daemon.
type ServeConfig struct {
	Port int `toml:"port"`
}

// TreeConfig holds default tree-building options.
type TreeConfig struct {
	Merge bool `toml:"merge"`
}

func defaultConfig() *Config {
	return &Config{
		Serve: ServeConfig{Port: defaultPort},
	}
}

// loadConfig reads the config file at path (default
// ~/.config/canopy/config.toml) with defaults applied. A missing file is
// not an error; defaults are returned.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("home dir: %w", err)
		}
		path = filepath.Join(home, ".config", "canopy", "config.toml")
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Re-apply defaults for empty fields
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = defaultPort
	}

	return cfg, nil
}

// catalogPath resolves the database location: config value first, then
// ~/.local/state/canopy/catalog.db.
func (cfg *Config) catalogPath() (string, error) {
	if cfg.Catalog.Path != "" {
		return cfg.Catalog.Path, nil
	}
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.db"), nil
}

func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".local", "state", "canopy")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return dir, nil
}

// openCatalog opens the store the command should work against. override
// comes from a --db flag and wins over the config.
func openCatalog(cfg *Config, override string) (*catalog.Store, error) {
	path := override
	if path == "" {
		var err error
		path, err = cfg.catalogPath()
		if err != nil {
			return nil, err
		}
	}
	store, err := catalog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	return store, nil
}
