// Package config loads lspcore's own server-wide settings — log
// verbosity, handler concurrency, where to write a captured JSON-RPC
// trace, and a watch glob — from a TOML, YAML, or JSON file.
// Discovery, format dispatch, and defaulting follow the same shape as the
// teacher's pkg/config loader, scoped down to this server's own settings
// rather than a whole static-site-generator's build configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is lspcore's server-wide configuration.
type Config struct {
	// Verbose enables source-location logging (log.Lshortfile) in
	// addition to the default timestamp prefix.
	Verbose bool `toml:"verbose" yaml:"verbose" json:"verbose"`

	// Concurrency bounds how many request handlers run concurrently.
	Concurrency int `toml:"concurrency" yaml:"concurrency" json:"concurrency"`

	// TraceFile, if set, receives a JSON-lines copy of every framed
	// message the transport reads or writes, for pkg/inspector to tail.
	TraceFile string `toml:"trace_file" yaml:"trace_file" json:"trace_file"`

	// WatchGlob is loaded and saved with the rest of the configuration.
	// The example server's workspace watcher does not read it: it
	// forwards changes to .md files only.
	WatchGlob string `toml:"watch_glob" yaml:"watch_glob" json:"watch_glob"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Verbose:     false,
		Concurrency: 4,
		TraceFile:   "",
		WatchGlob:   "*.md",
	}
}

// configFileNames is the discovery order, mirroring the teacher's
// extension-ordered search.
var configFileNames = []string{
	"lspcore.toml",
	"lspcore.yaml",
	"lspcore.yml",
	"lspcore.json",
}

// ErrConfigNotFound is returned by Discover when no config file exists.
var ErrConfigNotFound = errors.New("config: no configuration file found")

// Load loads configuration from configPath, or discovers one of
// configFileNames in the current directory if configPath is empty. A
// missing discovered file is not an error: Load falls back to Default.
func Load(configPath string) (*Config, error) {
	var err error
	if configPath == "" {
		configPath, err = Discover()
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return Default(), nil
			}
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg, err := parse(configPath, data)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
	}

	merged := Default()
	mergeInto(merged, cfg)
	return merged, nil
}

// Discover searches the current directory for the first file in
// configFileNames that exists.
func Discover() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for _, name := range configFileNames {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

func parse(path string, data []byte) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var cfg Config
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	case ".yaml", ".yml":
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	case ".json":
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
}

// mergeInto overlays the non-zero fields of override onto base.
func mergeInto(base, override *Config) {
	if override.Concurrency != 0 {
		base.Concurrency = override.Concurrency
	}
	if override.TraceFile != "" {
		base.TraceFile = override.TraceFile
	}
	if override.WatchGlob != "" {
		base.WatchGlob = override.WatchGlob
	}
	base.Verbose = base.Verbose || override.Verbose
}
