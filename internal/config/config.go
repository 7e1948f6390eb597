// Package config loads chunk store settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cbrewster/castore/internal/chunkstore"
	"github.com/cbrewster/castore/internal/chunkstore/bolt"
	"github.com/cbrewster/castore/internal/chunkstore/file"
)

const (
	BackendBolt = "bolt"
	BackendFile = "file"
)

type Config struct {
	// Backend is either "bolt" (a single bbolt file at Path) or "file" (a
	// directory of chunk files at Path).
	Backend  string        `yaml:"backend"`
	Path     string        `yaml:"path"`
	Verify   bool          `yaml:"verify"`
	Timeout  time.Duration `yaml:"timeout"`
	NoSync   bool          `yaml:"no_sync"`
	ReadOnly bool          `yaml:"read_only"`
	LogLevel string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Backend:  BackendBolt,
		Path:     "chunks.bolt",
		Timeout:  time.Second,
		LogLevel: "info",
	}
}

// Load reads the YAML file at path on top of Default. The result is not
// validated, so callers can apply overrides before calling Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendBolt, BackendFile:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Path == "" {
		return errors.New("path is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

func (c Config) StoreOptions() chunkstore.Options {
	return chunkstore.Options{
		Verify:   c.Verify,
		Timeout:  c.Timeout,
		NoSync:   c.NoSync,
		ReadOnly: c.ReadOnly,
	}
}

// Open opens the configured backend.
func (c Config) Open() (chunkstore.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Backend {
	case BackendFile:
		return file.New(c.Path, c.StoreOptions())
	default:
		return bolt.New(c.Path, c.StoreOptions())
	}
}
