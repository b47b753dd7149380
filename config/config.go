// Package config handles moth.toml engine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/FinnC/moth-SOMns/vm"
)

// FileName is the name of the configuration file.
const FileName = "moth.toml"

// Config represents a moth.toml configuration.
type Config struct {
	Dispatch Dispatch `toml:"dispatch"`
	Log      Log      `toml:"log"`
	Profile  Profile  `toml:"profile"`

	// Dir is the directory containing the moth.toml file (set at load time).
	Dir string `toml:"-"`
}

// Dispatch configures the message dispatch engine.
type Dispatch struct {
	InlineCacheSize     int  `toml:"inline_cache_size"`
	EagerSpecialization bool `toml:"eager_specialization"`
	TypeChecking        bool `toml:"type_checking"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Profile configures where call-site profiles are written.
type Profile struct {
	Database string `toml:"database"`
	Snapshot string `toml:"snapshot"`
}

// Default returns the configuration used when no moth.toml exists.
func Default() *Config {
	return &Config{
		Dispatch: Dispatch{
			InlineCacheSize:     vm.DefaultInlineCacheSize,
			EagerSpecialization: true,
			TypeChecking:        true,
		},
	}
}

// Load parses a moth.toml file from the given directory. Keys missing from
// the file keep their default values.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a moth.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values that would make the engine misbehave.
func (c *Config) Validate() error {
	if c.Dispatch.InlineCacheSize < 1 {
		return fmt.Errorf("dispatch.inline_cache_size must be at least 1, got %d", c.Dispatch.InlineCacheSize)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	return nil
}

// VMOptions returns the runtime options described by the configuration.
func (c *Config) VMOptions() vm.Options {
	return vm.Options{
		InlineCacheSize:     c.Dispatch.InlineCacheSize,
		EagerSpecialization: c.Dispatch.EagerSpecialization,
		TypeChecking:        c.Dispatch.TypeChecking,
	}
}

// ProfileDatabasePath returns the profile database path resolved against
// the configuration directory, or "" when profiling to a database is off.
func (c *Config) ProfileDatabasePath() string {
	return c.resolve(c.Profile.Database)
}

// SnapshotPath returns the snapshot file path resolved against the
// configuration directory, or "".
func (c *Config) SnapshotPath() string {
	return c.resolve(c.Profile.Snapshot)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
