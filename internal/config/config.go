// Package config loads humble-cat settings from the environment and an
// optional YAML file of scheme mounts.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds the CLI settings.
type Config struct {
	// Path of the YAML mounts file; empty means none.
	Path string `env:"HUMBLE_CONFIG" yaml:"-"`

	// BufferSize is the transfer buffer size in bytes.
	BufferSize int `env:"HUMBLE_BUFFER_SIZE" yaml:"buffer_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"HUMBLE_LOG_LEVEL" yaml:"log_level"`

	Mounts []Mount `yaml:"mounts"`
}

// Mount maps a URL scheme to a directory.
type Mount struct {
	Scheme   string `yaml:"scheme"`
	Root     string `yaml:"root"`
	ReadOnly bool   `yaml:"read_only"`
}

// Default settings, used for anything neither the file nor the environment
// sets.
const (
	DefaultBufferSize = 32 * 1024
	DefaultLogLevel   = "info"
)

// Load builds a Config from defaults, then the YAML file named by path (or by
// HUMBLE_CONFIG when path is empty), then the environment. Set environment
// variables override the file; mounts come only from the file.
func Load(path string) (*Config, error) {
	cfg := &Config{
		BufferSize: DefaultBufferSize,
		LogLevel:   DefaultLogLevel,
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if path != "" {
		cfg.Path = path
	}

	if cfg.Path != "" {
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfg.Path, err)
		}
		// Unset variables leave the file's values in place.
		file := cfg.Path
		if err := env.Parse(cfg); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
		cfg.Path = file
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the buffer size, log level and mounts.
func (c *Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size %d", ErrInvalid, c.BufferSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Mounts))
	for i, m := range c.Mounts {
		switch {
		case m.Scheme == "" || strings.ContainsRune(m.Scheme, ':'):
			return fmt.Errorf("%w: mount %d has scheme %q", ErrInvalid, i, m.Scheme)
		case m.Root == "":
			return fmt.Errorf("%w: mount %q has no root", ErrInvalid, m.Scheme)
		case seen[m.Scheme]:
			return fmt.Errorf("%w: scheme %q mounted twice", ErrInvalid, m.Scheme)
		}
		seen[m.Scheme] = true
	}
	return nil
}

// Level returns LogLevel as an slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}
