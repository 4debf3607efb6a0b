// Package config loads castcopy settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/born-ml/castcopy/internal/engine"
	"github.com/born-ml/castcopy/internal/logger"
	"github.com/born-ml/castcopy/internal/parallel"
	"github.com/born-ml/castcopy/internal/queue"
	"github.com/born-ml/castcopy/internal/scratch"
	"github.com/born-ml/castcopy/internal/tensor"
	"gopkg.in/yaml.v3"
)

// Config mirrors the configuration file (~/.config/castcopy/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	// Queue
	Workers *int   `yaml:"workers"`
	InOrder *bool  `yaml:"in_order"`
	Device  string `yaml:"device"`

	// Kernels
	Parallel     *bool `yaml:"parallel"`
	MinChunkSize *int  `yaml:"min_chunk_size"`

	// Engine
	ScratchMaxPooled *int     `yaml:"scratch_max_pooled"`
	UnsupportedKinds []string `yaml:"unsupported_kinds"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Settings is a validated configuration with defaults applied.
type Settings struct {
	Workers          int
	InOrder          bool
	Device           tensor.Device
	Parallel         parallel.Config
	ScratchMaxPooled int
	Unsupported      []tensor.DataType
	LogLevel         string
	LogFormat        string
}

// DefaultPath returns the per-user config file location, or "" if the
// platform has no config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "castcopy", "config.yaml")
}

// Load reads a config file. A missing file at the default location yields an
// empty Config; a missing explicit path is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Resolve applies defaults and validates the result.
func (c Config) Resolve() (Settings, error) {
	s := Settings{
		Workers:          runtime.NumCPU(),
		Parallel:         parallel.DefaultConfig(),
		ScratchMaxPooled: scratch.DefaultMaxPooled,
		LogLevel:         "info",
		LogFormat:        logger.FormatText,
	}

	if c.Workers != nil {
		if *c.Workers < 1 {
			return Settings{}, fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
		}
		s.Workers = *c.Workers
	}
	if c.InOrder != nil {
		s.InOrder = *c.InOrder
	}
	if c.Device != "" {
		d, err := tensor.ParseDevice(c.Device)
		if err != nil {
			return Settings{}, err
		}
		s.Device = d
	}
	if c.Parallel != nil {
		s.Parallel.Enabled = *c.Parallel
	}
	if c.MinChunkSize != nil {
		if *c.MinChunkSize < 1 {
			return Settings{}, fmt.Errorf("min_chunk_size must be positive, got %d", *c.MinChunkSize)
		}
		s.Parallel.MinChunkSize = *c.MinChunkSize
	}
	if c.ScratchMaxPooled != nil {
		if *c.ScratchMaxPooled < 1 {
			return Settings{}, fmt.Errorf("scratch_max_pooled must be positive, got %d", *c.ScratchMaxPooled)
		}
		s.ScratchMaxPooled = *c.ScratchMaxPooled
	}
	for _, name := range c.UnsupportedKinds {
		dt, err := tensor.ParseDataType(name)
		if err != nil {
			return Settings{}, fmt.Errorf("unsupported_kinds: %w", err)
		}
		s.Unsupported = append(s.Unsupported, dt)
	}
	if c.LogLevel != "" {
		if _, err := logger.ParseLevel(c.LogLevel); err != nil {
			return Settings{}, err
		}
		s.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		switch c.LogFormat {
		case logger.FormatText, logger.FormatJSON, logger.FormatPretty:
		default:
			return Settings{}, fmt.Errorf("unknown log format %q", c.LogFormat)
		}
		s.LogFormat = c.LogFormat
	}
	return s, nil
}

// QueueConfig returns the queue configuration for these settings.
func (s Settings) QueueConfig(log logger.Logger) queue.Config {
	return queue.Config{
		Name:    "castcopy",
		Workers: s.Workers,
		InOrder: s.InOrder,
		Device:  s.Device,
		Logger:  log,
	}
}

// EngineOptions returns the engine options for these settings.
func (s Settings) EngineOptions(log logger.Logger) engine.Options {
	par := s.Parallel
	return engine.Options{
		Logger:      log,
		Parallel:    &par,
		Scratch:     scratch.New(s.ScratchMaxPooled),
		Unsupported: s.Unsupported,
	}
}
