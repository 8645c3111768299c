// Package config loads the YAML configuration shared by the store, the
// effect handlers and logging.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/davazp/iredb/effects"
	"github.com/davazp/iredb/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store   store.Config              `yaml:"store"`
	Effects effects.EffectScopeConfig `yaml:"effects"`
	Log     LogConfig                 `yaml:"log"`
}

type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn or error
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store:   store.DefaultConfig(),
		Effects: effects.NewEffectScopeConfig(16, 4),
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over Default, so fields missing from the
// file keep their default values. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config file %s does not exist", path)
		}
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(raw, cfg)
}

// Parse decodes raw over base. Unknown fields are rejected.
func Parse(raw []byte, base Config) (Config, error) {
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Effects = cfg.Effects.Normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case "", store.BackendFile:
		if c.Store.Dir == "" {
			return errors.New("store.dir is required for the file backend")
		}
	case store.BackendMemory:
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Logger builds the zap logger described by the log section.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// OpenStore opens the configured store, logging its debug output to logger.
func (c Config) OpenStore(logger *zap.Logger) (*store.Store, error) {
	return store.Open(c.Store, store.WithLogger(logger))
}
